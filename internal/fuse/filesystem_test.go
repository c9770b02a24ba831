package fuse

import (
	"context"
	"fmt"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/fsbench/internal/storage/s3"
)

// fakeStore serves objects from a map.
type fakeStore struct {
	objects map[string][]byte
	fail    bool
}

func (f *fakeStore) GetObject(ctx context.Context, key string, offset, size int64) ([]byte, error) {
	if f.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	if offset >= int64(len(data)) {
		return nil, nil
	}
	end := offset + size
	if size <= 0 || end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end], nil
}

func (f *fakeStore) HeadObject(ctx context.Context, key string) (*s3.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return &s3.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeStore) ListObjects(ctx context.Context, prefix string, limit int) ([]s3.ObjectInfo, error) {
	var infos []s3.ObjectInfo
	for key, data := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			infos = append(infos, s3.ObjectInfo{Key: key, Size: int64(len(data))})
			if limit > 0 && len(infos) >= limit {
				break
			}
		}
	}
	return infos, nil
}

func TestDirectChildren(t *testing.T) {
	objs := []s3.ObjectInfo{
		{Key: "bench/big.bin"},
		{Key: "bench/small.bin"},
		{Key: "bench/nested/a.bin"},
		{Key: "bench/nested/deeper/b.bin"},
	}

	entries := directChildren("bench/", objs)
	require.Len(t, entries, 3)

	assert.Equal(t, "big.bin", entries[0].Name)
	assert.Equal(t, uint32(fuse.S_IFREG), entries[0].Mode)
	assert.Equal(t, "nested", entries[1].Name)
	assert.Equal(t, uint32(fuse.S_IFDIR), entries[1].Mode)
	assert.Equal(t, "small.bin", entries[2].Name)
}

func TestDirectChildrenBucketRoot(t *testing.T) {
	objs := []s3.ObjectInfo{
		{Key: "big.bin"},
		{Key: "dir/child.bin"},
	}

	entries := directChildren("", objs)
	require.Len(t, entries, 2)
	assert.Equal(t, "big.bin", entries[0].Name)
	assert.Equal(t, "dir", entries[1].Name)
}

func TestFileHandleRead(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{
		"big.bin": []byte("0123456789"),
	}}
	fsys := New(store, "", nil, nil)
	h := &fileHandle{node: &fileNode{fsys: fsys, key: "big.bin", size: 10}}

	dest := make([]byte, 4)
	res, errno := h.Read(context.Background(), dest, 2)
	require.Equal(t, syscall.Errno(0), errno)
	data, _ := res.Bytes(dest)
	assert.Equal(t, []byte("2345"), data)

	// Reads are clamped at EOF rather than over-requesting from the store.
	res, errno = h.Read(context.Background(), dest, 8)
	require.Equal(t, syscall.Errno(0), errno)
	data, _ = res.Bytes(dest)
	assert.Equal(t, []byte("89"), data)

	// Past EOF is an empty result, not an error.
	res, errno = h.Read(context.Background(), dest, 10)
	require.Equal(t, syscall.Errno(0), errno)
	data, _ = res.Bytes(dest)
	assert.Empty(t, data)

	stats := fsys.Stats()
	assert.Equal(t, int64(2), stats.Reads)
	assert.Equal(t, int64(6), stats.BytesRead)
}

func TestFileHandleReadError(t *testing.T) {
	store := &fakeStore{fail: true}
	fsys := New(store, "", nil, nil)
	h := &fileHandle{node: &fileNode{fsys: fsys, key: "big.bin", size: 10}}

	_, errno := h.Read(context.Background(), make([]byte, 4), 0)
	assert.Equal(t, syscall.EIO, errno)
	assert.Equal(t, int64(1), fsys.Stats().Errors)
}

func TestOpenRejectsWrites(t *testing.T) {
	fsys := New(&fakeStore{}, "", nil, nil)
	n := &fileNode{fsys: fsys, key: "big.bin", size: 10}

	_, _, errno := n.Open(context.Background(), uint32(syscall.O_WRONLY))
	assert.Equal(t, syscall.EROFS, errno)

	_, _, errno = n.Open(context.Background(), uint32(syscall.O_RDONLY))
	assert.Equal(t, syscall.Errno(0), errno)
	assert.Equal(t, int64(1), fsys.Stats().Opens)
}
