/*
Package fuse implements the read-only filesystem the benchmark harness
mounts: an object store prefix exposed as a directory tree through
hanwen/go-fuse.

Keys under the configured prefix appear as regular files; longer keys
introduce intermediate directories. Reads translate into ranged GetObject
calls, lookups into HeadObject, directory listings into prefix listings.
There is deliberately no write path and no caching or prefetching layer of
its own; the harness measures the store and the kernel, not this package.

Opens requesting O_DIRECT are honored by turning off the kernel page cache
for that handle (FOPEN_DIRECT_IO), which is what the cache-bypassed
benchmark scenario relies on.
*/
package fuse

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/objectfs/fsbench/internal/metrics"
	"github.com/objectfs/fsbench/internal/storage/s3"
)

// ObjectStore is the slice of the S3 backend the filesystem needs.
type ObjectStore interface {
	GetObject(ctx context.Context, key string, offset, size int64) ([]byte, error)
	HeadObject(ctx context.Context, key string) (*s3.ObjectInfo, error)
	ListObjects(ctx context.Context, prefix string, limit int) ([]s3.ObjectInfo, error)
}

// FileSystem serves a read-only view of store keys under prefix.
type FileSystem struct {
	store   ObjectStore
	prefix  string
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates a filesystem rooted at prefix. prefix is either empty (the
// whole bucket) or ends with "/".
func New(store ObjectStore, prefix string, collector *metrics.Collector, logger *slog.Logger) *FileSystem {
	if collector == nil {
		collector = metrics.NewCollector("fsbench")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSystem{
		store:   store,
		prefix:  prefix,
		metrics: collector,
		logger:  logger,
	}
}

// Root returns the root inode for mounting.
func (f *FileSystem) Root() fs.InodeEmbedder {
	return &dirNode{fsys: f, prefix: f.prefix}
}

// Stats returns the operation counters for this instance.
func (f *FileSystem) Stats() metrics.Stats {
	return f.metrics.Snapshot()
}

type dirNode struct {
	fs.Inode

	fsys   *FileSystem
	prefix string
}

var _ = (fs.NodeLookuper)((*dirNode)(nil))
var _ = (fs.NodeGetattrer)((*dirNode)(nil))
var _ = (fs.NodeReaddirer)((*dirNode)(nil))

func (d *dirNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | 0o555
	return 0
}

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	key := d.prefix + name

	info, err := d.fsys.store.HeadObject(ctx, key)
	if err == nil {
		out.Attr.Mode = fuse.S_IFREG | 0o444
		out.Attr.Size = uint64(info.Size)
		out.Attr.SetTimes(nil, &info.LastModified, nil)
		child := d.NewInode(ctx, &fileNode{fsys: d.fsys, key: key, size: info.Size}, fs.StableAttr{Mode: fuse.S_IFREG})
		return child, 0
	}

	// No object with that exact key; it may still be a common prefix.
	entries, lerr := d.fsys.store.ListObjects(ctx, key+"/", 1)
	if lerr == nil && len(entries) > 0 {
		out.Attr.Mode = fuse.S_IFDIR | 0o555
		child := d.NewInode(ctx, &dirNode{fsys: d.fsys, prefix: key + "/"}, fs.StableAttr{Mode: fuse.S_IFDIR})
		return child, 0
	}

	return nil, syscall.ENOENT
}

func (d *dirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	objs, err := d.fsys.store.ListObjects(ctx, d.prefix, 0)
	if err != nil {
		d.fsys.metrics.RecordError("readdir")
		d.fsys.logger.Error("readdir failed", "prefix", d.prefix, "error", err)
		return nil, syscall.EIO
	}
	return fs.NewListDirStream(directChildren(d.prefix, objs)), 0
}

// directChildren reduces a recursive listing under prefix to the entries of
// that directory level, introducing synthetic directories for deeper keys.
func directChildren(prefix string, objs []s3.ObjectInfo) []fuse.DirEntry {
	seen := make(map[string]uint32)
	for _, obj := range objs {
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" {
			continue
		}
		if i := strings.IndexByte(rel, '/'); i >= 0 {
			seen[rel[:i]] = fuse.S_IFDIR
		} else if _, ok := seen[rel]; !ok {
			seen[rel] = fuse.S_IFREG
		}
	}

	entries := make([]fuse.DirEntry, 0, len(seen))
	for name, mode := range seen {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

type fileNode struct {
	fs.Inode

	fsys *FileSystem
	key  string
	size int64
}

var _ = (fs.NodeGetattrer)((*fileNode)(nil))
var _ = (fs.NodeOpener)((*fileNode)(nil))

func (n *fileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFREG | 0o444
	out.Size = uint64(n.size)
	return 0
}

func (n *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&uint32(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	n.fsys.metrics.RecordOpen()

	var fuseFlags uint32
	if oDirectFlag != 0 && flags&uint32(oDirectFlag) != 0 {
		// The caller asked to bypass the page cache; serve this handle
		// without kernel caching.
		fuseFlags |= fuse.FOPEN_DIRECT_IO
	}
	return &fileHandle{node: n}, fuseFlags, 0
}

type fileHandle struct {
	node *fileNode
}

var _ = (fs.FileReader)((*fileHandle)(nil))

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n := h.node
	if off >= n.size {
		return fuse.ReadResultData(nil), 0
	}

	size := int64(len(dest))
	if off+size > n.size {
		size = n.size - off
	}

	data, err := n.fsys.store.GetObject(ctx, n.key, off, size)
	if err != nil {
		n.fsys.metrics.RecordError("read")
		n.fsys.logger.Error("read failed", "key", n.key, "offset", off, "error", err)
		return nil, syscall.EIO
	}

	n.fsys.metrics.RecordRead(len(data))
	return fuse.ReadResultData(data), 0
}
