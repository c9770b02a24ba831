package s3

import (
	"context"
	"errors"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeHeader(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		size   int64
		want   string
	}{
		{name: "whole object", offset: 0, size: 0, want: ""},
		{name: "from offset to end", offset: 1024, size: 0, want: "bytes=1024-"},
		{name: "bounded range", offset: 0, size: 512, want: "bytes=0-511"},
		{name: "bounded range at offset", offset: 4096, size: 256, want: "bytes=4096-4351"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rangeHeader(tt.offset, tt.size))
		})
	}
}

func TestTranslateError(t *testing.T) {
	b := &Backend{bucket: "bench-bucket"}

	err := b.translateError(&s3types.NoSuchKey{}, "get", "data/big.bin")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "data/big.bin")

	err = b.translateError(&s3types.NotFound{}, "head", "data/big.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	cause := errors.New("connection reset")
	err = b.translateError(cause, "get", "data/big.bin")
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, cause)
}

func TestNewBackendRejectsEmptyBucket(t *testing.T) {
	_, err := NewBackend(context.Background(), "", nil, nil)
	require.Error(t, err)
}
