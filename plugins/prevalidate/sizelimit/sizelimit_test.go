package sizelimit

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/ruteri/storageitem-service/upload"
	"github.com/ruteri/storageitem-service/upload/uploadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int64
		size     int
		rejected bool
	}{
		{name: "below limit", limit: 10, size: 9},
		{name: "at limit", limit: 10, size: 10},
		{name: "above limit", limit: 10, size: 11, rejected: true},
		{name: "disabled", limit: 0, size: 1 << 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := uploadtest.New(t)
			h.Plugins.PreValidate.MustRegister("size-limit", func() upload.PreValidateHook { return New(tt.limit) })

			item, err := h.Ingest("blob.bin", "application/octet-stream", bytes.Repeat([]byte("x"), tt.size))
			if tt.rejected {
				assert.ErrorIs(t, err, upload.ErrRejected)
				assert.Equal(t, upload.ClassInvalid, upload.Classify(err))
				assert.Nil(t, item)
			} else {
				require.NoError(t, err)
				assert.True(t, item.Saved())
			}
			h.RequireClean()
		})
	}
}

func TestSizeLimit_DeclaredSizeMismatch(t *testing.T) {
	h := uploadtest.New(t)
	h.Plugins.PreValidate.MustRegister("size-limit", func() upload.PreValidateHook { return New(0) })

	part := upload.NewReaderPart("file", "short.bin", "", 100, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("only a few bytes"))), nil
	})

	_, err := h.Factory.FromPart(context.Background(), part, "")
	assert.ErrorIs(t, err, upload.ErrRejected)
	assert.Contains(t, err.Error(), "declared 100 bytes")
}
