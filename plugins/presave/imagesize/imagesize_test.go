package imagesize

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/ruteri/storageitem-service/upload"
	"github.com/ruteri/storageitem-service/upload/uploadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestImageSize(t *testing.T) {
	h := uploadtest.New(t)
	h.Plugins.PreSave.MustRegister("image-size", func() upload.PreSaveHook { return New() })

	item, err := h.Ingest("pixel.png", "image/png", encodePNG(t, 12, 7))
	require.NoError(t, err)

	assert.Equal(t, 12, item.Metadata()[KeyWidth])
	assert.Equal(t, 7, item.Metadata()[KeyHeight])
}

func TestImageSize_SkipsOtherContent(t *testing.T) {
	h := uploadtest.New(t)
	h.Plugins.PreSave.MustRegister("image-size", func() upload.PreSaveHook { return New() })

	item, err := h.Ingest("notes.txt", "text/plain", encodePNG(t, 3, 3))
	require.NoError(t, err)
	assert.Nil(t, item.Metadata())

	item, err = h.Ingest("logo.svg", "image/svg+xml", []byte("<svg/>"))
	require.NoError(t, err)
	assert.Nil(t, item.Metadata())
}
