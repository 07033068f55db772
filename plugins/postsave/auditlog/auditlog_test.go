package auditlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ruteri/storageitem-service/upload"
	"github.com/ruteri/storageitem-service/upload/uploadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := uploadtest.New(t)
	h.Plugins.PostSave.MustRegister("audit", func() upload.PostSaveHook { return New(log) })

	item, err := h.Ingest("a.txt", "text/plain", []byte("abc"))
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "Storage item saved", line["msg"])
	assert.Equal(t, uploadtest.StorageName, line["storage"])
	assert.Equal(t, item.Path(), line["path"])
	assert.Equal(t, "a.txt", line["fileName"])
	assert.Equal(t, float64(3), line["size"])
}
