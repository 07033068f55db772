package dated

import (
	"regexp"
	"testing"
	"time"

	"github.com/ruteri/storageitem-service/upload"
	"github.com/ruteri/storageitem-service/upload/uploadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 17, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
}

func TestGenerator_CreatePath(t *testing.T) {
	g := New().WithClock(fixedClock)

	p := g.CreatePath("My Photo.JPG")
	assert.Regexp(t, regexp.MustCompile(`^2024/05/18/[0-9a-f-]{36}/My_Photo.JPG$`), p)
	assert.NotEqual(t, p, g.CreatePath("My Photo.JPG"))
}

func TestGenerator_Priority(t *testing.T) {
	all := New()
	assert.Equal(t, float64(DefaultPriority), all.Priority("anything"))

	some := New("cdn")
	assert.Equal(t, float64(DefaultPriority), some.Priority("cdn"))
	assert.Equal(t, upload.PriorityNone, some.Priority("local"))
}

func TestGenerator_SelectedByPipeline(t *testing.T) {
	h := uploadtest.New(t)
	h.Plugins.PathGenerators.MustRegister("dated", func() upload.PathGenerator { return New().WithClock(fixedClock) })

	item, err := h.Ingest("a.txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	assert.Regexp(t, `^2024/05/18/`, item.Path())
	assert.Equal(t, []byte("x"), h.Stored(item))
}
