// Package dated generates storage paths grouped by upload date.
package dated

import (
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/storageitem-service/upload"
)

// DefaultPriority is returned for every storage the generator applies to.
const DefaultPriority = 1

// Generator builds paths like 2024/05/17/<uuid>/<name>.
type Generator struct {
	storages map[string]struct{}
	now      func() time.Time
}

// New returns a generator. With no storages it applies to every storage;
// otherwise it opts out of storages not listed.
func New(storages ...string) *Generator {
	g := &Generator{now: time.Now}
	if len(storages) > 0 {
		g.storages = make(map[string]struct{}, len(storages))
		for _, s := range storages {
			g.storages[s] = struct{}{}
		}
	}
	return g
}

// WithClock replaces the time source. Used in tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

func (g *Generator) Priority(storage string) float64 {
	if g.storages == nil {
		return DefaultPriority
	}
	if _, ok := g.storages[storage]; ok {
		return DefaultPriority
	}
	return upload.PriorityNone
}

func (g *Generator) CreatePath(name string) string {
	now := g.now().UTC()
	return path.Join(now.Format("2006/01/02"), uuid.NewString(), upload.SanitizeFileName(name))
}
