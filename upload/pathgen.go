package upload

import (
	"encoding/hex"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/google/uuid"
)

// PriorityNone is the lowest possible priority. A generator returning it for a
// storage does not take part in selection for that storage.
const PriorityNone = -math.MaxFloat64

// PathGenerator derives a storage key from an original file name.
type PathGenerator interface {
	// Priority ranks the generator for storage. Higher wins.
	Priority(storage string) float64
	CreatePath(name string) string
}

// DefaultPathGenerator is used when no registered generator applies.
// Paths look like aa/bb/<rest of a time-ordered uuid>/<name>.
type DefaultPathGenerator struct{}

func (DefaultPathGenerator) Priority(string) float64 {
	return PriorityNone
}

func (DefaultPathGenerator) CreatePath(name string) string {
	id := newUUID()
	h := hex.EncodeToString(id[:])
	return path.Join(h[0:2], h[2:4], h[4:], SanitizeFileName(name))
}

// SelectPathGenerator picks the generator with the highest priority for storage.
//
// Candidates are visited in registration order. A candidate whose priority
// equals the best seen so far fails the selection with ErrAmbiguousPathGenerator;
// ties are never broken by order. DefaultPathGenerator is returned when no
// candidate has a priority above PriorityNone.
func (p *Plugins) SelectPathGenerator(storage string) (PathGenerator, error) {
	var best PathGenerator = DefaultPathGenerator{}
	bestName := "default"
	bestPriority := PriorityNone

	for _, e := range p.PathGenerators.Entries() {
		priority := e.Plugin.Priority(storage)
		if priority == PriorityNone || math.IsNaN(priority) {
			continue
		}

		if priority == bestPriority {
			return nil, fmt.Errorf("%w: [%s] and [%s] both have priority %v for storage [%s]",
				ErrAmbiguousPathGenerator, e.Name, bestName, priority, storage)
		}

		if priority > bestPriority {
			best = e.Plugin
			bestName = e.Name
			bestPriority = priority
		}
	}

	return best, nil
}

// SanitizeFileName reduces name to a single path segment safe for any backend.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.Trim(b.String(), ".")
	if clean == "" {
		return "file"
	}
	return clean
}

func newUUID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
