package storage

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ruteri/storageitem-service/interfaces"
)

// Registry maps storage names to backends and creates items bound to them.
// It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	backends    map[string]interfaces.StorageBackend
	defaultName string
	log         *slog.Logger
}

// NewRegistry creates an empty registry. defaultName may be empty.
func NewRegistry(defaultName string, log *slog.Logger) *Registry {
	return &Registry{
		backends:    make(map[string]interfaces.StorageBackend),
		defaultName: defaultName,
		log:         log,
	}
}

// Add registers backend under name.
func (r *Registry) Add(name string, backend interfaces.StorageBackend) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("storage name cannot be blank")
	}
	if backend == nil {
		return fmt.Errorf("storage [%s]: backend cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[name]; ok {
		return fmt.Errorf("storage [%s] already registered", name)
	}
	r.backends[name] = backend

	r.log.Info("Registered storage",
		slog.String("storage", name),
		slog.String("backend_name", backend.Name()),
		slog.String("locationURI", backend.LocationURI()))
	return nil
}

// Backend returns the backend registered under name.
func (r *Registry) Backend(name string) (interfaces.StorageBackend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: [%s]", interfaces.ErrUnknownStorage, name)
	}
	return backend, nil
}

// CreateIn creates an unsaved item bound to the named storage.
func (r *Registry) CreateIn(name string) (*interfaces.StorageItem, error) {
	backend, err := r.Backend(name)
	if err != nil {
		return nil, err
	}
	return interfaces.NewStorageItem(name, backend), nil
}

// DefaultStorage returns the configured default storage name.
func (r *Registry) DefaultStorage() string {
	return r.defaultName
}

// Names returns the registered storage names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildRegistry creates one backend per configured storage. A storage with a single
// location gets that backend; several locations form a mirrored MultiStorageBackend.
func BuildRegistry(factory interfaces.StorageBackendFactory, storages map[string][]string, defaultName string, log *slog.Logger) (*Registry, error) {
	registry := NewRegistry(defaultName, log)

	names := make([]string, 0, len(storages))
	for name := range storages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		uris := storages[name]
		locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
		for _, uri := range uris {
			location, err := interfaces.NewStorageBackendLocation(uri)
			if err != nil {
				return nil, fmt.Errorf("storage [%s]: %w", name, err)
			}
			locations = append(locations, location)
		}

		var backend interfaces.StorageBackend
		var err error
		switch len(locations) {
		case 0:
			return nil, fmt.Errorf("storage [%s]: no locations configured", name)
		case 1:
			backend, err = factory.StorageBackendFor(locations[0])
		default:
			backend, err = factory.CreateMultiBackend(locations)
		}
		if err != nil {
			return nil, fmt.Errorf("storage [%s]: %w", name, err)
		}

		if err := registry.Add(name, backend); err != nil {
			return nil, err
		}
	}

	if defaultName != "" {
		if _, err := registry.Backend(defaultName); err != nil {
			return nil, fmt.Errorf("default storage: %w", err)
		}
	}

	return registry, nil
}
