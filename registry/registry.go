package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrDuplicatePlugin is returned when a name is registered twice for one capability.
	ErrDuplicatePlugin = errors.New("plugin already registered")

	// ErrInvalidPlugin is returned for registrations with a blank name or nil factory.
	ErrInvalidPlugin = errors.New("invalid plugin registration")
)

// Capability is an ordered list of named plugin factories for one extension point.
//
// Plugins are discovered from an explicit registration list rather than scanned
// for. Factories take no arguments; each one is invoked at most once, the first
// time Discover runs after its registration, and the instance is kept for the
// lifetime of the Capability. Discover returns instances in registration order.
//
// A Capability is safe for concurrent use.
type Capability[T any] struct {
	name string

	mu        sync.Mutex
	names     []string
	factories []func() T
	instances []T
}

// NewCapability creates an empty capability. name is used in error messages.
func NewCapability[T any](name string) *Capability[T] {
	return &Capability[T]{name: name}
}

// Name returns the capability name.
func (c *Capability[T]) Name() string {
	return c.name
}

// Register appends a plugin factory under name.
func (c *Capability[T]) Register(name string, factory func() T) error {
	if strings.TrimSpace(name) == "" || factory == nil {
		return fmt.Errorf("%w: capability [%s], plugin [%s]", ErrInvalidPlugin, c.name, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.names {
		if existing == name {
			return fmt.Errorf("%w: capability [%s], plugin [%s]", ErrDuplicatePlugin, c.name, name)
		}
	}

	c.names = append(c.names, name)
	c.factories = append(c.factories, factory)
	return nil
}

// MustRegister is like Register but panics on error. Intended for process startup.
func (c *Capability[T]) MustRegister(name string, factory func() T) {
	if err := c.Register(name, factory); err != nil {
		panic(err)
	}
}

// Discover returns one instance per registered plugin, in registration order.
// The returned slice is a copy; instances are shared across calls.
func (c *Capability[T]) Discover() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.instances); i < len(c.factories); i++ {
		c.instances = append(c.instances, c.factories[i]())
	}

	out := make([]T, len(c.instances))
	copy(out, c.instances)
	return out
}

// Entry pairs a discovered plugin with its registration name.
type Entry[T any] struct {
	Name   string
	Plugin T
}

// Entries is like Discover but keeps the registration names.
func (c *Capability[T]) Entries() []Entry[T] {
	plugins := c.Discover()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry[T], len(plugins))
	for i, p := range plugins {
		out[i] = Entry[T]{Name: c.names[i], Plugin: p}
	}
	return out
}

// Names returns the registered plugin names in registration order.
func (c *Capability[T]) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of registered plugins.
func (c *Capability[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}
