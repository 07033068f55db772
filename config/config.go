// Package config loads the upload service configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultUploadPath     = "/_dari/upload"
	DefaultMaxUploadBytes = 32 << 20

	PathStrategyDefault = "default"
	PathStrategyDated   = "dated"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Locations is a list of storage URIs. In YAML it is either a single string or
// a sequence; more than one location configures a mirrored storage.
type Locations []string

func (l *Locations) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var uri string
		if err := node.Decode(&uri); err != nil {
			return err
		}
		*l = Locations{uri}
		return nil
	case yaml.SequenceNode:
		var uris []string
		if err := node.Decode(&uris); err != nil {
			return err
		}
		*l = uris
		return nil
	default:
		return fmt.Errorf("line %d: storage locations must be a string or a list of strings", node.Line)
	}
}

// Plugins toggles the built-in pipeline plugins.
type Plugins struct {
	Sniff     bool `yaml:"sniff"`
	Digest    bool `yaml:"digest"`
	ImageSize bool `yaml:"image_size"`
	AuditLog  bool `yaml:"audit_log"`
}

type Config struct {
	DefaultStorage string               `yaml:"default_storage"`
	UploadPath     string               `yaml:"upload_path"`
	TempDir        string               `yaml:"temp_dir"`
	MaxUploadBytes int64                `yaml:"max_upload_bytes"`
	MaxFileSize    int64                `yaml:"max_file_size"`
	PathStrategy   string               `yaml:"path_strategy"`
	Storages       map[string]Locations `yaml:"storages"`
	Plugins        Plugins              `yaml:"plugins"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		UploadPath:     DefaultUploadPath,
		MaxUploadBytes: DefaultMaxUploadBytes,
		PathStrategy:   PathStrategyDefault,
		Storages:       map[string]Locations{},
		Plugins: Plugins{
			Sniff:     true,
			Digest:    true,
			ImageSize: true,
			AuditLog:  true,
		},
	}
}

// Load reads and parses a YAML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Storages == nil {
		cfg.Storages = map[string]Locations{}
	}
	return cfg, nil
}

// AddStorageFlags applies repeated name=uri flag values. All URIs given for one
// name replace that storage's file configuration and form a mirror when more
// than one is given.
func (c *Config) AddStorageFlags(values []string) error {
	fromFlags := map[string]Locations{}
	for _, v := range values {
		name, uri, ok := strings.Cut(v, "=")
		name, uri = strings.TrimSpace(name), strings.TrimSpace(uri)
		if !ok || name == "" || uri == "" {
			return fmt.Errorf("%w: storage flag %q must be name=uri", ErrInvalidConfig, v)
		}
		fromFlags[name] = append(fromFlags[name], uri)
	}

	for name, locations := range fromFlags {
		c.Storages[name] = locations
	}
	return nil
}

// StorageURIs returns the storages as plain string lists.
func (c *Config) StorageURIs() map[string][]string {
	out := make(map[string][]string, len(c.Storages))
	for name, locations := range c.Storages {
		out[name] = []string(locations)
	}
	return out
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Storages) == 0 {
		errs = append(errs, errors.New("at least one storage must be configured"))
	}

	names := make([]string, 0, len(c.Storages))
	for name := range c.Storages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("storage names cannot be blank"))
			continue
		}
		if len(c.Storages[name]) == 0 {
			errs = append(errs, fmt.Errorf("storage [%s] has no locations", name))
		}
	}

	if c.DefaultStorage != "" {
		if _, ok := c.Storages[c.DefaultStorage]; !ok {
			errs = append(errs, fmt.Errorf("default storage [%s] is not configured", c.DefaultStorage))
		}
	}

	if !strings.HasPrefix(c.UploadPath, "/") {
		errs = append(errs, fmt.Errorf("upload path %q must start with /", c.UploadPath))
	}

	if c.MaxUploadBytes < 0 || c.MaxFileSize < 0 {
		errs = append(errs, errors.New("size limits cannot be negative"))
	}

	switch c.PathStrategy {
	case "", PathStrategyDefault, PathStrategyDated:
	default:
		errs = append(errs, fmt.Errorf("unknown path strategy %q", c.PathStrategy))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
