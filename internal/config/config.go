// Package config provides unified configuration for the node and
// coordinator services.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StorageConfig describes where a node loads column data from.
type StorageConfig struct {
	// Type is the storage backend: local, s3.
	Type string `json:"type" yaml:"type"`

	// Path is the local storage root (for type "local").
	Path string `json:"path" yaml:"path"`

	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// HTTPConfig holds HTTP server timeouts shared by both services.
type HTTPConfig struct {
	Addr         string        `json:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// NodeConfig holds configuration for a single crackstore node.
type NodeConfig struct {
	// NodeID identifies this node to the coordinator and in logs.
	NodeID string `json:"node_id" yaml:"node_id"`

	// DataDir is the base directory for node-local working state.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	HTTP HTTPConfig `json:"http" yaml:"http"`

	Storage StorageConfig `json:"storage" yaml:"storage"`

	// DefaultExtraCapacity is the headroom reserved for pending inserts
	// on every column loaded without an explicit override; negative
	// selects the engine's own default (size/10, floor 1000).
	DefaultExtraCapacity int `json:"default_extra_capacity" yaml:"default_extra_capacity"`

	// MetricsWindow bounds how long a column's query-frequency stats are
	// retained before observability.NodeMetrics prunes them.
	MetricsWindow time.Duration `json:"metrics_window" yaml:"metrics_window"`
}

// NodeEndpoint is one statically registered node, as the coordinator
// knows it.
type NodeEndpoint struct {
	ID   string `json:"id" yaml:"id"`
	Addr string `json:"addr" yaml:"addr"`
}

// CoordinatorConfig holds configuration for the fan-out coordinator.
type CoordinatorConfig struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`

	HTTP HTTPConfig `json:"http" yaml:"http"`

	// CatalogPath is the sqlite database tracking column-to-node
	// placement decisions.
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`

	// Nodes is the static node registry loaded at startup. Nodes may
	// also self-register at runtime via the coordinator's register
	// endpoint; both sources feed the same catalog.
	Nodes []NodeEndpoint `json:"nodes" yaml:"nodes"`

	// FanoutTimeout bounds how long the coordinator waits for every
	// node's RangeQuery response before treating stragglers as failed.
	FanoutTimeout time.Duration `json:"fanout_timeout" yaml:"fanout_timeout"`

	// FanoutConcurrency caps how many nodes are queried in parallel.
	FanoutConcurrency int `json:"fanout_concurrency" yaml:"fanout_concurrency"`
}

// DefaultNodeConfig returns the default node configuration for local
// development.
func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		NodeID:  "node-1",
		DataDir: "./data/crackstore-node",
		HTTP: HTTPConfig{
			Addr:         ":8180",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Storage: StorageConfig{
			Type: "local",
		},
		DefaultExtraCapacity: -1,
		MetricsWindow:        1 * time.Hour,
	}
}

// DefaultCoordinatorConfig returns the default coordinator configuration
// for local development.
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		DataDir: "./data/crackstore-coordinator",
		HTTP: HTTPConfig{
			Addr:         ":8280",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		FanoutTimeout:     10 * time.Second,
		FanoutConcurrency: 8,
	}
}

// Resolve fills in DataDir-derived defaults left empty by the caller.
func (c *NodeConfig) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/crackstore-node"
	}
	if c.Storage.Type == "local" && c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "columns")
	}
	if c.DefaultExtraCapacity == 0 {
		c.DefaultExtraCapacity = -1
	}
}

// Resolve fills in DataDir-derived defaults left empty by the caller.
func (c *CoordinatorConfig) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/crackstore-coordinator"
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(c.DataDir, "catalog.db")
	}
}

// Validate checks the node configuration for obvious misconfiguration.
func (c *NodeConfig) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage type is s3")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

// Validate checks the coordinator configuration for obvious
// misconfiguration.
func (c *CoordinatorConfig) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.FanoutConcurrency <= 0 {
		return fmt.Errorf("fanout_concurrency must be positive, got %d", c.FanoutConcurrency)
	}
	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.ID == "" || n.Addr == "" {
			return fmt.Errorf("every statically registered node needs both an id and an addr")
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id in static registry: %s", n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}

// LoadNodeConfigFile loads a NodeConfig from a YAML or JSON file, starting
// from DefaultNodeConfig so unspecified fields keep their defaults.
func LoadNodeConfigFile(path string) (*NodeConfig, error) {
	cfg := DefaultNodeConfig()
	if err := loadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCoordinatorConfigFile loads a CoordinatorConfig from a YAML or JSON
// file, starting from DefaultCoordinatorConfig.
func LoadCoordinatorConfigFile(path string) (*CoordinatorConfig, error) {
	cfg := DefaultCoordinatorConfig()
	if err := loadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadInto(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
	return nil
}

// EnsureDirectories creates every directory the node config references.
func (c *NodeConfig) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}
	return ensureDirectories(dirs)
}

// EnsureDirectories creates every directory the coordinator config
// references.
func (c *CoordinatorConfig) EnsureDirectories() error {
	return ensureDirectories([]string{c.DataDir, filepath.Dir(c.CatalogPath)})
}

func ensureDirectories(dirs []string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
