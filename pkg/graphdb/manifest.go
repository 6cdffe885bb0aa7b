package graphdb

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StorageKind names which graphstorage.Storage implementation a component
// was persisted with, so EnsureLoaded reconstructs the right representation
// without guessing from the edge shape on disk.
type StorageKind string

const (
	KindAdjacencyList StorageKind = "adjacency_list"
	KindLinearChain   StorageKind = "linear_chain"
)

// Manifest describes one component's implementation choice and a cached
// statistics snapshot. Stored as YAML per component directory.
type Manifest struct {
	Kind      StorageKind `yaml:"kind"`
	EdgeCount int         `yaml:"edge_count"`
	AvgFanOut float64     `yaml:"avg_fan_out"`
	MaxDepth  int         `yaml:"max_depth"`
	Cyclic    bool        `yaml:"cyclic"`
}

const manifestFileName = "manifest.yaml"

func readManifest(componentDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(componentDir, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestUnreadable, componentDir, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestUnreadable, componentDir, err)
	}
	return &m, nil
}

func writeManifest(componentDir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("graphdb: marshaling manifest: %w", err)
	}
	if err := os.MkdirAll(componentDir, 0o755); err != nil {
		return fmt.Errorf("graphdb: creating component dir %s: %w", componentDir, err)
	}
	return os.WriteFile(filepath.Join(componentDir, manifestFileName), data, 0o644)
}
