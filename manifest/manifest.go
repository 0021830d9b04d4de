// Package manifest reads YAML dataset manifests describing a conversation dataset:
// where its train and validation splits live and how to normalize its records.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/skosovsky/sftkit"
	"github.com/skosovsky/sftkit/loader"

	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest indicates the manifest file is malformed or misses required fields.
var ErrInvalidManifest = errors.New("manifest: manifest file is malformed")

// fileManifest is the YAML manifest shape.
type fileManifest struct {
	sftkit.DatasetConfig `yaml:",inline"`
}

// ParseBytes parses a YAML manifest. Path fields may reference environment variables ($VAR or ${VAR}).
// chat_key defaults to sftkit.DefaultChatKey.
func ParseBytes(data []byte) (sftkit.DatasetConfig, error) {
	var m fileManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return sftkit.DatasetConfig{}, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return buildConfig(&m)
}

// ParseFile reads and parses a manifest file. Relative local paths are resolved against the manifest directory.
func ParseFile(path string) (sftkit.DatasetConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return sftkit.DatasetConfig{}, fmt.Errorf("manifest: read file: %w", err)
	}
	cfg, err := ParseBytes(data)
	if err != nil {
		return sftkit.DatasetConfig{}, err
	}
	dir := filepath.Dir(path)
	cfg.TrainPath = resolve(dir, cfg.TrainPath)
	cfg.ValPath = resolve(dir, cfg.ValPath)
	return cfg, nil
}

// ParseFS reads and parses a manifest from fs.FS (e.g. embed.FS). Paths are returned as written.
func ParseFS(fsys fs.FS, name string) (sftkit.DatasetConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return sftkit.DatasetConfig{}, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data)
}

func buildConfig(m *fileManifest) (sftkit.DatasetConfig, error) {
	cfg := m.DatasetConfig
	cfg.TrainPath = strings.TrimSpace(os.ExpandEnv(cfg.TrainPath))
	cfg.ValPath = strings.TrimSpace(os.ExpandEnv(cfg.ValPath))
	if cfg.TrainPath == "" {
		return sftkit.DatasetConfig{}, fmt.Errorf("%w: missing train_path", ErrInvalidManifest)
	}
	if cfg.ChatKey == "" {
		cfg.ChatKey = sftkit.DefaultChatKey
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || loader.IsRemote(p) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
