// Package config resolves the single storage-root setting every CLI command
// needs, with the teacher's layered precedence kept verbatim (flag > env >
// project file > global file > default) from internal/config/merge.go,
// narrowed from the teacher's multi-field Merged (outRoot, redaction,
// runtime strategy chain) down to the one field spec.md §6 actually needs.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StorageRootEnvVar is the single environment-variable boundary spec.md
	// §6 requires: exactly one function reads it.
	StorageRootEnvVar = "MATCHLAB_STORAGE_ROOT"

	DefaultProjectConfigPath = "matchlab.config.json"
	defaultStorageRoot       = ".matchlab"
)

// ProjectConfigV1 is the minimal per-repo config file `matchctl init` writes.
type ProjectConfigV1 struct {
	SchemaVersion int    `json:"schemaVersion"`
	StorageRoot   string `json:"storageRoot"`
}

// Resolved carries the storage root and which precedence tier supplied it,
// for operator-facing diagnostics (`matchctl doctor`-equivalent logging).
type Resolved struct {
	StorageRoot string
	Source      string
}

func defaultGlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".matchlab", "config.json"), nil
}

// ResolveStorageRoot implements spec.md §6's single-resolver discipline:
// the --outDir flag value, then MATCHLAB_STORAGE_ROOT, then matchlab.config.json in
// the working directory, then ~/.matchlab/config.json, then ".matchlab".
func ResolveStorageRoot(flagValue string) (Resolved, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return Resolved{StorageRoot: v, Source: "flag"}, nil
	}
	if v := strings.TrimSpace(os.Getenv(StorageRootEnvVar)); v != "" {
		return Resolved{StorageRoot: v, Source: "env:" + StorageRootEnvVar}, nil
	}
	if cfg, ok, err := loadProjectConfig(DefaultProjectConfigPath); err != nil {
		return Resolved{}, err
	} else if ok && strings.TrimSpace(cfg.StorageRoot) != "" {
		return Resolved{StorageRoot: cfg.StorageRoot, Source: DefaultProjectConfigPath}, nil
	}
	globalPath, err := defaultGlobalConfigPath()
	if err != nil {
		return Resolved{}, err
	}
	if cfg, ok, err := loadProjectConfig(globalPath); err != nil {
		return Resolved{}, err
	} else if ok && strings.TrimSpace(cfg.StorageRoot) != "" {
		return Resolved{StorageRoot: cfg.StorageRoot, Source: globalPath}, nil
	}
	return Resolved{StorageRoot: defaultStorageRoot, Source: "default"}, nil
}

func loadProjectConfig(path string) (ProjectConfigV1, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectConfigV1{}, false, nil
		}
		return ProjectConfigV1{}, false, err
	}
	var cfg ProjectConfigV1
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ProjectConfigV1{}, false, err
	}
	return cfg, true, nil
}

// InitProject writes a fresh matchlab.config.json pinning storageRoot, and
// ensures the directory tree under it exists.
func InitProject(configPath, storageRoot string) (*ProjectConfigV1, bool, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = DefaultProjectConfigPath
	}
	if strings.TrimSpace(storageRoot) == "" {
		storageRoot = defaultStorageRoot
	}
	if err := os.MkdirAll(filepath.Join(storageRoot, "tournaments"), 0o755); err != nil {
		return nil, false, err
	}
	created := false
	if _, err := os.Stat(configPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, false, err
		}
		cfg := ProjectConfigV1{SchemaVersion: 1, StorageRoot: storageRoot}
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, false, err
		}
		if err := os.WriteFile(configPath, append(b, '\n'), 0o644); err != nil {
			return nil, false, err
		}
		created = true
	}
	cfg, _, err := loadProjectConfig(configPath)
	if err != nil {
		return nil, false, err
	}
	return &cfg, created, nil
}
