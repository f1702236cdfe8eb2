package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name looked up by FindFile.
const FileName = "procpipe.yaml"

// File is the on-disk configuration of the procpipe command.
type File struct {
	ChunkSize       int               `yaml:"chunk_size"`
	KillGracePeriod time.Duration     `yaml:"kill_grace_period"`
	SearchPaths     []string          `yaml:"search_paths"`
	Verbose         bool              `yaml:"verbose"`
	Env             map[string]string `yaml:"env"`
}

// LoadFile parses the YAML file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if f.ChunkSize < 0 {
		return nil, fmt.Errorf("parse config %s: chunk_size must not be negative", path)
	}

	if f.KillGracePeriod < 0 {
		return nil, fmt.Errorf("parse config %s: kill_grace_period must not be negative", path)
	}

	return &f, nil
}

// FindFile returns the first existing FileName in dirs. An empty string and
// a nil error mean no file was found.
func FindFile(dirs ...string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}

		path := filepath.Join(dir, FileName)

		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}

	return "", nil
}

// ApplyTo copies the file settings into o. Zero values leave o unchanged.
func (f *File) ApplyTo(o *Options) {
	if f.ChunkSize > 0 {
		o.ChunkSize = f.ChunkSize
	}

	if f.KillGracePeriod > 0 {
		o.KillGracePeriod = f.KillGracePeriod
	}

	o.SearchPaths = append(o.SearchPaths, f.SearchPaths...)
}
