// Package configloader reads the YAML configuration files of the ai packages.
package configloader

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Loader resolves configuration files relative to a base directory.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader rooted at baseDir. An empty baseDir resolves
// paths against the working directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// Load reads a YAML file and decodes it into target. Unknown fields are
// rejected so that a typo in a deployed table fails at startup instead of
// being silently ignored.
func (l *Loader) Load(subPath string, target any) error {
	data, err := l.ReadFileWithFallback(subPath)
	if err != nil {
		return errors.Wrapf(err, "read file %s", subPath)
	}
	return errors.Wrapf(Decode(data, target), "decode %s", subPath)
}

// Decode strictly decodes YAML bytes into target.
func Decode(data []byte, target any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return errors.Wrap(err, "unmarshal YAML")
	}
	return nil
}

// ReadFileWithFallback reads path relative to baseDir (absolute paths are
// used as-is), then falls back to the executable's directory for packaged
// builds.
func (l *Loader) ReadFileWithFallback(path string) ([]byte, error) {
	absPath := path
	if !filepath.IsAbs(path) {
		absPath = filepath.Join(l.baseDir, path)
	}
	data, err := os.ReadFile(absPath)
	if err == nil || filepath.IsAbs(path) {
		return data, err
	}

	execPath, execErr := os.Executable()
	if execErr != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(filepath.Dir(execPath), l.baseDir, path))
}
