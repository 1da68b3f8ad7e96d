package kernelspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/tailscale/hujson"
)

// SpecFileName is the descriptor file inside every kernelspec directory.
const SpecFileName = "kernel.json"

// ReadSpecFile parses a kernel.json file. Hand-edited files with comments or
// trailing commas are accepted.
func ReadSpecFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var spec Spec
	if err := json.Unmarshal(standard, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &spec, nil
}

// EncodeSpec renders spec the way Jupyter writes kernel.json: one-space
// indentation and a trailing newline.
func EncodeSpec(spec *Spec) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(spec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSpecFile replaces the file at path with spec. The new content is
// written to a temporary sibling first and renamed into place.
func WriteSpecFile(path string, spec *Spec) error {
	data, err := EncodeSpec(spec)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	log.Debug("Writing temporary file", "path", tmpName)
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	log.Info("Updating", "path", path)
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
