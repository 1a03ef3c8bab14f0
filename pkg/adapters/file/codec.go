package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/hmm/pkg/domain"
	"gopkg.in/yaml.v3"
)

func formatOf(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return YAML, true
	case ".json":
		return JSON, true
	}
	return "", false
}

// Encode serializes a spec in the given format.
func Encode(spec *domain.ModelSpec, f Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case JSON:
		data, err = json.MarshalIndent(spec, "", "  ")
	default:
		data, err = yaml.Marshal(spec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model: %w", err)
	}
	return data, nil
}

// ReadFile decodes a spec from a .yaml, .yml or .json file.
func ReadFile(path string) (*domain.ModelSpec, error) {
	var spec domain.ModelSpec
	if err := decodeFile(path, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// WriteFile encodes a spec using the format implied by the extension of path.
func WriteFile(path string, spec *domain.ModelSpec) error {
	f, ok := formatOf(filepath.Ext(path))
	if !ok {
		return fmt.Errorf("unsupported model file extension %q", filepath.Ext(path))
	}
	data, err := Encode(spec, f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadSequences decodes a list of observation sequences, each a list of
// frames, from a YAML or JSON file.
func ReadSequences(path string) ([][][]float64, error) {
	var seqs [][][]float64
	if err := decodeFile(path, &seqs); err != nil {
		return nil, err
	}
	return seqs, nil
}

func decodeFile(path string, out any) error {
	f, ok := formatOf(filepath.Ext(path))
	if !ok {
		return fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch f {
	case JSON:
		err = json.Unmarshal(data, out)
	default:
		err = yaml.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// WriteSequences encodes observation sequences using the format implied by
// the extension of path. It is the inverse of ReadSequences.
func WriteSequences(path string, seqs [][][]float64) error {
	f, ok := formatOf(filepath.Ext(path))
	if !ok {
		return fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
	var (
		data []byte
		err  error
	)
	switch f {
	case JSON:
		data, err = json.Marshal(seqs)
	default:
		data, err = yaml.Marshal(seqs)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal sequences: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
