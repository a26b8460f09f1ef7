package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flowcanvas/pkg/errors"
)

// Encoding formats accepted by Read and Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// =============================================================================
// Flow Serialization API
// =============================================================================

// Marshal converts a flow to indented JSON bytes.
func Marshal(f *Flow) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(f, &buf, FormatJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes JSON bytes into a flow.
func Unmarshal(data []byte) (*Flow, error) {
	return Read(bytes.NewReader(data), FormatJSON)
}

// ReadFile reads a flow from a JSON or YAML file; the format follows the
// file extension (.yaml/.yml, anything else is JSON).
func ReadFile(path string) (*Flow, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, FormatForPath(path))
}

// WriteFile writes a flow to path in the format implied by its extension.
func WriteFile(fl *Flow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(fl, f, FormatForPath(path))
}

// Read decodes a flow in the given format and checks its structure.
func Read(r io.Reader, format string) (*Flow, error) {
	var fl Flow
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&fl); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFlow, err, "decode json")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&fl); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFlow, err, "decode yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown flow format %q", format)
	}
	if err := fl.Validate(); err != nil {
		return nil, err
	}
	return &fl, nil
}

// Write encodes a flow in the given format.
func Write(fl *Flow, w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fl); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(fl); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown flow format %q", format)
	}
	return nil
}

// FormatForPath picks the encoding for a file name.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// =============================================================================
// Structural Checks
// =============================================================================

// Validate checks the parts of a flow that decoding cannot: a trigger must be
// present and every step needs a valid, unique name. Step types are checked
// by the tree constructor, which owns the list of supported discriminants.
func (f *Flow) Validate() error {
	if f.Version.Trigger == nil {
		return errors.New(errors.ErrCodeInvalidFlow, "flow %q has no trigger", f.ID)
	}
	seen := make(map[string]bool)
	return validateStep(f.Version.Trigger, seen)
}

func validateStep(s *Step, seen map[string]bool) error {
	if s == nil {
		return nil
	}
	if err := errors.ValidateStepName(s.Name); err != nil {
		return err
	}
	if seen[s.Name] {
		return errors.New(errors.ErrCodeDuplicateStep, "step name %q used more than once", s.Name)
	}
	seen[s.Name] = true
	for _, child := range []*Step{s.FirstLoopAction, s.OnSuccessAction, s.OnFailureAction, s.NextAction} {
		if err := validateStep(child, seen); err != nil {
			return err
		}
	}
	return nil
}
