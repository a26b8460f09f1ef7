package pipeline

import (
	"bytes"
	"strings"

	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/flow"
)

// ParseFlow decodes a flow from data. format is "json", "yaml" or empty to
// sniff: a body whose first non-space byte is '{' is JSON, anything else YAML.
func ParseFlow(data []byte, format string) (*flow.Flow, error) {
	if format == "" {
		format = sniffFormat(data)
	}
	switch strings.ToLower(format) {
	case flow.FormatJSON, "application/json":
		return flow.Read(bytes.NewReader(data), flow.FormatJSON)
	case flow.FormatYAML, "yml", "application/yaml", "application/x-yaml", "text/yaml":
		return flow.Read(bytes.NewReader(data), flow.FormatYAML)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported flow format %q", format)
}

func sniffFormat(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return flow.FormatJSON
	}
	return flow.FormatYAML
}
