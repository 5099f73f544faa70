package graph

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseFile loads a workflow document from disk without validating it.
// Callers compile it with Compile, which runs the full validation pass.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, warperrors.NewParseError(path, 0, err)
	}
	return ParseBytes(data, path)
}

// ParseBytes decodes a workflow document from raw YAML. The path is used
// only for error reporting.
func ParseBytes(data []byte, path string) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, warperrors.NewParseError(path, extractLine(err), err)
	}
	return &doc, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
