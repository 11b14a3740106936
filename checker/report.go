// ABOUTME: Scan report and its JSON and YAML encodings
// ABOUTME: Each report carries a unique scan ID so repeated scans can be told apart

package checker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for report formats other than json and yaml
var ErrUnknownFormat = errors.New("unknown report format")

// Format is a report encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a format name, case-insensitively
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Report is the outcome of scanning a directory
type Report struct {
	ID        string        `json:"id" yaml:"id"`
	Game      string        `json:"game" yaml:"game"`
	Dir       string        `json:"dir" yaml:"dir"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
	Results   []Result      `json:"results" yaml:"results"`
}

// WarningCount returns the number of warnings across all results
func (r *Report) WarningCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Warnings)
	}
	return n
}

// WithWarning returns the results that raised w
func (r *Report) WithWarning(w Warning) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.HasWarning(w) {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for the plugin with the given file name
func (r *Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Write encodes the report in the given format
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatYAML:
		return r.WriteYAML(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON encodes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// WriteYAML encodes the report as YAML
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return enc.Close()
}

// ReadJSON decodes a report written by WriteJSON
func ReadJSON(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode JSON report: %w", err)
	}
	return &r, nil
}
