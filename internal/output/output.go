// Package output serializes command results to stdout in the format picked
// by the root command's --format flag.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// RunReport is the top-level output of the `run` command.
type RunReport struct {
	RunID      string   `yaml:"runId"                json:"run_id"`
	Workflow   string   `yaml:"workflow"             json:"workflow"`
	State      string   `yaml:"state"                json:"state"`
	StepsTotal int      `yaml:"stepsTotal"           json:"steps_total"`
	StepsDone  int      `yaml:"stepsDone"            json:"steps_done"`
	FailedStep int      `yaml:"failedStep,omitempty" json:"failed_step,omitempty"`
	Error      string   `yaml:"error,omitempty"      json:"error,omitempty"`
	ElapsedMs  int64    `yaml:"elapsedMs"            json:"elapsed_ms"`
	Log        []string `yaml:"log,omitempty"        json:"log,omitempty"`
}

// FindTextReport is the top-level output of the `find-text` command.
type FindTextReport struct {
	Found      bool    `yaml:"found"                json:"found"`
	X          int     `yaml:"x,omitempty"          json:"x,omitempty"`
	Y          int     `yaml:"y,omitempty"          json:"y,omitempty"`
	Text       string  `yaml:"text,omitempty"       json:"text,omitempty"`
	Confidence float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
}

// ValidationReport is the top-level output of the `validate` command.
type ValidationReport struct {
	Workflow string   `yaml:"workflow"           json:"workflow"`
	Steps    int      `yaml:"steps"              json:"steps"`
	Valid    bool     `yaml:"valid"              json:"valid"`
	Problems []string `yaml:"problems,omitempty" json:"problems,omitempty"`
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		if PrettyOutput {
			return PrintPrettyJSON(v)
		}
		return PrintJSON(v)
	case FormatYAML:
		return PrintYAML(v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// PrintJSON serializes v to stdout as compact single-line JSON.
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintPrettyJSON serializes v to stdout as indented JSON.
func PrintPrettyJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintYAML serializes v to stdout as YAML.
func PrintYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
