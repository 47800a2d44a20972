// Package workflow defines the recorded step model the replay engine
// interprets. Workflows arrive from the store (JSON, as the recorder saved
// them) or from files (YAML or JSON); both decode into the same Step shape.
// The engine treats a loaded workflow as read-only.
package workflow

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyEvent is one entry of a literal key-event sequence captured at record
// time. Kind "char" is a typed character; kind "key" is a named key edge
// with Down marking press (true) or release (false).
type KeyEvent struct {
	Kind string `yaml:"kind"           json:"kind"`
	Char string `yaml:"char,omitempty" json:"char,omitempty"`
	Key  string `yaml:"key,omitempty"  json:"key,omitempty"`
	Down bool   `yaml:"down,omitempty" json:"down,omitempty"`
}

// Step is one recorded action. Pointer fields distinguish "absent" from
// zero: a click at x=0 is valid, a click with no coordinates is not.
// Coordinates are in the recorded resolution (ScreenW × ScreenH) and are
// rescaled to the live display immediately before every pointer operation.
type Step struct {
	Action      string `yaml:"action"                json:"action"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	X    *float64 `yaml:"x,omitempty"    json:"x,omitempty"`
	Y    *float64 `yaml:"y,omitempty"    json:"y,omitempty"`
	EndX *float64 `yaml:"endX,omitempty" json:"end_x,omitempty"`
	EndY *float64 `yaml:"endY,omitempty" json:"end_y,omitempty"`

	FindByText string `yaml:"findByText,omitempty" json:"find_by_text,omitempty"`

	AppName     string `yaml:"appName,omitempty"     json:"app_name,omitempty"`
	AppBundleID string `yaml:"appBundleId,omitempty" json:"app_bundle_id,omitempty"`
	ScreenW     int    `yaml:"screenW,omitempty"     json:"screen_w,omitempty"`
	ScreenH     int    `yaml:"screenH,omitempty"     json:"screen_h,omitempty"`

	Button string `yaml:"button,omitempty" json:"button,omitempty"`
	Clicks int    `yaml:"clicks,omitempty" json:"clicks,omitempty"`

	Text        string     `yaml:"text,omitempty"        json:"text,omitempty"`
	Keys        []string   `yaml:"keys,omitempty"        json:"keys,omitempty"`
	KeySequence []KeyEvent `yaml:"keySequence,omitempty" json:"key_sequence,omitempty"`

	ScrollAmount int     `yaml:"scrollAmount,omitempty" json:"scroll_amount,omitempty"`
	ScrollDeltaY float64 `yaml:"scrollDeltaY,omitempty" json:"scroll_dy,omitempty"`

	DurationMs      int     `yaml:"durationMs,omitempty"      json:"duration_ms,omitempty"`
	TimeoutSeconds  float64 `yaml:"timeoutSeconds,omitempty"  json:"timeout,omitempty"`
	CheckIntervalMs int     `yaml:"checkIntervalMs,omitempty" json:"check_interval_ms,omitempty"`

	MaxRetries      *int `yaml:"maxRetries,omitempty"      json:"max_retries,omitempty"`
	RetryDelayMs    *int `yaml:"retryDelayMs,omitempty"    json:"retry_delay_ms,omitempty"`
	ContinueOnError bool `yaml:"continueOnError,omitempty" json:"continue_on_error,omitempty"`
}

// Kind returns the step's action kind.
func (s *Step) Kind() ActionKind {
	return ParseActionKind(s.Action)
}

// HasPoint reports whether the step carries usable literal coordinates.
// NaN coordinates (seen in recordings where the tracker lost the pointer)
// count as absent.
func (s *Step) HasPoint() bool {
	if s.X == nil || s.Y == nil {
		return false
	}
	return !math.IsNaN(*s.X) && !math.IsNaN(*s.Y)
}

// HasEndPoint reports whether the step carries a drag-selection end point.
func (s *Step) HasEndPoint() bool {
	if s.EndX == nil || s.EndY == nil {
		return false
	}
	return !math.IsNaN(*s.EndX) && !math.IsNaN(*s.EndY)
}

// Label returns a short human-readable identifier for log lines.
func (s *Step) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Action
}

// Workflow is an ordered list of steps. Order is execution order and the
// list is immutable once execution starts.
type Workflow struct {
	ID    int64  `yaml:"id,omitempty" json:"id,omitempty"`
	Name  string `yaml:"name"         json:"name"`
	Steps []Step `yaml:"steps"        json:"steps"`
}

// DecodeYAML parses a workflow from YAML.
func DecodeYAML(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}
	return &wf, nil
}

// DecodeJSON parses a workflow from JSON, the format the recorder stores.
func DecodeJSON(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow JSON: %w", err)
	}
	return &wf, nil
}

// DecodeStepsJSON parses a bare step list, the shape of the store's steps
// column.
func DecodeStepsJSON(data []byte) ([]Step, error) {
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse steps JSON: %w", err)
	}
	return steps, nil
}

// LoadFile reads a workflow from a YAML or JSON file, chosen by extension.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	var wf *Workflow
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		wf, err = DecodeYAML(data)
	default:
		wf, err = DecodeJSON(data)
	}
	if err != nil {
		return nil, err
	}
	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return wf, nil
}
