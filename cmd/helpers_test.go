package cmd

import "testing"

func TestStringParam(t *testing.T) {
	params := map[string]interface{}{"text": "Submit", "wrong": 7}
	if got := StringParam(params, "text", ""); got != "Submit" {
		t.Errorf("got %q", got)
	}
	if got := StringParam(params, "missing", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	if got := StringParam(params, "wrong", "fallback"); got != "fallback" {
		t.Errorf("wrong type: got %q", got)
	}
}

func TestIntParam(t *testing.T) {
	// JSON numbers decode as float64.
	params := map[string]interface{}{"id": float64(42)}
	if got := IntParam(params, "id", 0); got != 42 {
		t.Errorf("got %d", got)
	}
	if got := IntParam(params, "missing", 7); got != 7 {
		t.Errorf("got %d", got)
	}
}

func TestFloatParam(t *testing.T) {
	params := map[string]interface{}{"timeout": 2.5}
	if got := FloatParam(params, "timeout", 5); got != 2.5 {
		t.Errorf("got %v", got)
	}
	if got := FloatParam(params, "missing", 5); got != 5 {
		t.Errorf("got %v", got)
	}
}

func TestBoolParam(t *testing.T) {
	params := map[string]interface{}{"flag": true}
	if !BoolParam(params, "flag", false) {
		t.Error("flag not read")
	}
	if BoolParam(params, "missing", false) {
		t.Error("missing flag defaulted wrong")
	}
}
