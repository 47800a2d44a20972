package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/replaykit/replay-cli/internal/workflow"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "workflows.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(name string) *workflow.Workflow {
	x, y := 10.0, 20.0
	return &workflow.Workflow{
		Name: name,
		Steps: []workflow.Step{
			{Action: "click", X: &x, Y: &y, ScreenW: 1920, ScreenH: 1080},
			{Action: "type", Text: "hello"},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := tempStore(t)

	id, err := s.Save(sample("login"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	wf, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if wf.Name != "login" || len(wf.Steps) != 2 {
		t.Fatalf("wf = %+v", wf)
	}
	if wf.Steps[0].X == nil || *wf.Steps[0].X != 10 {
		t.Fatalf("coordinates did not round-trip: %+v", wf.Steps[0])
	}
	if wf.Steps[1].Text != "hello" {
		t.Fatalf("steps[1] = %+v", wf.Steps[1])
	}
}

func TestGetMissing(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Get(12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.Save(sample(name)); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	sums, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sums) != 3 {
		t.Fatalf("got %d workflows, want 3", len(sums))
	}
	for _, sum := range sums {
		if sum.StepCount != 2 {
			t.Fatalf("summary %+v has wrong step count", sum)
		}
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	id, err := s.Save(sample("gone"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted workflow still loads: %v", err)
	}
	if err := s.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}
