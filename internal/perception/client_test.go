package perception

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/replaykit/replay-cli/internal/safety"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second)
}

func foundHandler(t *testing.T, x, y int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/automation/find-text" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req struct {
			Text    string  `json:"text"`
			Timeout float64 `json:"timeout"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"found":      true,
			"center":     []int{x, y},
			"bbox":       map[string]int{"x": x - 20, "y": y - 8, "width": 40, "height": 16},
			"text":       req.Text,
			"confidence": 0.93,
		})
	}
}

func TestFindTextFound(t *testing.T) {
	c := newTestService(t, foundHandler(t, 640, 480))

	match, err := c.FindText(context.Background(), "Submit", 5)
	if err != nil {
		t.Fatalf("FindText: %v", err)
	}
	if !match.Found {
		t.Fatal("match not found")
	}
	if match.Center.X != 640 || match.Center.Y != 480 {
		t.Fatalf("center = %+v", match.Center)
	}
	if match.BBox != [4]int{620, 472, 40, 16} {
		t.Fatalf("bbox = %v", match.BBox)
	}
	if match.Confidence != 0.93 {
		t.Fatalf("confidence = %v", match.Confidence)
	}
}

func TestFindTextNotFoundNullFields(t *testing.T) {
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		// The service sends nulls for center/bbox when nothing matched.
		w.Write([]byte(`{"found": false, "center": null, "bbox": null, "text": null, "confidence": 0.0}`))
	})

	match, err := c.FindText(context.Background(), "Ghost", 1)
	if err != nil {
		t.Fatalf("FindText: %v", err)
	}
	if match.Found {
		t.Fatal("match reported found")
	}
}

func TestFindTextRetriesOnceOnFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		foundHandler(t, 10, 10)(w, r)
	})

	match, err := c.FindText(context.Background(), "Retry", 1)
	if err != nil {
		t.Fatalf("FindText after retry: %v", err)
	}
	if !match.Found {
		t.Fatal("match not found after retry")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("service called %d times, want 2", got)
	}
}

func TestFindTextSurfacesErrorAfterRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FindText(context.Background(), "Down", 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("service called %d times, want exactly 2 (one retry)", got)
	}
}

func TestFindTextUnreachableService(t *testing.T) {
	// Point at a closed port: connection refused on every attempt.
	c := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := c.FindText(context.Background(), "x", 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestWaitForTextTimesOut(t *testing.T) {
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"found": false, "center": null, "bbox": null, "confidence": 0}`))
	})

	timeout := 2 * time.Second
	start := time.Now()
	_, err := c.WaitForText(context.Background(), safety.NewToken(), "Success", timeout, 500*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}
	if elapsed < timeout {
		t.Fatalf("gave up after %s, before the %s timeout", elapsed, timeout)
	}
	if elapsed > timeout+MinPollInterval+time.Second {
		t.Fatalf("took %s, more than timeout plus one poll interval", elapsed)
	}
}

func TestWaitForTextFindsEventually(t *testing.T) {
	var calls atomic.Int32
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Write([]byte(`{"found": false, "center": null, "bbox": null, "confidence": 0}`))
			return
		}
		foundHandler(t, 50, 60)(w, r)
	})

	match, err := c.WaitForText(context.Background(), safety.NewToken(), "Done", 10*time.Second, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForText: %v", err)
	}
	if !match.Found || match.Center.X != 50 {
		t.Fatalf("match = %+v", match)
	}
}

func TestWaitForTextGone(t *testing.T) {
	var calls atomic.Int32
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			foundHandler(t, 5, 5)(w, r)
			return
		}
		w.Write([]byte(`{"found": false, "center": null, "bbox": null, "confidence": 0}`))
	})

	_, err := c.WaitForTextGone(context.Background(), safety.NewToken(), "Loading", 10*time.Second, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForTextGone: %v", err)
	}
}

func TestWaitForTextCancelledMidPoll(t *testing.T) {
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"found": false, "center": null, "bbox": null, "confidence": 0}`))
	})

	token := safety.NewToken()
	go func() {
		time.Sleep(100 * time.Millisecond)
		token.Cancel()
	}()

	start := time.Now()
	_, err := c.WaitForText(context.Background(), token, "Never", time.Minute, 500*time.Millisecond)
	if !errors.Is(err, safety.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation did not unwind promptly")
	}
}

func TestWaitForTextSwallowsServiceErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 4 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		foundHandler(t, 1, 2)(w, r)
	})

	match, err := c.WaitForText(context.Background(), safety.NewToken(), "Flaky", 30*time.Second, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForText should outlast transient service errors, got %v", err)
	}
	if !match.Found {
		t.Fatal("match not found")
	}
}
