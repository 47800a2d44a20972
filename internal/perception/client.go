// Package perception is the client for the external find-text service. The
// service captures the screen and runs OCR on its side; this client only
// asks "where is this text right now" and polls for appearance or
// disappearance on top of that single primitive.
package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/replaykit/replay-cli/internal/safety"
	"github.com/replaykit/replay-cli/internal/scale"
)

var (
	// ErrUnavailable marks the service as unreachable or erroring; the
	// caller decides whether to keep polling or fail fast.
	ErrUnavailable = errors.New("perception service unavailable")

	// ErrTargetNotFound marks a text lookup that ran out of time.
	ErrTargetNotFound = errors.New("text not found on screen")
)

const (
	findTextPath = "/api/automation/find-text"

	// MinPollInterval is the floor on how often the service is polled.
	MinPollInterval = 500 * time.Millisecond

	// connection-failure retry backoff
	retryDelay = 250 * time.Millisecond
)

// Match is the service's answer for one lookup.
type Match struct {
	Found      bool
	Center     scale.Point
	BBox       [4]int // x, y, w, h
	Text       string
	Confidence float64
}

// Client talks to the find-text service over HTTP. The request timeout is
// the client's own bound and is independent of any polling deadline the
// caller runs.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, requestTimeout time.Duration) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 8 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type findTextRequest struct {
	Text    string  `json:"text"`
	Timeout float64 `json:"timeout"`
}

type findTextResponse struct {
	Found  bool   `json:"found"`
	Center []int  `json:"center"`
	Text   string `json:"text"`
	BBox   *struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// FindText asks the service to locate text, letting it search for up to
// timeoutSeconds on its side. One failed call is retried once before the
// error is surfaced.
func (c *Client) FindText(ctx context.Context, text string, timeoutSeconds float64) (Match, error) {
	match, err := c.findTextOnce(ctx, text, timeoutSeconds)
	if err == nil {
		return match, nil
	}
	if ctx.Err() != nil {
		return Match{}, err
	}

	select {
	case <-ctx.Done():
		return Match{}, err
	case <-time.After(retryDelay):
	}
	return c.findTextOnce(ctx, text, timeoutSeconds)
}

func (c *Client) findTextOnce(ctx context.Context, text string, timeoutSeconds float64) (Match, error) {
	body, err := json.Marshal(findTextRequest{Text: text, Timeout: timeoutSeconds})
	if err != nil {
		return Match{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+findTextPath, bytes.NewReader(body))
	if err != nil {
		return Match{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return Match{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded findTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Match{}, fmt.Errorf("%w: bad response: %v", ErrUnavailable, err)
	}

	match := Match{
		Found:      decoded.Found,
		Text:       decoded.Text,
		Confidence: decoded.Confidence,
	}
	if len(decoded.Center) == 2 {
		match.Center = scale.Point{X: decoded.Center[0], Y: decoded.Center[1]}
	}
	if decoded.BBox != nil {
		match.BBox = [4]int{decoded.BBox.X, decoded.BBox.Y, decoded.BBox.Width, decoded.BBox.Height}
	}
	return match, nil
}

// WaitForText polls until the text appears or timeout elapses. Per-call
// service errors are swallowed — the screen may simply not be ready — and
// polling continues until the outer deadline. Returns ErrTargetNotFound on
// timeout, safety.ErrCancelled when the token fires mid-wait.
func (c *Client) WaitForText(ctx context.Context, token *safety.Token, text string, timeout, interval time.Duration) (Match, error) {
	return c.pollText(ctx, token, text, timeout, interval, true)
}

// WaitForTextGone polls until the text is no longer found or timeout
// elapses.
func (c *Client) WaitForTextGone(ctx context.Context, token *safety.Token, text string, timeout, interval time.Duration) (Match, error) {
	return c.pollText(ctx, token, text, timeout, interval, false)
}

func (c *Client) pollText(ctx context.Context, token *safety.Token, text string, timeout, interval time.Duration, wantFound bool) (Match, error) {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	deadline := time.Now().Add(timeout)

	// Short per-call bound so one slow OCR pass cannot eat the whole
	// polling budget.
	perCall := interval.Seconds()

	for {
		if err := token.Err(); err != nil {
			return Match{}, err
		}

		match, err := c.FindText(ctx, text, perCall)
		if err == nil && match.Found == wantFound {
			return match, nil
		}
		if ctx.Err() != nil {
			return Match{}, safety.ErrCancelled
		}

		if time.Now().After(deadline) {
			if wantFound {
				return Match{}, fmt.Errorf("%w: %q did not appear within %s", ErrTargetNotFound, text, timeout)
			}
			return Match{}, fmt.Errorf("%w: %q did not disappear within %s", ErrTargetNotFound, text, timeout)
		}

		if err := token.Sleep(interval); err != nil {
			return Match{}, err
		}
	}
}
