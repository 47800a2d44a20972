//go:build darwin && cgo

package darwin

import "github.com/replaykit/replay-cli/internal/platform"

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		return &platform.Provider{
			Inputter:      NewInputter(),
			WindowManager: NewWindowManager(),
			Screen:        NewScreen(),
		}, nil
	}
}
