// Package browser implements the portal driver on top of chromedp.
package browser

import (
	"time"
)

// Config holds configuration for the Chrome driver.
type Config struct {
	Headless  bool
	ExecPath  string        // Chrome binary; found automatically when empty
	UserAgent string        // Overrides Chrome's default user agent when set
	Width     int           // Window width in pixels
	Height    int           // Window height in pixels
	Startup   time.Duration // Upper bound on browser startup
	Verbose   bool          // Forward chromedp's protocol log to debug logging
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:  true,
		UserAgent: defaultUserAgent,
		Width:     1280,
		Height:    1024,
		Startup:   30 * time.Second,
	}
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
