package browser

import (
	"os/exec"
	"path/filepath"

	"github.com/jmylchreest/tritonscrape/internal/logger"
)

// Chrome/Chromium binaries in lookup order: PATH names first, then the usual
// install locations per platform.
var chromeCandidates = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath returns the first Chrome binary found, or "" to let chromedp
// fall back to its own lookup.
func FindChromePath() string {
	return findChrome(chromeCandidates, exec.LookPath)
}

func findChrome(candidates []string, lookPath func(string) (string, error)) string {
	for _, name := range candidates {
		path, err := lookPath(name)
		if err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		logger.Debug("found Chrome binary", "name", name, "path", path)
		return path
	}
	logger.Warn("no Chrome binary found, relying on chromedp defaults")
	return ""
}
