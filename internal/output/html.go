package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/tritonscrape/internal/logger"
)

// HTMLDir saves raw documents as <dir>/<name>.html.
type HTMLDir struct {
	dir string
}

// NewHTMLDir creates dir if needed.
func NewHTMLDir(dir string) (*HTMLDir, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create html directory: %w", err)
	}
	return &HTMLDir{dir: dir}, nil
}

// Save writes html under a file name derived from name and returns the path.
func (d *HTMLDir) Save(name, html string) (string, error) {
	path := filepath.Join(d.dir, fileName(name)+".html")
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Debug("saved document", "path", path, "size", humanize.Bytes(uint64(len(html))))
	return path, nil
}

// fileName maps name to lower-case letters, digits and dashes.
func fileName(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(sb.String(), "-")
	if out == "" {
		return "document"
	}
	return out
}
