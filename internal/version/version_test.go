package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	assert.Equal(t, "1.2.0", Info{Version: "1.2.0"}.String())
	assert.Equal(t, "1.2.0-dirty", Info{Version: "1.2.0", Dirty: true}.String())
}

func TestGet(t *testing.T) {
	oldVersion, oldDirty := Version, Dirty
	t.Cleanup(func() { Version, Dirty = oldVersion, oldDirty })

	Version, Dirty = "0.3.1", "true"
	info := Get()

	assert.Equal(t, "0.3.1", info.Version)
	assert.True(t, info.Dirty)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfo_Full(t *testing.T) {
	full := Info{Version: "0.3.1", Commit: "abc123", BuildDate: "2026-01-02T00:00:00Z"}.Full()
	for _, want := range []string{"tritonscrape 0.3.1", "abc123", "2026-01-02T00:00:00Z"} {
		assert.Contains(t, full, want)
	}
}
