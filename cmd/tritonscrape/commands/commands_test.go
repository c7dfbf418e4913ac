package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tritonscrape/internal/output"
	"github.com/jmylchreest/tritonscrape/pkg/tritonlink"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func applyOptions(t *testing.T, v *viper.Viper) tritonlink.Config {
	t.Helper()
	opts, err := scraperOptions(v)
	require.NoError(t, err)
	cfg := tritonlink.Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// --- Credentials Tests ---

func TestCredentials_FromConfig(t *testing.T) {
	v := newTestViper()
	v.Set(keyUsername, " jdoe ")
	v.Set(keyPassword, "s3cret")

	creds, err := credentials(v, strings.NewReader(""), false)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestCredentials_PasswordFromStdin(t *testing.T) {
	v := newTestViper()
	v.Set(keyUsername, "jdoe")
	v.Set(keyPassword, "ignored")

	creds, err := credentials(v, strings.NewReader("p@ss word\r\nsecond line\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "p@ss word", creds.Password)

	creds, err = credentials(v, strings.NewReader("no-newline"), true)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", creds.Password)
}

func TestCredentials_Missing(t *testing.T) {
	v := newTestViper()
	_, err := credentials(v, strings.NewReader(""), false)
	assert.ErrorContains(t, err, "username")

	v.Set(keyUsername, "jdoe")
	_, err = credentials(v, strings.NewReader("\n"), true)
	assert.ErrorContains(t, err, "password")
}

// --- Options Tests ---

func TestScraperOptions_Defaults(t *testing.T) {
	cfg := applyOptions(t, newTestViper())

	def := tritonlink.DefaultConfig()
	assert.Equal(t, def.Endpoints, cfg.Endpoints)
	assert.Equal(t, def.Timeouts, cfg.Timeouts)
	assert.Equal(t, def.ReportTarget, cfg.ReportTarget)
	assert.Zero(t, cfg.MinContentBytes)
}

func TestScraperOptions_Overrides(t *testing.T) {
	v := newTestViper()
	v.Set("timeouts.login", "30s")
	v.Set("endpoints.portal", "http://localhost:8080/")
	v.Set(keyMinContent, "4KB")

	cfg := applyOptions(t, v)

	assert.Equal(t, 30*time.Second, cfg.Timeouts.Login)
	assert.Equal(t, tritonlink.DefaultTimeouts().OpenPortal, cfg.Timeouts.OpenPortal)
	assert.Equal(t, "http://localhost:8080/", cfg.Endpoints.Portal)
	assert.Equal(t, 4000, cfg.MinContentBytes)
}

func TestScraperOptions_InvalidMinContent(t *testing.T) {
	v := newTestViper()
	v.Set(keyMinContent, "lots")
	_, err := scraperOptions(v)
	assert.ErrorContains(t, err, "invalid min content size")
}

func TestScraperOptions_MinContentTooLarge(t *testing.T) {
	v := newTestViper()
	v.Set(keyMinContent, "10EB")
	_, err := scraperOptions(v)
	assert.ErrorContains(t, err, "invalid min content size")
	assert.ErrorContains(t, err, "too large")
}

func TestBrowserConfig(t *testing.T) {
	v := newTestViper()
	assert.True(t, browserConfig(v).Headless, "expected headless by default")

	v.Set(keyHeadless, false)
	v.Set(keyChrome, "/opt/chrome")
	cfg := browserConfig(v)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "/opt/chrome", cfg.ExecPath)
	assert.NotEmpty(t, cfg.UserAgent)
}

// --- Output Tests ---

func testDocuments() map[string]tritonlink.Document {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return map[string]tritonlink.Document{
		tritonlink.SlotDegreeAudit: {
			Slot: tritonlink.SlotDegreeAudit, URL: "https://act.ucsd.edu/studentDars/view",
			Bytes: 13, FetchedAt: at, HTML: "<html>a</html>",
		},
		tritonlink.SlotAcademicHistory: {
			Slot: tritonlink.SlotAcademicHistory, URL: "https://act.ucsd.edu/studentAcademicHistory/",
			Bytes: 13, FetchedAt: at, HTML: "<html>b</html>",
		},
	}
}

func TestDocumentRecords(t *testing.T) {
	dir := t.TempDir()
	records, err := documentRecords(testDocuments(), dir, false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, tritonlink.SlotAcademicHistory, records[0].Slot)
	assert.Equal(t, tritonlink.SlotDegreeAudit, records[1].Slot)
	for _, r := range records {
		assert.Empty(t, r.HTML, "%s: HTML embedded without include flag", r.Slot)
		assert.Equal(t, dir, filepath.Dir(r.File))
		assert.FileExists(t, r.File)
	}
}

func TestDocumentRecords_IncludeHTML(t *testing.T) {
	records, err := documentRecords(testDocuments(), "", true)
	require.NoError(t, err)
	for _, r := range records {
		assert.NotEmpty(t, r.HTML, r.Slot)
		assert.Empty(t, r.File, r.Slot)
	}
}

func TestWriteReport_JSON(t *testing.T) {
	records, err := documentRecords(testDocuments(), "", false)
	require.NoError(t, err)
	report := runReport{State: "Done", Pages: 2, DurationMs: 1500, Documents: records}

	buf := &bytes.Buffer{}
	require.NoError(t, writeReport(buf, "", output.FormatJSON, report))

	var got runReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Done", got.State)
	assert.Len(t, got.Documents, 2)
}

func TestWriteReport_JSONLToFile(t *testing.T) {
	records, err := documentRecords(testDocuments(), "", false)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, writeReport(&bytes.Buffer{}, path, output.FormatJSONL, runReport{Documents: records}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2, "expected one line per document")
}

// --- Steps Tests ---

func TestStepRecords(t *testing.T) {
	scraper, err := tritonlink.New(nopDriver{}, tritonlink.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)

	records := stepRecords(scraper.Steps())
	require.Len(t, records, 10)
	assert.Equal(t, tritonlink.StepOpenBrowser, records[0].Name)
	assert.Empty(t, records[0].Timeout)
	assert.Equal(t, tritonlink.StepLogin, records[3].Name)
	assert.Equal(t, "5s", records[3].Timeout)

	buf := &bytes.Buffer{}
	require.NoError(t, writeStepTable(buf, records))
	assert.Contains(t, buf.String(), "Login to SSO")
}
