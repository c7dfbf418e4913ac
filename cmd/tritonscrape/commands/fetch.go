package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tritonscrape/cmd/tritonscrape/browser"
	"github.com/jmylchreest/tritonscrape/internal/logger"
	"github.com/jmylchreest/tritonscrape/internal/output"
	"github.com/jmylchreest/tritonscrape/pkg/tritonlink"
)

// runReport is the json and yaml output of a run.
type runReport struct {
	State      string           `json:"state" yaml:"state"`
	Pages      int              `json:"pages" yaml:"pages"`
	DurationMs int64            `json:"duration_ms" yaml:"duration_ms"`
	Documents  []documentRecord `json:"documents" yaml:"documents"`
}

// documentRecord is one document in the output. jsonl output writes one per line.
type documentRecord struct {
	Slot      string    `json:"slot" yaml:"slot"`
	URL       string    `json:"url" yaml:"url"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	Bytes     int       `json:"bytes" yaml:"bytes"`
	TextBytes int       `json:"text_bytes" yaml:"text_bytes"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
	File      string    `json:"file,omitempty" yaml:"file,omitempty"`
	HTML      string    `json:"html,omitempty" yaml:"html,omitempty"`
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Sign in and fetch the degree audit and academic history",
	Long: `Run the TritonLink workflow once.

Chrome opens the portal, signs in through SSO, requests the degree audit
report and then the academic history. Each step waits for the page it
expects and fails after its timeout. The browser is always closed.

The run summary is written to stdout (or --output). Use --html-dir to
keep the raw pages, or --include-html to embed them in the output.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	flags := fetchCmd.Flags()

	// Credentials
	flags.StringP("username", "u", "", "SSO username")
	flags.String("password", "", "SSO password (prefer TRITONSCRAPE_PASSWORD or --password-stdin)")
	flags.Bool("password-stdin", false, "read the password from the first line of stdin")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.String("html-dir", "", "directory to save the raw HTML of each document")
	flags.Bool("include-html", false, "embed the raw HTML in the output")

	// Browser settings
	flags.Bool("headless", true, "run Chrome without a window (--headless=false to watch)")
	flags.String("chrome-path", "", "Chrome binary (default: search PATH and common locations)")
	flags.String("user-agent", "", "override the browser user agent")
	flags.Bool("chrome-debug", false, "log the DevTools protocol traffic (with --debug)")

	// Workflow settings
	flags.Duration("portal-timeout", 0, "timeout for the portal to redirect to SSO")
	flags.Duration("login-timeout", 0, "timeout for SSO sign-in")
	flags.Duration("content-timeout", 0, "timeout for reading each document")
	flags.String("report-target", "", "window name the degree audit report opens in")
	flags.String("min-content", "", "reject documents smaller than this (e.g., 4KB, 0=disabled)")

	v := viper.GetViper()
	setDefaults(v)
	bindFlags(v, flags, map[string]string{
		"username":        keyUsername,
		"password":        keyPassword,
		"headless":        keyHeadless,
		"chrome-path":     keyChrome,
		"user-agent":      keyUserAgent,
		"chrome-debug":    keyVerbose,
		"portal-timeout":  "timeouts.open_portal",
		"login-timeout":   "timeouts.login",
		"content-timeout": "timeouts.content",
		"report-target":   keyTarget,
		"min-content":     keyMinContent,
	})
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	v := viper.GetViper()

	formatStr, _ := flags.GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logError("%v", err)
		return err
	}

	fromStdin, _ := flags.GetBool("password-stdin")
	creds, err := credentials(v, cmd.InOrStdin(), fromStdin)
	if err != nil {
		logError("%v", err)
		return err
	}

	opts, err := scraperOptions(v)
	if err != nil {
		logError("%v", err)
		return err
	}
	opts = append(opts, tritonlink.WithObserver(progress{}))
	scraper, err := tritonlink.New(browser.New(browserConfig(v)), creds, opts...)
	if err != nil {
		logError("%v", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logInfo("Signing in to TritonLink as %s", creds.Username)
	result, err := scraper.Run(ctx)
	if err != nil {
		var stepErr *tritonlink.StepError
		if errors.As(err, &stepErr) {
			logger.Debug("workflow failed", "step", stepErr.Step, "state", stepErr.State)
		}
		logError("%v", err)
		return err
	}

	report := runReport{
		State:      result.State.String(),
		Pages:      result.Pages,
		DurationMs: result.Duration.Milliseconds(),
	}
	htmlDir, _ := flags.GetString("html-dir")
	includeHTML, _ := flags.GetBool("include-html")
	report.Documents, err = documentRecords(result.Documents, htmlDir, includeHTML)
	if err != nil {
		logError("%v", err)
		return err
	}

	outPath, _ := flags.GetString("output")
	if err := writeReport(cmd.OutOrStdout(), outPath, format, report); err != nil {
		logError("failed to write output: %v", err)
		return err
	}

	var total uint64
	for _, doc := range report.Documents {
		total += uint64(doc.Bytes)
	}
	logInfo("Fetched %d documents (%s) in %s", len(report.Documents), humanize.Bytes(total), result.Duration.Round(time.Millisecond))
	return nil
}

// documentRecords orders documents by slot and optionally saves their HTML.
func documentRecords(docs map[string]tritonlink.Document, htmlDir string, includeHTML bool) ([]documentRecord, error) {
	var dir *output.HTMLDir
	if htmlDir != "" {
		d, err := output.NewHTMLDir(htmlDir)
		if err != nil {
			return nil, err
		}
		dir = d
	}

	slots := make([]string, 0, len(docs))
	for slot := range docs {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	records := make([]documentRecord, 0, len(slots))
	for _, slot := range slots {
		doc := docs[slot]
		rec := documentRecord{
			Slot:      doc.Slot,
			URL:       doc.URL,
			Title:     doc.Title,
			Bytes:     doc.Bytes,
			TextBytes: doc.TextBytes,
			FetchedAt: doc.FetchedAt,
		}
		if includeHTML {
			rec.HTML = doc.HTML
		}
		if dir != nil {
			path, err := dir.Save(slot, doc.HTML)
			if err != nil {
				return nil, err
			}
			rec.File = path
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeReport writes the report to path, or to stdout when path is empty.
func writeReport(stdout io.Writer, path string, format output.Format, report runReport) (err error) {
	out := stdout
	if path != "" {
		f, ferr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if ferr != nil {
			return fmt.Errorf("failed to create output file: %w", ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		out = f
	}

	w, err := output.NewWriter(out, format)
	if err != nil {
		return err
	}

	if format == output.FormatJSONL {
		for _, doc := range report.Documents {
			if err := w.Write(doc); err != nil {
				return err
			}
		}
	} else if err := w.Write(report); err != nil {
		return err
	}
	return w.Close()
}

// progress reports steps on stderr.
type progress struct{}

func (progress) StepStarted(s tritonlink.Step) {
	logger.Debug("step started", "step", s.Name, "timeout", s.Timeout)
}

func (progress) StepFinished(s tritonlink.Step, elapsed time.Duration, err error) {
	if err != nil {
		logInfo("  ✗ %s (%s)", s.Name, elapsed.Round(time.Millisecond))
		return
	}
	logInfo("  ✓ %s (%s)", s.Name, elapsed.Round(time.Millisecond))
}
