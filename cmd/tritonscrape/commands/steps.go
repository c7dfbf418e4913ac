package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tritonscrape/internal/output"
	"github.com/jmylchreest/tritonscrape/pkg/driver"
	"github.com/jmylchreest/tritonscrape/pkg/tritonlink"
)

// stepRecord describes one workflow step.
type stepRecord struct {
	Index   int    `json:"index" yaml:"index"`
	Name    string `json:"name" yaml:"name"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Expect  string `json:"expect" yaml:"expect"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Slot    string `json:"slot,omitempty" yaml:"slot,omitempty"`
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the workflow steps with their timeouts",
	Long: `Print the steps fetch runs, in order, with the deadline and the event
each one waits for. Settings from the config file and environment are
applied, so this shows what a fetch would do.`,
	Args: cobra.NoArgs,
	RunE: runSteps,
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsCmd.Flags().String("format", "table", "output format: table, json, jsonl, yaml")
}

func runSteps(cmd *cobra.Command, args []string) error {
	// Placeholder credentials: the table never runs, it only needs to build.
	creds := tritonlink.Credentials{Username: "-", Password: "-"}
	opts, err := scraperOptions(viper.GetViper())
	if err != nil {
		logError("%v", err)
		return err
	}
	scraper, err := tritonlink.New(nopDriver{}, creds, opts...)
	if err != nil {
		logError("%v", err)
		return err
	}

	records := stepRecords(scraper.Steps())

	formatStr, _ := cmd.Flags().GetString("format")
	if formatStr == "table" {
		return writeStepTable(cmd.OutOrStdout(), records)
	}

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logError("%v", err)
		return err
	}
	w, err := output.NewWriter(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}
	if format == output.FormatJSONL {
		for _, r := range records {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	} else if err := w.Write(records); err != nil {
		return err
	}
	return w.Close()
}

func stepRecords(steps []tritonlink.Step) []stepRecord {
	records := make([]stepRecord, 0, len(steps))
	for i, s := range steps {
		r := stepRecord{
			Index:  i + 1,
			Name:   s.Name,
			Expect: s.Expect.String(),
			URL:    s.URL,
			Slot:   s.Slot,
			From:   s.From.String(),
			To:     s.To.String(),
		}
		if s.Timeout > 0 {
			r.Timeout = s.Timeout.String()
		}
		records = append(records, r)
	}
	return records
}

func writeStepTable(w io.Writer, records []stepRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTEP\tTIMEOUT\tWAITS FOR\tURL")
	for _, r := range records {
		timeout := r.Timeout
		if timeout == "" {
			timeout = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Index, r.Name, timeout, r.Expect, r.URL)
	}
	return tw.Flush()
}

// nopDriver lets commands build the workflow without a browser.
type nopDriver struct{}

func (nopDriver) Launch(context.Context) (driver.Browser, error) {
	return nil, errors.New("no browser available")
}
