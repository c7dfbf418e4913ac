package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tritonscrape/internal/output"
	"github.com/jmylchreest/tritonscrape/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		formatStr, _ := cmd.Flags().GetString("format")
		if formatStr == "" {
			fmt.Fprintln(cmd.OutOrStdout(), info.Full())
			return nil
		}

		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		w, err := output.NewWriter(cmd.OutOrStdout(), format)
		if err != nil {
			return err
		}
		if err := w.Write(info); err != nil {
			return err
		}
		return w.Close()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().String("format", "", "output format: json, jsonl, yaml (default: text)")
	rootCmd.Version = version.Get().String()
}
