// Package commands implements the CLI commands for tritonscrape.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tritonscrape/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tritonscrape",
	Short: "Fetch your degree audit and academic history from TritonLink",
	Long: `tritonscrape signs in to TritonLink with a headless Chrome and saves
the degree audit report and academic history pages.

Credentials come from flags, the environment or the config file
($HOME/.tritonscrape.yaml). Prefer the environment or --password-stdin
over --password so the secret stays out of shell history.

Examples:
  # Fetch both documents as JSON, saving the raw pages
  TRITONSCRAPE_USERNAME=jdoe TRITONSCRAPE_PASSWORD=... \
      tritonscrape fetch --html-dir ./records

  # Read the password from a secret manager
  pass show ucsd | tritonscrape fetch -u jdoe --password-stdin

  # Show the workflow without running it
  tritonscrape steps`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.tritonscrape.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".tritonscrape")
		viper.SetConfigType("yaml")
	}

	// Environment variables, e.g. TRITONSCRAPE_TIMEOUTS_LOGIN
	viper.SetEnvPrefix("TRITONSCRAPE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
