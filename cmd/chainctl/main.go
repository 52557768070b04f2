package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesio-ai/be-approval-chains/internal/app"
	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "chainctl",
	Short: "Inspect and exercise approval chains",
	Long: `chainctl builds approval chains from the organization directory and the
per-request-type policies, lints the directory, and simulates decisions.

Without --directory the embedded sample organization is used.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CHAINCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("directory", "d", "", "directory/policy YAML file (default: embedded sample)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("directory", rootCmd.PersistentFlags().Lookup("directory"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(lintCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(watchCmd())
}

// loadApp resolves settings from the environment, lets flags override them,
// and wires the engine. Logs go to stderr so stdout stays machine-readable.
func loadApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if dir := viper.GetString("directory"); dir != "" {
		cfg.Directory.File = dir
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
		Output:      os.Stderr,
	})
	return app.New(cfg, log)
}
