package main

import (
	"github.com/spf13/cobra"

	"github.com/mwhite-dev/threadflow/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "threadflow",
	Short: "Durable support-triage workflows with pause/resume",
	Long: `threadflow runs a checkpointed support-triage workflow: messages are
classified and answered, ticketed, or refunded, with high-risk refunds pausing
for human approval. Every step is persisted, so paused threads survive
restarts and resume exactly where they stopped.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
}

// loadConfig resolves the effective configuration: the --config file when
// given, built-in defaults otherwise.
func loadConfig() (config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}
