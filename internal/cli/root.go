// Package cli implements the ragdesk CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ragdesk"
	"github.com/hupe1980/ragdesk/config"
)

var (
	configPath string
	envFile    string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "ragdesk",
	Short:         "Retrieval-augmented IT help desk",
	Long:          "Answers IT support questions from a knowledge base and performs help-desk actions such as opening tickets.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: $RAGDESK_CONFIG or ragdesk.yaml)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with provider credentials")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("RAGDESK_CONFIG"); env != "" {
		return env
	}
	return "ragdesk.yaml"
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	return config.Load(getConfigPath())
}

func openDesk() (*ragdesk.Desk, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return ragdesk.New(cfg)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func jsonOutput() bool { return formatFlag == "json" }
