// Package commands defines all Cobra CLI commands for the ragcore binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/extropic-systems/ragcore/internal/audit"
	"github.com/extropic-systems/ragcore/internal/config"
	"github.com/extropic-systems/ragcore/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragcore",
		Short: "ragcore answers questions over your own documents with Bedrock",
		Long: `ragcore is a retrieval-augmented question-answering tool for plain-text
document corpora.

It chunks documents from S3 or a local directory, embeds them with Amazon
Titan (or OpenAI), and answers questions by retrieving the closest chunks
and prompting a Bedrock text model with them as context.

Embedding backend is selected via the EMBEDDING_PROVIDER environment
variable or a YAML config file (~/.ragcore/config.yaml).
See 'ragcore --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load a local .env if present; real env vars win.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragcore/config.yaml)")

	root.AddCommand(
		NewIndexCmd(),
		NewQueryCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
