// Package cli implements the ecobuddy command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/ecobuddy/internal/config"
	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/services/ai"
)

// ClientFactory builds the language model client used by --suggest.
type ClientFactory func() (ai.LanguageModelClient, error)

// NewRootCmd creates the root command with the production Gemini client.
func NewRootCmd(version string) *cobra.Command {
	return NewRootCmdWithClient(version, geminiClientFromEnv)
}

// NewRootCmdWithClient creates the root command with an injected client
// factory, for tests.
func NewRootCmdWithClient(version string, newClient ClientFactory) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:          "ecobuddy",
		Short:        "Estimate your monthly carbon footprint",
		Long:         "EcoBuddy estimates monthly CO₂ emissions from a few lifestyle inputs and can ask Gemini for reduction tips.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Log lines go to stderr so stdout stays parseable with --output json.
			logging.SetDefaultOutput(cmd.ErrOrStderr())
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			logging.SetDefaultLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on stderr")
	cmd.AddCommand(NewEstimateCmd(newClient))

	return cmd
}

func geminiClientFromEnv() (ai.LanguageModelClient, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return ai.NewGeminiClient(cfg.AI, nil), nil
}
