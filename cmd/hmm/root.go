package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/internal/cli"
	"github.com/aretw0/hmm/pkg/catalog"
	"github.com/spf13/cobra"
)

var globals cli.Globals

var rootCmd = &cobra.Command{
	Use:   "hmm",
	Short: "hmm manages and evaluates hidden Markov models",
	Long: `hmm stores hidden Markov models and runs log-domain inference on them:
sequence likelihoods, state posteriors, Viterbi decoding, sampling and
Baum-Welch training. Models live in a directory of YAML/JSON files or in Redis.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globals.StorePath, "store", ".hmm/models", "Directory holding model files")
	rootCmd.PersistentFlags().StringVar(&globals.Format, "format", "yaml", "Encoding of saved model files: 'yaml' or 'json'")
	rootCmd.PersistentFlags().StringVar(&globals.RedisAddr, "redis", "", "Redis address; overrides --store when set")
	rootCmd.PersistentFlags().StringVar(&globals.LogLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&globals.LogFormat, "log-format", "text", "Log format: 'text' or 'json'")
	rootCmd.PersistentFlags().StringVar(&globals.StoreKey, "store-key", os.Getenv("HMM_STORE_KEY"), "Hex AES-256 key encrypting stored models (default $HMM_STORE_KEY)")
}

// exitOnError prints err and exits with status 1.
func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// openCatalog builds the logger and catalog from the global flags.
func openCatalog(modelOpts ...hmm.Option) (*catalog.Catalog, func() error, *slog.Logger) {
	logger, err := globals.Logger()
	exitOnError(err)
	c, closer, err := globals.Catalog(logger, modelOpts...)
	exitOnError(err)
	return c, closer, logger
}

// parseOptions turns repeated key=value flags into an options map. Values
// stay strings; decoders convert them to the target field types.
func parseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("option %q is not key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// inferenceFlags registers the pruning flags shared by eval and decode.
func inferenceFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-rank", 0, "Keep at most this many states per frame (0: all)")
	cmd.Flags().Float64("beam", 0, "Drop states scoring more than this many nats below the frame total (off unless set)")
}

func inferenceOptions(cmd *cobra.Command) []hmm.InferenceOption {
	rank, _ := cmd.Flags().GetInt("max-rank")
	opts := []hmm.InferenceOption{hmm.WithMaxRank(rank)}
	if cmd.Flags().Changed("beam") {
		beam, _ := cmd.Flags().GetFloat64("beam")
		opts = append(opts, hmm.WithBeamLogProb(beam))
	}
	return opts
}
