package main

import (
	"context"
	"fmt"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/internal/cli"
	"github.com/aretw0/hmm/pkg/adapters/file"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/aretw0/hmm/pkg/train"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <name> <sequences-file>",
	Short: "Initialize model parameters from data",
	Long: `Resets the selected parameters: 's' and 't' become uniform, emission
parameters ('m', 'c' for gaussian, 'e' for multinomial) are estimated from the data.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		params, _ := cmd.Flags().GetString("params")
		pairs, _ := cmd.Flags().GetStringArray("option")
		options, err := parseOptions(pairs)
		exitOnError(err)

		seqs, err := file.ReadSequences(args[1])
		exitOnError(err)

		c, closer, _ := openCatalog()
		defer closer()

		err = c.Update(context.Background(), args[0], func(ctx context.Context, m *hmm.Model) error {
			return m.Initialize(seqs, domain.Params(params), options)
		})
		exitOnError(err)
		fmt.Printf("Model %q initialized (%s)\n", args[0], params)
	},
}

var trainCmd = &cobra.Command{
	Use:   "train <name> <sequences-file>",
	Short: "Fit a model with Baum-Welch",
	Long: `Runs expectation-maximization over every sequence in the file and saves the
result. Interrupting the run leaves the stored model unchanged.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		iterations, _ := cmd.Flags().GetInt("iterations")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		params, _ := cmd.Flags().GetString("params")
		initParams, _ := cmd.Flags().GetString("init")
		rank, _ := cmd.Flags().GetInt("max-rank")
		pairs, _ := cmd.Flags().GetStringArray("option")
		options, err := parseOptions(pairs)
		exitOnError(err)

		seqs, err := file.ReadSequences(args[1])
		exitOnError(err)

		c, closer, _ := openCatalog()
		defer closer()

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		cfg := ports.TrainConfig{
			Iterations: iterations,
			Threshold:  threshold,
			Params:     domain.Params(params),
			MaxRank:    rank,
			Options:    options,
		}
		var history []float64
		err = c.Update(ctx, args[0], func(ctx context.Context, m *hmm.Model) error {
			if initParams != "" {
				if err := m.Initialize(seqs, domain.Params(initParams), options); err != nil {
					return err
				}
			}
			var err error
			history, err = m.Train(ctx, seqs, cfg)
			return err
		})
		if sig := ctx.Signal(); sig != nil {
			fmt.Printf("\nTraining interrupted (%v); model %q unchanged\n", sig, args[0])
			return
		}
		exitOnError(err)

		out := cli.NewPrinter(cmd.OutOrStdout())
		for i, lp := range history {
			out.Printf("%d\t%s\n", i, cli.LogProb(lp))
		}
		fmt.Printf("Model %q trained (%d iterations)\n", args[0], len(history))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(trainCmd)

	initCmd.Flags().String("params", string(domain.DefaultInitParams), "Parameters to initialize")
	initCmd.Flags().StringArray("option", nil, "Initializer option as key=value (repeatable)")

	trainCmd.Flags().Int("iterations", train.DefaultIterations, "Maximum EM iterations")
	trainCmd.Flags().Float64("threshold", 1e-2, "Stop when the log-likelihood gain falls below this")
	trainCmd.Flags().String("params", string(domain.DefaultTrainParams), "Parameters to re-estimate")
	trainCmd.Flags().String("init", "", "Initialize these parameters from the data first")
	trainCmd.Flags().Int("max-rank", 0, "Prune the E-step to this many states per frame (0: all)")
	trainCmd.Flags().StringArray("option", nil, "Trainer/initializer option as key=value (repeatable)")
}
