package main

import (
	"context"
	"os"
	"strconv"

	"github.com/aretw0/hmm/internal/cli"
	"github.com/aretw0/hmm/internal/presentation/graph"
	"github.com/aretw0/hmm/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval <name> <sequences-file>",
	Short: "Score observation sequences",
	Long:  `Prints the log-likelihood of every sequence in a YAML/JSON sequences file, and optionally the per-frame state posteriors.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		showPosteriors, _ := cmd.Flags().GetBool("posteriors")

		c, closer, _ := openCatalog()
		defer closer()

		model, err := c.Get(context.Background(), args[0])
		exitOnError(err)
		seqs, err := file.ReadSequences(args[1])
		exitOnError(err)

		out := cli.NewPrinter(os.Stdout)
		opts := inferenceOptions(cmd)
		total := 0.0
		for i, obs := range seqs {
			if !showPosteriors {
				lp, err := model.Likelihood(obs, opts...)
				exitOnError(err)
				total += lp
				out.Printf("%d\t%s\n", i, cli.LogProb(lp))
				continue
			}

			lp, post, err := model.Posteriors(obs, opts...)
			exitOnError(err)
			total += lp
			out.Printf("%s\n", out.Heading("sequence "+strconv.Itoa(i)+"  log_prob "+cli.LogProb(lp)))
			frames, states := post.Dims()
			for t := 0; t < frames; t++ {
				out.Printf("  %d", t)
				for s := 0; s < states; s++ {
					out.Printf("\t%.4f", post.At(t, s))
				}
				out.Printf("\n")
			}
		}
		if len(seqs) > 1 {
			out.Printf("total\t%s\n", cli.LogProb(total))
		}
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <name> <sequences-file>",
	Short: "Find the most likely state paths",
	Long:  `Runs Viterbi decoding on every sequence in a YAML/JSON sequences file.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		c, closer, _ := openCatalog()
		defer closer()

		ctx := context.Background()
		model, err := c.Get(ctx, args[0])
		exitOnError(err)
		seqs, err := file.ReadSequences(args[1])
		exitOnError(err)

		out := cli.NewPrinter(os.Stdout)
		labels := model.Labels()
		opts := inferenceOptions(cmd)
		for i, obs := range seqs {
			lp, path, err := model.Decode(obs, opts...)
			exitOnError(err)
			if mermaid {
				spec, err := model.Spec()
				exitOnError(err)
				out.Printf("%%%% sequence %d\n%s", i, graph.GenerateMermaid(spec, 0, &graph.PathOverlay{Path: path}))
				continue
			}
			out.Printf("%d\t%s\t%s\n", i, cli.LogProb(lp), out.Path(path, labels))
		}
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(decodeCmd)

	inferenceFlags(evalCmd)
	evalCmd.Flags().Bool("posteriors", false, "Print per-frame state posteriors")

	inferenceFlags(decodeCmd)
	decodeCmd.Flags().Bool("mermaid", false, "Print each path as a Mermaid overlay on the state graph")
}
