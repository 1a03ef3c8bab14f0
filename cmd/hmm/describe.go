package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/hmm/internal/cli"
	"github.com/aretw0/hmm/internal/presentation/graph"
	"github.com/aretw0/hmm/internal/presentation/tui"
	"github.com/aretw0/hmm/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Show a model",
	Long: `Prints a model's start distribution, transitions and emission parameters.
--mermaid prints the state graph instead; --export writes the model to a file.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		mermaid, _ := cmd.Flags().GetBool("mermaid")
		minProb, _ := cmd.Flags().GetFloat64("min-prob")
		export, _ := cmd.Flags().GetString("export")

		c, closer, _ := openCatalog()
		defer closer()

		spec, err := c.Spec(context.Background(), name)
		exitOnError(err)

		if export != "" {
			exitOnError(file.WriteFile(export, spec))
			fmt.Printf("Model %q written to %s\n", name, export)
			return
		}
		if mermaid {
			fmt.Print(graph.GenerateMermaid(spec, minProb, nil))
			return
		}

		doc := tui.Describe(name, spec)
		if cli.IsTerminal(os.Stdout) {
			rendered, err := tui.NewRenderer()(doc)
			if err == nil {
				doc = rendered
			}
		}
		fmt.Print(doc)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().Bool("mermaid", false, "Print the state graph as a Mermaid diagram")
	describeCmd.Flags().Float64("min-prob", 0, "Hide transitions below this probability (with --mermaid)")
	describeCmd.Flags().String("export", "", "Write the model to a .yaml or .json file")
}
