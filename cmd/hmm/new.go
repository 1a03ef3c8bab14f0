package main

import (
	"context"
	"fmt"

	"github.com/aretw0/hmm/pkg/adapters/file"
	"github.com/aretw0/hmm/pkg/catalog"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/emission/gaussian"
	"github.com/aretw0/hmm/pkg/emission/multinomial"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a model",
	Long: `Creates a model with uniform start and transition probabilities and default
emission parameters, or imports one from a YAML/JSON file with --from.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		force, _ := cmd.Flags().GetBool("force")

		spec, err := newSpec(cmd)
		exitOnError(err)

		c, closer, _ := openCatalog()
		defer closer()

		ctx := context.Background()
		if !force {
			if _, err := c.Spec(ctx, name); err == nil {
				exitOnError(fmt.Errorf("model %q already exists (use --force to replace it)", name))
			} else if !catalog.IsNotFound(err) {
				exitOnError(err)
			}
		}
		exitOnError(c.PutSpec(ctx, name, spec))
		fmt.Printf("Model %q created (%s, %d states)\n", name, spec.Emission, spec.States)
	},
}

func newSpec(cmd *cobra.Command) (*domain.ModelSpec, error) {
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		return file.ReadFile(from)
	}

	emission, _ := cmd.Flags().GetString("emission")
	states, _ := cmd.Flags().GetInt("states")
	labels, _ := cmd.Flags().GetStringSlice("labels")
	spec := &domain.ModelSpec{Emission: emission, States: states, Labels: labels}

	switch emission {
	case multinomial.Type:
		symbols, _ := cmd.Flags().GetInt("symbols")
		spec.Params = map[string]any{"symbols": symbols}
	case gaussian.Type:
		dims, _ := cmd.Flags().GetInt("dims")
		covType, _ := cmd.Flags().GetString("covariance-type")
		spec.Params = map[string]any{"dims": dims, "covariance_type": covType}
	default:
		return nil, fmt.Errorf("%w: emission %q", domain.ErrUnsupportedVariant, emission)
	}
	return spec, nil
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().String("from", "", "Import the model from a YAML/JSON file")
	newCmd.Flags().String("emission", multinomial.Type, "Emission type: 'multinomial' or 'gaussian'")
	newCmd.Flags().Int("states", 2, "Number of hidden states")
	newCmd.Flags().StringSlice("labels", nil, "Comma-separated state labels")
	newCmd.Flags().Int("symbols", 2, "Alphabet size (multinomial)")
	newCmd.Flags().Int("dims", 1, "Feature dimensions (gaussian)")
	newCmd.Flags().String("covariance-type", string(gaussian.Diag), "Covariance type (gaussian): spherical, diag, full or tied")
	newCmd.Flags().Bool("force", false, "Replace an existing model")
}
