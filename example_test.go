package hmm_test

import (
	"fmt"
	"log"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/pkg/emission/multinomial"
	"gonum.org/v1/gonum/mat"
)

// ExampleModel_Decode finds the most likely weather behind a week of
// observed activities (0 = walk, 1 = shop, 2 = clean).
func ExampleModel_Decode() {
	emission, err := multinomial.New(2, multinomial.WithEmissionProb([][]float64{
		{0.1, 0.4, 0.5}, // rainy
		{0.6, 0.3, 0.1}, // sunny
	}))
	if err != nil {
		log.Fatal(err)
	}

	model, err := hmm.New(2, emission,
		hmm.WithStartProb([]float64{0.6, 0.4}),
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6})),
		hmm.WithLabels("rainy", "sunny"),
	)
	if err != nil {
		log.Fatal(err)
	}

	_, path, err := model.Decode([][]float64{{0}, {1}, {2}})
	if err != nil {
		log.Fatal(err)
	}
	labels := model.Labels()
	for _, s := range path {
		fmt.Println(labels[s])
	}
	// Output:
	// sunny
	// rainy
	// rainy
}

// ExampleModel_Likelihood compares exact and pruned evaluation.
func ExampleModel_Likelihood() {
	emission, _ := multinomial.New(2, multinomial.WithEmissionProb([][]float64{
		{0.1, 0.4, 0.5},
		{0.6, 0.3, 0.1},
	}))
	model, _ := hmm.New(2, emission,
		hmm.WithStartProb([]float64{0.6, 0.4}),
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6})),
	)

	obs := [][]float64{{0}, {1}, {2}}
	exact, _ := model.Likelihood(obs)
	pruned, _ := model.Likelihood(obs, hmm.WithMaxRank(2))
	fmt.Printf("%.6f %.6f\n", exact, pruned)
	// Output:
	// -3.392872 -3.392872
}
