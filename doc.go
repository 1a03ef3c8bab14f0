/*
Package hmm is a hidden Markov model engine with pluggable emission
distributions.

A Model owns the start distribution and transition matrix of a discrete-state
Markov chain. Everything about how observations are generated is delegated to
an emission collaborator (see ports.Emission), and parameter re-estimation is
delegated to a trainer collaborator (see ports.Trainer). Inference runs
entirely in the log domain and can be approximated with rank and beam pruning.

# Usage

	emission, _ := multinomial.New(2, multinomial.WithEmissionProb([][]float64{
		{0.5, 0.5},
		{0.9, 0.1},
	}))

	model, err := hmm.New(2, emission,
		hmm.WithStartProb([]float64{0.6, 0.4}),
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6})),
	)
	if err != nil {
		log.Fatal(err)
	}

	obs := [][]float64{{0}, {0}, {1}}
	logProb, _ := model.Likelihood(obs)
	_, path, _ := model.Decode(obs, hmm.WithBeamLogProb(-10))

# Inference

  - Likelihood: forward pass, returns log P(obs | model).
  - Posteriors: forward and backward passes, returns per-frame state posteriors.
  - Decode: Viterbi pass, returns the most likely state path.
  - Sample: generates observations and hidden states.

The backward pass always uses a fixed beam of -50 nats and no rank limit,
regardless of the options passed to Posteriors.

# Concurrency

Inference calls take a shared lock and may run in parallel. Initialize, Train
and the setters take an exclusive lock.
*/
package hmm
