// Package train provides expectation-maximization trainers for hmm models.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/aretw0/hmm/internal/logging"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/floats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// DefaultIterations is used when TrainConfig.Iterations is not positive.
const DefaultIterations = 10

// Options are the trainer specific entries of TrainConfig.Options.
type Options struct {
	// StartPrior is added to every expected start count before normalizing.
	StartPrior float64 `mapstructure:"start_prior"`
	// TransPrior is added to every expected transition count.
	TransPrior float64 `mapstructure:"trans_prior"`
	// Workers bounds the sequences evaluated concurrently in the E-step.
	// Non-positive means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
}

// BaumWelch re-estimates start, transition and (through ports.Reestimator)
// emission parameters by expectation-maximization.
type BaumWelch struct {
	emissionType string
	logger       *slog.Logger
}

// Option defines a functional option for configuring a BaumWelch trainer.
type Option func(*BaumWelch)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *BaumWelch) {
		b.logger = logger
	}
}

// NewBaumWelch creates a trainer for models using the given emission type.
func NewBaumWelch(emissionType string, opts ...Option) *BaumWelch {
	b := &BaumWelch{
		emissionType: emissionType,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EmissionType implements ports.Trainer.
func (b *BaumWelch) EmissionType() string {
	return b.emissionType
}

// Train implements ports.Trainer.
//
// A zero BeamLogProb is treated as -Inf, since a zero-width beam would keep
// only the best state of each frame. Training stops after cfg.Iterations iterations or once the total
// log-likelihood improves by less than cfg.Threshold.
func (b *BaumWelch) Train(ctx context.Context, model ports.TrainableModel, obs [][][]float64, cfg ports.TrainConfig) ([]float64, error) {
	if model.Emission().EmissionType() != b.emissionType {
		return nil, fmt.Errorf("%w: trainer handles %q emissions, model uses %q",
			domain.ErrIncompatibleCollaborator, b.emissionType, model.Emission().EmissionType())
	}
	if len(obs) == 0 {
		return nil, domain.ErrEmptySequence
	}

	var opts Options
	if err := decodeOptions(cfg.Options, &opts); err != nil {
		return nil, err
	}

	params := cfg.Params
	if params == "" {
		params = domain.DefaultTrainParams
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	beam := cfg.BeamLogProb
	if beam == 0 {
		beam = math.Inf(-1)
	}

	history := make([]float64, 0, iterations)
	for iter := 0; iter < iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stats, err := b.expectation(ctx, model, obs, cfg.MaxRank, beam, params, opts.Workers)
		if err != nil {
			return nil, err
		}
		history = append(history, stats.logProb)
		b.logger.Info("baum-welch iteration", "emission", b.emissionType, "iteration", iter, "log_prob", stats.logProb)

		if iter > 0 && math.Abs(history[iter]-history[iter-1]) < cfg.Threshold {
			b.logger.Info("baum-welch converged", "iteration", iter)
			break
		}

		if err := b.maximization(model, stats, params, opts); err != nil {
			return nil, err
		}
	}
	return history, nil
}

// sufficient holds the expected counts of one E-step.
type sufficient struct {
	logProb  float64
	start    []float64
	trans    *mat.Dense
	emission ports.Accumulator
}

func (b *BaumWelch) expectation(ctx context.Context, model ports.TrainableModel, obs [][][]float64, maxRank int, beam float64, params domain.Params, workers int) (*sufficient, error) {
	n := model.States()
	s := &sufficient{
		start: make([]float64, n),
		trans: mat.NewDense(n, n, nil),
	}
	if re, ok := model.Emission().(ports.Reestimator); ok {
		s.emission = re.NewAccumulator()
	}
	logTrans := model.LogTransMat()

	lattices, err := forwardBackwardAll(ctx, model, obs, maxRank, beam, workers)
	if err != nil {
		return nil, err
	}

	// Accumulation runs in sequence order so results do not depend on scheduling.
	for k, lat := range lattices {
		s.logProb += lat.LogProb
		if math.IsInf(lat.LogProb, -1) {
			b.logger.Warn("skipping impossible sequence", "sequence", k)
			continue
		}

		floats.Add(s.start, lat.Posteriors.RawRowView(0))
		if params.Has(domain.ParamTransMat) {
			accumulateTransitions(s.trans, logTrans, lat)
		}
		if s.emission != nil {
			if err := s.emission.Add(obs[k], lat.Posteriors); err != nil {
				return nil, fmt.Errorf("sequence %d: %w", k, err)
			}
		}
	}
	return s, nil
}

// forwardBackwardAll evaluates every sequence with at most workers goroutines.
func forwardBackwardAll(ctx context.Context, model ports.TrainableModel, obs [][][]float64, maxRank int, beam float64, workers int) ([]*ports.Lattices, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	lattices := make([]*ports.Lattices, len(obs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k, seq := range obs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			lat, err := model.ForwardBackward(seq, maxRank, beam)
			if err != nil {
				return fmt.Errorf("sequence %d: %w", k, err)
			}
			lattices[k] = lat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lattices, nil
}

// accumulateTransitions adds the expected transition counts
// xi(t, i, j) = exp(fwd(t, i) + logA(i, j) + frame(t+1, j) + bwd(t+1, j) - logP).
func accumulateTransitions(dst, logTrans *mat.Dense, lat *ports.Lattices) {
	frames, n := lat.Forward.Dims()
	next := make([]float64, n)
	for t := 0; t+1 < frames; t++ {
		fwd := lat.Forward.RawRowView(t)
		for j := range next {
			next[j] = lat.FrameLogLik.At(t+1, j) + lat.Backward.At(t+1, j) - lat.LogProb
		}
		for i, fi := range fwd {
			if math.IsInf(fi, -1) {
				continue
			}
			row := dst.RawRowView(i)
			logRow := logTrans.RawRowView(i)
			for j, nj := range next {
				if v := fi + logRow[j] + nj; !math.IsInf(v, -1) {
					row[j] += math.Exp(v)
				}
			}
		}
	}
}

func (b *BaumWelch) maximization(model ports.TrainableModel, s *sufficient, params domain.Params, opts Options) error {
	n := model.States()

	if params.Has(domain.ParamStartProb) {
		start := make([]float64, n)
		floats.AddConst(opts.StartPrior, start)
		floats.Add(start, s.start)
		if normalize(start) {
			if err := model.SetStartProb(start); err != nil {
				return fmt.Errorf("update startprob: %w", err)
			}
		}
	}

	if params.Has(domain.ParamTransMat) {
		trans := model.TransMat()
		for i := 0; i < n; i++ {
			row := make([]float64, n)
			floats.AddConst(opts.TransPrior, row)
			floats.Add(row, s.trans.RawRowView(i))
			// States never visited keep their current row.
			if normalize(row) {
				trans.SetRow(i, row)
			}
		}
		if err := model.SetTransMat(trans); err != nil {
			return fmt.Errorf("update transmat: %w", err)
		}
	}

	if s.emission != nil {
		if err := s.emission.Apply(params); err != nil {
			return fmt.Errorf("update %s emission: %w", b.emissionType, err)
		}
	}
	return nil
}

// normalize scales p to sum to one and reports whether it had any mass.
func normalize(p []float64) bool {
	sum := floats.Sum(p)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return false
	}
	floats.Scale(1/sum, p)
	return true
}

func decodeOptions(in map[string]any, out any) error {
	if len(in) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(in); err != nil {
		return fmt.Errorf("%w: trainer options: %v", domain.ErrInvalidParameter, err)
	}
	return nil
}
