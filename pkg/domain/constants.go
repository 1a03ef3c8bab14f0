package domain

// ZeroLogProb is the log-probability floor treated as "numerically zero".
// Lattice entries at or below it are forced to negative infinity before an
// engine pass returns.
const ZeroLogProb = -1e200

// DistributionTolerance is the absolute tolerance used when checking that a
// probability vector sums to one.
const DistributionTolerance = 1e-6

// Inference operation names reported through Hooks and metrics.
const (
	OpLikelihood = "likelihood"
	OpPosteriors = "posteriors"
	OpDecode     = "decode"
	OpSample     = "sample"
)
