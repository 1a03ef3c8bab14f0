package domain

import "strings"

// Params selects which model parameters an initializer or trainer is allowed
// to update. Each byte is a flag; unknown flags are ignored by collaborators
// that do not understand them.
type Params string

// Parameter flags.
const (
	ParamStartProb byte = 's'
	ParamTransMat  byte = 't'
	ParamMeans     byte = 'm'
	ParamCovars    byte = 'c'
	ParamEmission  byte = 'e'
)

const (
	// DefaultInitParams resets every parameter on initialization.
	DefaultInitParams Params = "stmce"
	// DefaultTrainParams re-estimates every parameter during training.
	DefaultTrainParams Params = "stmce"
)

// Has reports whether the flag is set.
func (p Params) Has(flag byte) bool {
	return strings.IndexByte(string(p), flag) >= 0
}
