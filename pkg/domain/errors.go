package domain

import "errors"

// ErrShapeMismatch is returned when a vector or matrix does not have the shape
// implied by the model's state count or the emission's dimensionality.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrInvalidDistribution is returned when a probability vector or a row of a
// stochastic matrix does not sum to one, or holds a value outside [0, 1].
var ErrInvalidDistribution = errors.New("invalid distribution")

// ErrIncompatibleCollaborator is returned when a trainer's emission type does
// not match the emission type of the model it is attached to.
var ErrIncompatibleCollaborator = errors.New("incompatible collaborator")

// ErrUnsupportedVariant is returned when no model variant is registered for
// the requested emission type.
var ErrUnsupportedVariant = errors.New("unsupported variant")

// ErrEmptySequence is returned when an inference call receives no frames.
var ErrEmptySequence = errors.New("empty observation sequence")

// ErrInvalidParameter is returned when an emission parameter has the right
// shape but an unusable value (e.g. a non-positive variance).
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrModelNotFound is returned when a model name cannot be found in the store.
var ErrModelNotFound = errors.New("model not found")
