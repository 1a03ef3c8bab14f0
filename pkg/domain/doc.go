/*
Package domain contains the core domain types shared by the HMM engine, its
collaborators and its adapters.

It is kept free of I/O and of the numeric engine itself, so that emission
variants, trainers and storage adapters can depend on it without pulling in
the rest of the library.

# Key Entities

  - ModelSpec: the serializable snapshot of a model (emission tag, state count,
    start distribution, transition matrix, labels and emission parameters).
  - Params: the single-letter flags selecting which parameters an initializer
    or trainer may touch ('s' startprob, 't' transmat, 'm' means, 'c' covars,
    'e' emission probabilities).
  - Hooks: observability callbacks fired by inference and training.
  - Sentinel errors: ErrShapeMismatch, ErrInvalidDistribution,
    ErrIncompatibleCollaborator, ErrUnsupportedVariant and friends.
*/
package domain
