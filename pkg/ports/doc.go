/*
Package ports defines the interfaces between the HMM engine and its
collaborators.

These interfaces decouple the inference core from concrete emission
distributions, training procedures and storage backends.

# Key Interfaces

  - Emission: computes per-frame, per-state log-likelihoods and draws samples.
  - Reestimator / Accumulator: optional Baum-Welch support on an Emission.
  - Trainer: re-estimates a model's parameters from observation sequences.
  - TrainableModel: the exclusive view of a model handed to a Trainer.
  - ModelStore: persists ModelSpec snapshots by name.
  - DistributedLocker: coordinates exclusive model updates across replicas.
*/
package ports
