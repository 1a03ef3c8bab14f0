package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSpec() *domain.ModelSpec {
	return &domain.ModelSpec{
		Emission:  "multinomial",
		States:    2,
		StartProb: []float64{0.6, 0.4},
		TransMat:  [][]float64{{0.7, 0.3}, {0.4, 0.6}},
		Labels:    []string{"rain", "sun"},
		Params: map[string]any{
			"symbols": 3,
		},
	}
}

// RunModelStoreContract runs a suite of tests to verify that a ModelStore
// implementation adheres to the defined interface contract.
func RunModelStoreContract(t *testing.T, store ModelStore) {
	ctx := context.Background()
	name := "contract-model-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		spec := contractSpec()

		err := store.Save(ctx, name, spec)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, spec.Emission, loaded.Emission)
		assert.Equal(t, spec.States, loaded.States)
		assert.Equal(t, spec.StartProb, loaded.StartProb)
		assert.Equal(t, spec.TransMat, loaded.TransMat)
		assert.Equal(t, spec.Labels, loaded.Labels)
		// Serializing stores may turn ints into floats; only check presence.
		assert.Contains(t, loaded.Params, "symbols")
	})

	t.Run("Save Replaces", func(t *testing.T) {
		spec := contractSpec()
		spec.StartProb = []float64{0.1, 0.9}
		require.NoError(t, store.Save(ctx, name, spec))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.1, 0.9}, loaded.StartProb)
	})

	t.Run("Load Is Isolated From Caller", func(t *testing.T) {
		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		loaded.StartProb[0] = 42

		again, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.NotEqual(t, 42.0, again.StartProb[0])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrModelNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractSpec()))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrModelNotFound, "Load after Delete should return ErrModelNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		require.NoError(t, store.Save(ctx, id1, contractSpec()))
		require.NoError(t, store.Save(ctx, id2, contractSpec()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}
