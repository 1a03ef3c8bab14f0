package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/hmm/pkg/adapters/file"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunModelStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ContractJSON(t *testing.T) {
	ports.RunModelStoreContract(t, file.New(t.TempDir(), file.WithFormat(file.JSON)))
}

func TestFileStore_SwitchingFormatReplacesFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	spec := &domain.ModelSpec{Emission: "multinomial", States: 1, StartProb: []float64{1}}

	require.NoError(t, file.New(dir).Save(ctx, "m", spec))
	require.NoError(t, file.New(dir, file.WithFormat(file.JSON)).Save(ctx, "m", spec))

	assert.NoFileExists(t, filepath.Join(dir, "m.yaml"))
	assert.FileExists(t, filepath.Join(dir, "m.json"))

	names, err := file.New(dir).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, names)

	loaded, err := file.New(dir).Load(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, loaded.StartProb)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	names, err := file.New(filepath.Join(t.TempDir(), "absent")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReadSequences(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "obs.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- [[0], [1]]\n- [[2]]\n"), 0644))
	jsonPath := filepath.Join(dir, "obs.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[[[0.5, 1]], [[1, 2], [3, 4]]]`), 0644))

	seqs, err := file.ReadSequences(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, [][][]float64{{{0}, {1}}, {{2}}}, seqs)

	seqs, err = file.ReadSequences(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, [][][]float64{{{0.5, 1}}, {{1, 2}, {3, 4}}}, seqs)

	_, err = file.ReadSequences(filepath.Join(dir, "obs.txt"))
	assert.Error(t, err)
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	spec := &domain.ModelSpec{
		Emission:  "gaussian",
		States:    2,
		StartProb: []float64{0.5, 0.5},
		Params:    map[string]any{"dims": 1},
	}
	require.NoError(t, file.WriteFile(path, spec))

	loaded, err := file.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gaussian", loaded.Emission)
	assert.Equal(t, 2, loaded.States)
	assert.EqualValues(t, 1, loaded.Params["dims"])
}

func TestWriteSequences(t *testing.T) {
	dir := t.TempDir()
	seqs := [][][]float64{{{0}, {1}}, {{2.5, -1}}}
	for _, name := range []string{"obs.yaml", "obs.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, file.WriteSequences(path, seqs))
		loaded, err := file.ReadSequences(path)
		require.NoError(t, err)
		assert.Equal(t, seqs, loaded, name)
	}
	assert.Error(t, file.WriteSequences(filepath.Join(dir, "obs.csv"), seqs))
}
