package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	out := Describe("weather", &domain.ModelSpec{
		Emission:  "multinomial",
		States:    2,
		StartProb: []float64{0.6, 0.4},
		TransMat:  [][]float64{{0.7, 0.3}, {0.4, 0.6}},
		Labels:    []string{"rainy"},
		Params:    map[string]any{"symbols": 3},
	})

	assert.Contains(t, out, "# weather")
	assert.Contains(t, out, "| rainy | s1 |")
	assert.Contains(t, out, "| 0.6000 | 0.4000 |")
	assert.Contains(t, out, "| rainy | 0.7000 | 0.3000 |")
	assert.Contains(t, out, "- `symbols`: 3")
}

func TestRenderer_Fallback(t *testing.T) {
	render := NewRenderer()
	out, err := render("# title")
	assert.NoError(t, err)
	assert.Contains(t, out, "title")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_| |_|")
}
