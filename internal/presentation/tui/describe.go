package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/hmm/pkg/domain"
)

// Describe renders a model spec as a markdown document with its start
// distribution, transition matrix and emission parameters.
func Describe(name string, spec *domain.ModelSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)
	fmt.Fprintf(&sb, "- **Emission:** `%s`\n- **States:** %d\n\n", spec.Emission, spec.States)

	header := make([]string, spec.States)
	for i := range header {
		header[i] = stateName(spec.Labels, i)
	}

	if len(spec.StartProb) > 0 {
		sb.WriteString("## Start probabilities\n\n")
		writeRow(&sb, header)
		writeRule(&sb, len(header))
		writeRow(&sb, formatRow(spec.StartProb))
		sb.WriteString("\n")
	}

	if len(spec.TransMat) > 0 {
		sb.WriteString("## Transitions\n\n")
		writeRow(&sb, append([]string{"from \\ to"}, header...))
		writeRule(&sb, len(header)+1)
		for i, row := range spec.TransMat {
			writeRow(&sb, append([]string{stateName(spec.Labels, i)}, formatRow(row)...))
		}
		sb.WriteString("\n")
	}

	if len(spec.Params) > 0 {
		sb.WriteString("## Emission parameters\n\n")
		keys := make([]string, 0, len(spec.Params))
		for k := range spec.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- `%s`: %v\n", k, spec.Params[k])
		}
	}
	return sb.String()
}

func stateName(labels []string, i int) string {
	if i < len(labels) && labels[i] != "" {
		return labels[i]
	}
	return fmt.Sprintf("s%d", i)
}

func formatRow(row []float64) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprintf("%.4f", v)
	}
	return out
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

func writeRule(sb *strings.Builder, n int) {
	sb.WriteString("|" + strings.Repeat(" --- |", n) + "\n")
}
