// Package graph renders model topologies as Mermaid diagrams.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/hmm/pkg/domain"
)

// PathOverlay highlights a decoded path on the diagram.
type PathOverlay struct {
	Path []int
}

// GenerateMermaid produces a Mermaid flowchart of the state space.
// A synthetic ((start)) node links to every state with non-zero start
// probability. Transition edges below minProb are omitted; self loops are
// drawn like any other edge. When an overlay is given, states on the path
// are styled as visited and the final state as current.
func GenerateMermaid(spec *domain.ModelSpec, minProb float64, overlay *PathOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("    start((\"start\"))\n")

	for i := 0; i < spec.States; i++ {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", stateID(i), stateLabel(spec.Labels, i)))
	}

	for i, p := range spec.StartProb {
		if p > 0 && p >= minProb {
			sb.WriteString(fmt.Sprintf("    start -. \"%.2f\" .-> %s\n", p, stateID(i)))
		}
	}

	for i, row := range spec.TransMat {
		for j, p := range row {
			if p <= 0 || p < minProb {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%.2f\" --> %s\n", stateID(i), p, stateID(j)))
		}
	}

	if overlay != nil && len(overlay.Path) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on both themes
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		last := overlay.Path[len(overlay.Path)-1]
		seen := make(map[int]bool)
		for _, st := range overlay.Path {
			if seen[st] || st == last {
				continue
			}
			seen[st] = true
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", stateID(st)))
		}
		sb.WriteString(fmt.Sprintf("    class %s current;\n", stateID(last)))
	}

	return sb.String()
}

func stateID(i int) string {
	return fmt.Sprintf("s%d", i)
}

func stateLabel(labels []string, i int) string {
	if i < len(labels) && labels[i] != "" {
		return strings.ReplaceAll(labels[i], "\"", "'")
	}
	return stateID(i)
}
