package domain

// ModelSpec is the serializable description of a model.
// It uses "mapstructure" tags so emission factories and stores can decode it
// from loosely typed YAML/JSON documents.
type ModelSpec struct {
	Emission  string         `json:"emission" yaml:"emission" mapstructure:"emission"`
	States    int            `json:"states" yaml:"states" mapstructure:"states"`
	StartProb []float64      `json:"start_prob,omitempty" yaml:"start_prob,omitempty" mapstructure:"start_prob"`
	TransMat  [][]float64    `json:"trans_mat,omitempty" yaml:"trans_mat,omitempty" mapstructure:"trans_mat"`
	Labels    []string       `json:"labels,omitempty" yaml:"labels,omitempty" mapstructure:"labels"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// Clone returns a deep copy of the spec. Emission parameters are copied one
// level deep; nested values are treated as immutable.
func (s *ModelSpec) Clone() *ModelSpec {
	if s == nil {
		return nil
	}
	out := *s
	if s.StartProb != nil {
		out.StartProb = append([]float64(nil), s.StartProb...)
	}
	if s.TransMat != nil {
		out.TransMat = make([][]float64, len(s.TransMat))
		for i, row := range s.TransMat {
			out.TransMat[i] = append([]float64(nil), row...)
		}
	}
	if s.Labels != nil {
		out.Labels = append([]string(nil), s.Labels...)
	}
	if s.Params != nil {
		out.Params = make(map[string]any, len(s.Params))
		for k, v := range s.Params {
			out.Params[k] = v
		}
	}
	return &out
}
