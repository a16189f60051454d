package feature

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Set represents a mapping to each feature data keyed by the string representation
// of the feature.
type Set map[string]Data

// Add stores the feature values, replacing any feature with the same label
func (s Set) Add(f Feature, data []float64) {
	s[f.String()] = Data{F: f, Data: data}
}

// Labels returns the sorted slice of all tracked features in the Set
func (s Set) Labels() *Labels {
	if s == nil {
		return nil
	}

	labels := make([]Feature, 0, len(s))
	for _, feat := range s {
		labels = append(labels, feat.F)
	}
	sort.Slice(
		labels,
		func(i, j int) bool {
			return labels[i].String() < labels[j].String()
		},
	)
	return NewLabels(labels)
}

// Filter returns the subset of features of the given type
func (s Set) Filter(ft FeatureType) Set {
	res := make(Set)
	for label, feat := range s {
		if feat.F.Type() == ft {
			res[label] = feat
		}
	}
	return res
}

// Len returns the number of observations of each feature
func (s Set) Len() int {
	for _, feat := range s {
		return len(feat.Data)
	}
	return 0
}

// Matrix returns the Set laid out in the order of labels with m rows representing the number
// of observations and n columns representing the number of features. Features missing from the
// Set are zero filled. Returns nil if there are no observations or no labels.
func (s Set) Matrix(labels *Labels) *mat.Dense {
	m := s.Len()
	n := labels.Len()
	if m == 0 || n == 0 {
		return nil
	}

	obs := make([]float64, m*n)
	for j, label := range labels.Labels() {
		feature, exists := s[label.String()]
		if !exists {
			continue
		}
		for i := 0; i < len(feature.Data) && i < m; i++ {
			obs[n*i+j] = feature.Data[i]
		}
	}
	return mat.NewDense(m, n, obs)
}
