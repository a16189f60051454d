// Package feature labels the columns of the seasonal regression design matrix
package feature

import (
	"errors"
	"strings"
)

var ErrUnknownFeatureType = errors.New("unknown feature type")

type FeatureType string

const (
	FeatureTypeGrowth      FeatureType = "growth"
	FeatureTypeSeasonality FeatureType = "seasonality"
	FeatureTypeEvent       FeatureType = "event"
)

// Feature is a single labelled column of the design matrix
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}

// Data represents a feature with its observed values
type Data struct {
	F    Feature
	Data []float64
}

// FromLabels rebuilds a feature from its type and decoded labels
func FromLabels(ft FeatureType, labels map[string]string) (Feature, error) {
	switch ft {
	case FeatureTypeGrowth:
		return NewGrowth(labels["name"]), nil
	case FeatureTypeSeasonality:
		return seasonalityFromLabels(labels)
	case FeatureTypeEvent:
		return NewEvent(labels["name"]), nil
	}
	return nil, ErrUnknownFeatureType
}

func sanitize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
