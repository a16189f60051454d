package feature

import (
	"fmt"
	"strconv"
	"strings"
)

type FourierComp string

const (
	FourierCompSin FourierComp = "sin"
	FourierCompCos FourierComp = "cos"
)

// Seasonality is one sine or cosine term of a Fourier series
type Seasonality struct {
	Name        string      `json:"name"`
	FourierComp FourierComp `json:"fourier_component"`
	Order       int         `json:"order"`
}

func NewSeasonality(name string, fcomp FourierComp, order int) *Seasonality {
	return &Seasonality{name, fcomp, order}
}

func (s Seasonality) String() string {
	return fmt.Sprintf("seas_%s_%02d_%s", s.Name, s.Order, s.FourierComp)
}

func (s Seasonality) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return s.Name, true
	case "fourier_component":
		return string(s.FourierComp), true
	case "order":
		return strconv.Itoa(s.Order), true
	}
	return "", false
}

func (s Seasonality) Type() FeatureType {
	return FeatureTypeSeasonality
}

func (s Seasonality) Decode() map[string]string {
	return map[string]string{
		"name":              s.Name,
		"fourier_component": string(s.FourierComp),
		"order":             strconv.Itoa(s.Order),
	}
}

func seasonalityFromLabels(labels map[string]string) (*Seasonality, error) {
	order, err := strconv.Atoi(labels["order"])
	if err != nil {
		return nil, fmt.Errorf("unable to parse seasonality order, %w", err)
	}
	fcomp := FourierComp(labels["fourier_component"])
	if fcomp != FourierCompSin && fcomp != FourierCompCos {
		return nil, fmt.Errorf("fourier component %q, %w", fcomp, ErrUnknownFeatureType)
	}
	return NewSeasonality(labels["name"], fcomp, order), nil
}
