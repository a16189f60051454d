package models

import (
	"errors"
)

var (
	ErrInsufficientData = errors.New("need at least 2 observations to forecast")
	ErrInvalidHorizon   = errors.New("forecast horizon must be at least 1 period")
	ErrZeroBaseline     = errors.New("growth is undefined for a zero baseline")
	ErrNoForecast       = errors.New("no forecast points")
	ErrUntrainedModel   = errors.New("model has not been trained yet")
)
