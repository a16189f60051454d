// Package forecast fits an explainable seasonal regression to a monthly series. The model is
// a linear combination of an intercept, a linear growth term, a yearly Fourier series and month
// event indicators, solved with least squares. Forecast bounds come from the spread of the
// training residuals.
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-salesforecaster/feature"
	"github.com/aouyang1/go-salesforecaster/forecast/options"
	"github.com/aouyang1/go-salesforecaster/linearmodel"
	mat_ "github.com/aouyang1/go-salesforecaster/mat"
	"github.com/aouyang1/go-salesforecaster/models"
	"github.com/aouyang1/go-salesforecaster/stats"
	"github.com/aouyang1/go-salesforecaster/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = fmt.Errorf("insufficient training data after removing NaNs, %w", models.ErrInsufficientData)
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = models.ErrUntrainedModel
)

// underdeterminedPenalty is the ridge penalty applied when there are fewer training months
// than model coefficients and no regularization was requested
const underdeterminedPenalty = 1e-6

// residualTol is the residual magnitude relative to the series below which a fit is treated as
// exact and no outlier pass is run
const residualTol = 1e-9

// Forecast represents a single forecast model of a monthly series
type Forecast struct {
	opt    *options.Options
	scores *Scores // score calculations after training

	// model coefficients
	fLabels *feature.Labels

	trainStartTime  time.Time
	trainEndTime    time.Time
	numTrain        int
	residual        []float64
	residualSD      float64
	outliers        []time.Time
	trainComponents Components

	coef      []float64
	intercept float64
	trained   bool
}

// Components splits the fit of the training data into its additive parts
type Components struct {
	Trend       []float64 `json:"trend"`
	Seasonality []float64 `json:"seasonality"`
	Event       []float64 `json:"event"`
}

// New creates a new forecast instance with the given options. If none are provided, a default
// is used
func New(opt *options.Options) (*Forecast, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate forecast options, %w", err)
	}

	return &Forecast{opt: opt}, nil
}

// NewFromModel creates a new forecast instance given a forecast Model to initialize. This
// instance can be used for inference immediately and does not need to be trained again.
func NewFromModel(model Model) (*Forecast, error) {
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate model options, %w", err)
	}

	labels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, err
	}

	f := &Forecast{
		opt:            opt,
		fLabels:        feature.NewLabels(labels),
		trainStartTime: model.TrainStartTime,
		trainEndTime:   model.TrainEndTime,
		numTrain:       model.NumTrain,
		residualSD:     model.ResidualSD,
		intercept:      model.Weights.Intercept,
		coef:           model.Weights.Coefficients(),
		scores:         model.Scores,
		trained:        true,
	}
	return f, nil
}

// Fit takes the input training data and fits the growth, seasonal and event components. Each
// outlier pass drops the months whose residuals fall outside the Tukey fences and refits.
func (f *Forecast) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrUninitializedForecast
	}

	trainingData, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return err
	}
	trainingData = trainingData.DropNan()
	if trainingData.Len() <= 1 {
		return ErrInsufficientTrainingData
	}

	f.trainStartTime = trainingData.T[0]
	f.trainEndTime = trainingData.T[trainingData.Len()-1]
	f.outliers = nil

	trainT := trainingData.T
	trainY := trainingData.Y
	for pass := 0; ; pass++ {
		if err := f.fit(trainT, trainY); err != nil {
			return err
		}
		if pass >= f.opt.OutlierOptions.NumPasses {
			break
		}

		predicted, err := f.PredictAt(trainT)
		if err != nil {
			return err
		}
		residual := make([]float64, len(trainY))
		floats.SubTo(residual, trainY, predicted)
		if floats.Norm(residual, math.Inf(1)) <= residualTol*(1.0+floats.Norm(trainY, math.Inf(1))) {
			// exact fit
			break
		}

		outlierOpt := f.opt.OutlierOptions
		outlierIdx := stats.DetectOutliers(residual, outlierOpt.LowerPercentile, outlierOpt.UpperPercentile, outlierOpt.TukeyFactor)
		if len(outlierIdx) == 0 || len(trainT)-len(outlierIdx) < 2 {
			break
		}

		for _, idx := range outlierIdx {
			f.outliers = append(f.outliers, trainT[idx])
		}
		trainT, trainY = dropIndices(trainT, trainY, outlierIdx)
		slog.Debug("dropped outlier months", "pass", pass, "count", len(outlierIdx))
	}
	f.numTrain = len(trainT)

	// use the full training set so outliers are reflected in the scores
	predicted, err := f.PredictAt(trainingData.T)
	if err != nil {
		return err
	}

	scores, err := NewScores(predicted, trainingData.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, trainingData.Len())
	floats.SubTo(residual, trainingData.Y, predicted)
	f.residual = residual

	inSample, err := f.PredictAt(trainT)
	if err != nil {
		return err
	}
	inSampleResidual := make([]float64, len(trainT))
	floats.SubTo(inSampleResidual, trainY, inSample)
	f.residualSD = stats.ResidualStdDev(inSampleResidual, len(f.coef)+1)

	f.trainComponents = f.components(trainingData.T)
	return nil
}

func (f *Forecast) fit(t []time.Time, y []float64) error {
	x := f.opt.GenerateFeatures(t, f.trainStartTime, f.trainEndTime)

	// an event that never fires in the training window has no coefficient to learn
	for label, feat := range x.Filter(feature.FeatureTypeEvent) {
		if floats.Max(feat.Data) == 0 {
			slog.Warn("event is not active in the training window", "name", feat.F.String())
			delete(x, label)
		}
	}

	f.fLabels = x.Labels()
	f.trained = false

	if f.fLabels.Len() == 0 {
		f.intercept = floats.Sum(y) / float64(len(y))
		f.coef = nil
		f.trained = true
		return nil
	}

	olsOpt := linearmodel.NewDefaultOLSOptions()
	olsOpt.Regularization = f.opt.Regularization
	if len(t) <= f.fLabels.Len() && olsOpt.Regularization == 0 {
		slog.Warn("fewer training months than coefficients, applying ridge penalty",
			"months", len(t), "features", f.fLabels.Len())
		olsOpt.Regularization = underdeterminedPenalty
	}

	ols, err := linearmodel.NewOLSRegression(olsOpt)
	if err != nil {
		return err
	}

	target, err := mat_.NewColumn(y)
	if err != nil {
		return err
	}
	if err := ols.Fit(x.Matrix(f.fLabels), target); err != nil {
		return fmt.Errorf("unable to fit regression, %w", err)
	}

	f.intercept = ols.Intercept()
	f.coef = ols.Coef()
	f.trained = true
	return nil
}

func dropIndices(t []time.Time, y []float64, idx []int) ([]time.Time, []float64) {
	drop := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		drop[i] = struct{}{}
	}
	resT := make([]time.Time, 0, len(t)-len(idx))
	resY := make([]float64, 0, len(y)-len(idx))
	for i := range t {
		if _, exists := drop[i]; exists {
			continue
		}
		resT = append(resT, t[i])
		resY = append(resY, y[i])
	}
	return resT, resY
}

// PredictAt takes a slice of times in any order and produces the predicted value for those
// times given a pre-trained model.
func (f *Forecast) PredictAt(t []time.Time) ([]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}
	if !f.trained {
		return nil, ErrUntrainedForecast
	}
	if len(t) == 0 {
		return nil, nil
	}

	x := f.opt.GenerateFeatures(t, f.trainStartTime, f.trainEndTime)
	return f.runInference(x, len(t), true), nil
}

// Predict forecasts the given number of months past the end of the training data. The bounds
// cover the configured interval width and widen with the distance from the training data.
func (f *Forecast) Predict(periods int) ([]models.ForecastPoint, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}
	if !f.trained {
		return nil, ErrUntrainedForecast
	}
	if periods < 1 {
		return nil, fmt.Errorf("got %d, %w", periods, models.ErrInvalidHorizon)
	}

	z, err := stats.IntervalZ(f.opt.IntervalWidth)
	if err != nil {
		return nil, err
	}

	t := timedataset.FutureMonths(f.trainEndTime, periods)
	yhat, err := f.PredictAt(t)
	if err != nil {
		return nil, err
	}

	n := math.Max(float64(f.numTrain), 1)
	points := make([]models.ForecastPoint, 0, periods)
	for k := 1; k <= periods; k++ {
		width := z * f.residualSD * math.Sqrt(1.0+float64(k)/n)
		val := yhat[k-1]
		points = append(points, models.ForecastPoint{
			T:     t[k-1],
			Value: val,
			Lower: val - width,
			Upper: val + width,
		})
	}
	return points, nil
}

func (f *Forecast) components(t []time.Time) Components {
	x := f.opt.GenerateFeatures(t, f.trainStartTime, f.trainEndTime)
	return Components{
		Trend:       f.runInference(x.Filter(feature.FeatureTypeGrowth), len(t), true),
		Seasonality: f.runInference(x.Filter(feature.FeatureTypeSeasonality), len(t), false),
		Event:       f.runInference(x.Filter(feature.FeatureTypeEvent), len(t), false),
	}
}

// runInference applies the trained weights to the features in x. Features that were not part
// of the fit are ignored.
func (f *Forecast) runInference(x feature.Set, m int, withIntercept bool) []float64 {
	res := make([]float64, m)
	if withIntercept {
		floats.AddConst(f.intercept, res)
	}

	xLabels := make([]feature.Feature, 0, len(x))
	xWeights := make([]float64, 0, len(x))
	for _, label := range x.Labels().Labels() {
		if wIdx, exists := f.fLabels.Index(label); exists {
			xLabels = append(xLabels, label)
			xWeights = append(xWeights, f.coef[wIdx])
		}
	}
	if len(xLabels) == 0 {
		return res
	}

	featMx := x.Matrix(feature.NewLabels(xLabels))
	var resVec mat.VecDense
	resVec.MulVec(featMx, mat.NewVecDense(len(xWeights), xWeights))
	floats.Add(res, resVec.RawVector().Data)
	return res
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f == nil {
		return nil
	}

	return f.fLabels.Labels()
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	labels := f.fLabels.Labels()
	if len(labels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	coef := make(map[string]float64)
	for i := 0; i < len(f.coef); i++ {
		coef[labels[i].String()] = f.coef[i]
	}
	return coef, nil
}

// Intercept returns the intercept of the forecast model
func (f *Forecast) Intercept() float64 {
	if f == nil {
		return 0
	}
	return f.intercept
}

// Model returns the serializeable format of the forecast model composing of the
// forecast options, intercept, coefficients with their feature labels, and the
// model fit scores
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	fws := make([]FeatureWeight, 0, len(f.coef))
	labels := f.fLabels.Labels()
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}
	m := Model{
		TrainStartTime: f.trainStartTime,
		TrainEndTime:   f.trainEndTime,
		NumTrain:       f.numTrain,
		ResidualSD:     f.residualSD,
		Options:        f.opt,
		Scores:         f.scores,
		Weights: Weights{
			Intercept: f.intercept,
			Coef:      fws,
		},
	}
	return m, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ b + m1x1 + m2x2 + ...
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}
	if !f.trained {
		return "", ErrUntrainedForecast
	}

	eq := fmt.Sprintf("y ~ %.2f", f.Intercept())
	labels := f.fLabels.Labels()
	for i, w := range f.coef {
		if w == 0 {
			continue
		}
		eq += fmt.Sprintf("%+.2f*%s", w, labels[i])
	}
	return eq, nil
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() Scores {
	if f == nil || f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// ResidualStdDev is the standard deviation of the residuals the bounds are derived from
func (f *Forecast) ResidualStdDev() float64 {
	if f == nil {
		return 0
	}
	return f.residualSD
}

// Outliers returns the months dropped from the fit by the outlier passes
func (f *Forecast) Outliers() []time.Time {
	if f == nil {
		return nil
	}
	res := make([]time.Time, len(f.outliers))
	copy(res, f.outliers)
	return res
}

// TrendComponent represents the intercept plus linear growth over the training data
func (f *Forecast) TrendComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Trend))
	copy(res, f.trainComponents.Trend)
	return res
}

// SeasonalityComponent represents the overall seasonal component of the model
func (f *Forecast) SeasonalityComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Seasonality))
	copy(res, f.trainComponents.Seasonality)
	return res
}

// EventComponent represents the contribution of the month events over the training data
func (f *Forecast) EventComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Event))
	copy(res, f.trainComponents.Event)
	return res
}

// Fitter trains a new seasonal regression for every dataset it is given and is safe for
// concurrent use
type Fitter struct {
	opt *options.Options
}

// NewFitter validates the options once for every fit. If none are provided, a default is used.
func NewFitter(opt *options.Options) (*Fitter, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate forecast options, %w", err)
	}
	return &Fitter{opt: opt}, nil
}

// Fit trains a forecast on td
func (r *Fitter) Fit(td *timedataset.TimeDataset) (models.Model, error) {
	if td == nil {
		return nil, ErrInsufficientTrainingData
	}
	f, err := New(r.opt)
	if err != nil {
		return nil, err
	}
	if err := f.Fit(td.T, td.Y); err != nil {
		return nil, fmt.Errorf("unable to fit forecast, %w", err)
	}
	return f, nil
}
