// Package predictor routes feature rows to the trained models. Each model is
// opaque to the rest of the service: it takes a row and returns its raw output.
package predictor

import (
	"context"
	"fmt"
	"math"

	"bidforecast/server/internal/models"
)

// Predictor is one trained model
type Predictor interface {
	Predict(ctx context.Context, row models.FeatureRow) ([]float64, error)
}

// PredictorFunc adapts a plain function to the Predictor interface
type PredictorFunc func(ctx context.Context, row models.FeatureRow) ([]float64, error)

func (f PredictorFunc) Predict(ctx context.Context, row models.FeatureRow) ([]float64, error) {
	return f(ctx, row)
}

// Scalar extracts the single value a model is expected to return for one row
func Scalar(out []float64) (float64, error) {
	if len(out) != 1 {
		return 0, models.NewError(models.KindUnexpectedResultType,
			fmt.Sprintf("expected a single value, got %d", len(out)), nil)
	}
	v := out[0]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, models.NewError(models.KindUnexpectedResultType,
			fmt.Sprintf("expected a finite value, got %v", v), nil)
	}
	return v, nil
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
