package predictor

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"bidforecast/server/internal/models"
)

const (
	LinkIdentity = "identity"
	LinkLogistic = "logistic"
)

// LinearModel is the exported form of a trained scorer: an intercept, one
// weight per numeric feature and one weight per categorical level.
// Features absent from the row contribute nothing.
type LinearModel struct {
	Name        string                        `yaml:"name"`
	Link        string                        `yaml:"link"`
	Intercept   float64                       `yaml:"intercept"`
	Numeric     map[string]float64            `yaml:"numeric"`
	Categorical map[string]map[string]float64 `yaml:"categorical"`
}

// Validate rejects models the service cannot evaluate
func (m *LinearModel) Validate() error {
	switch m.Link {
	case "", LinkIdentity, LinkLogistic:
	default:
		return fmt.Errorf("model %s: unknown link %q", m.Name, m.Link)
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return fmt.Errorf("model %s: intercept is not finite", m.Name)
	}
	return nil
}

func (m *LinearModel) Predict(ctx context.Context, row models.FeatureRow) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Terms are summed in name order so equal rows score identically.
	score := m.Intercept
	numeric := row.NumericFeatures()
	for _, name := range slices.Sorted(maps.Keys(numeric)) {
		score += m.Numeric[name] * numeric[name]
	}
	categorical := row.CategoricalFeatures()
	for _, name := range slices.Sorted(maps.Keys(categorical)) {
		score += m.Categorical[name][categorical[name]]
	}

	if m.Link == LinkLogistic {
		score = 1 / (1 + math.Exp(-score))
	}
	return []float64{score}, nil
}
