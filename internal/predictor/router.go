package predictor

import (
	"context"
	"fmt"
	"math"

	"bidforecast/server/internal/models"
)

// RouteKey selects a price model
type RouteKey struct {
	Category string
	Round    int
}

// Router holds every model the service uses: one price model per
// (category, round) pair, the round model and the probability model.
// It is built once and only read afterwards.
type Router struct {
	price map[RouteKey]Predictor
	round Predictor
	prob  Predictor
}

// NewRouter validates that every (category, round) pair has a price model
func NewRouter(round, prob Predictor, price map[RouteKey]Predictor) (*Router, error) {
	if round == nil {
		return nil, fmt.Errorf("round model is missing")
	}
	if prob == nil {
		return nil, fmt.Errorf("probability model is missing")
	}

	routes := make(map[RouteKey]Predictor, len(price))
	for _, category := range []string{models.CategoryVehicle, models.CategoryOther} {
		for r := 1; r <= models.MaxRound; r++ {
			key := RouteKey{Category: category, Round: r}
			p, ok := price[key]
			if !ok || p == nil {
				return nil, fmt.Errorf("price model for %s round %d is missing", category, r)
			}
			routes[key] = p
		}
	}

	return &Router{price: routes, round: round, prob: prob}, nil
}

func routeCategory(row models.FeatureRow) string {
	if row.MainCategory == models.CategoryVehicle {
		return models.CategoryVehicle
	}
	return models.CategoryOther
}

// UsedRound combines the round model's guess with the listing's own round:
// the later of the two wins, limited to [1, MaxRound].
func (r *Router) UsedRound(ctx context.Context, row models.FeatureRow) (int, error) {
	out, err := r.round.Predict(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("round model: %w", err)
	}
	predicted, err := Scalar(out)
	if err != nil {
		return 0, fmt.Errorf("round model: %w", err)
	}

	// Out-of-range predictions are clamped before the int conversion so huge values cannot overflow.
	predictedRound := int(math.Round(Clamp(predicted, 0, models.MaxRound+1)))
	return models.ClampRound(max(predictedRound, row.CurrentRound+1)), nil
}

// PricePredict returns the predicted closing price as a ratio of the first
// round price, together with the round whose model produced it.
func (r *Router) PricePredict(ctx context.Context, row models.FeatureRow) (float64, int, error) {
	round, err := r.UsedRound(ctx, row)
	if err != nil {
		return 0, 0, err
	}

	key := RouteKey{Category: routeCategory(row), Round: round}
	out, err := r.price[key].Predict(ctx, row)
	if err != nil {
		return 0, round, fmt.Errorf("price model %s/%d: %w", key.Category, key.Round, err)
	}
	ratio, err := Scalar(out)
	if err != nil {
		return 0, round, fmt.Errorf("price model %s/%d: %w", key.Category, key.Round, err)
	}
	return math.Max(ratio, 0), round, nil
}

// ProbPredict returns the win probability in [0, 1]
func (r *Router) ProbPredict(ctx context.Context, row models.FeatureRow) (float64, error) {
	out, err := r.prob.Predict(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("probability model: %w", err)
	}
	p, err := Scalar(out)
	if err != nil {
		return 0, fmt.Errorf("probability model: %w", err)
	}
	return Clamp(p, 0, 1), nil
}
