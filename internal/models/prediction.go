package models

import (
	"fmt"
	"math"
	"time"
)

// FeatureRow is the round-indexed row fed to the predictors.
// Stages build new rows instead of mutating one in place.
type FeatureRow struct {
	ID                string
	MainCategory      string
	MidCategory       string
	Title             string
	OrganizationGroup string
	CloseAt           *time.Time
	FirstSeenAt       *time.Time
	CurrentRound      int
	Round             int
	RoundPrices       [MaxRound]*float64
	Vehicle           *VehicleInfo
	Ratio             *float64
}

// FirstRoundPrice returns the round-1 minimum bid, or 0 when unknown
func (r FeatureRow) FirstRoundPrice() float64 {
	if p := r.RoundPrices[0]; p != nil {
		return *p
	}
	return 0
}

// WithRatio returns a copy of the row carrying the derived ratio feature
func (r FeatureRow) WithRatio(ratio float64) FeatureRow {
	out := r
	out.Ratio = Float(ratio)
	if r.Vehicle != nil {
		v := *r.Vehicle
		out.Vehicle = &v
	}
	return out
}

// NumericFeatures flattens the numeric columns of the row
func (r FeatureRow) NumericFeatures() map[string]float64 {
	first := r.FirstRoundPrice()
	features := map[string]float64{
		"current_round":   float64(r.CurrentRound),
		"round":           float64(r.Round),
		"log_first_price": math.Log1p(first),
	}

	latest := first
	for i, p := range r.RoundPrices {
		name := fmt.Sprintf("round%d_price", i+1)
		if p == nil {
			features[name] = 0
			features[name+"_missing"] = 1
			continue
		}
		features[name] = *p
		features[name+"_missing"] = 0
		latest = *p
	}
	if first > 0 {
		features["latest_to_first"] = latest / first
	}

	if r.CloseAt != nil && r.FirstSeenAt != nil {
		features["days_listed"] = r.CloseAt.Sub(*r.FirstSeenAt).Hours() / 24
	}
	if r.Ratio != nil {
		features["ratio"] = *r.Ratio
	}
	return features
}

// CategoricalFeatures flattens the categorical columns of the row
func (r FeatureRow) CategoricalFeatures() map[string]string {
	features := map[string]string{
		"main_category": r.MainCategory,
		"mid_category":  r.MidCategory,
		"organization":  r.OrganizationGroup,
	}
	if r.Vehicle != nil {
		features["vehicle_type"] = r.Vehicle.VehicleType
		features["sub_category"] = r.Vehicle.SubCategory
		features["manufacturer"] = r.Vehicle.Manufacturer
	}
	return features
}

// Prediction is the combined answer returned to the front-end
type Prediction struct {
	Probability    float64 `json:"predicted_rate"`
	RecommendedBid float64 `json:"recommend_bid"`
}
