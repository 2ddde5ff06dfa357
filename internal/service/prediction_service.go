package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"bidforecast/server/internal/classifier"
	"bidforecast/server/internal/history"
	"bidforecast/server/internal/models"
	"bidforecast/server/internal/normalizer"
	"bidforecast/server/internal/predictor"
)

// HealthStatus is reported by the health endpoint
type HealthStatus struct {
	Status          string `json:"status"`
	ModelLoaded     bool   `json:"model_loaded"`
	ModelPathExists bool   `json:"model_path_exists"`
}

// PredictionService runs a raw listing through normalization, classification,
// history merge and the model router.
type PredictionService struct {
	classifier *classifier.Classifier
	merger     *history.Merger
	router     *predictor.Router
	modelPath  string
	logger     *logrus.Logger
}

// NewPredictionService wires the pipeline. A nil router means the models failed
// to load; every prediction then fails with ErrModelUnavailable.
func NewPredictionService(
	cls *classifier.Classifier,
	merger *history.Merger,
	router *predictor.Router,
	modelPath string,
	logger *logrus.Logger,
) *PredictionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &PredictionService{
		classifier: cls,
		merger:     merger,
		router:     router,
		modelPath:  modelPath,
		logger:     logger,
	}
}

// Prepare turns a raw listing into the feature row used by both predictors.
// The listing's price is recorded in its history as a side effect.
func (s *PredictionService) Prepare(ctx context.Context, raw models.RawListing) (models.FeatureRow, error) {
	listing, err := normalizer.Normalize(raw)
	if err != nil {
		return models.FeatureRow{}, err
	}
	return s.merger.Merge(ctx, s.classifier.Classify(listing))
}

// Predict runs the price model, derives the recommended bid from it and scores
// the win probability of bidding that amount.
func (s *PredictionService) Predict(ctx context.Context, raw models.RawListing) (models.Prediction, error) {
	if s.router == nil {
		return models.Prediction{}, models.ErrModelUnavailable
	}

	row, err := s.Prepare(ctx, raw)
	if err != nil {
		return models.Prediction{}, err
	}

	ratio, round, err := s.router.PricePredict(ctx, row)
	if err != nil {
		return models.Prediction{}, err
	}
	recommended := row.FirstRoundPrice() * ratio

	prob, err := s.router.ProbPredict(ctx, row.WithRatio(ratio))
	if err != nil {
		return models.Prediction{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"listing_id": row.ID,
		"category":   row.MainCategory,
		"round":      round,
		"ratio":      ratio,
	}).Debug("Predicted closing price")

	return models.Prediction{
		Probability:    ScaleProbability(prob),
		RecommendedBid: recommended,
	}, nil
}

// PredictProbability scores the win probability of a user-supplied bid. The
// bid is echoed back as the recommended amount.
func (s *PredictionService) PredictProbability(ctx context.Context, raw models.RawListing, bidAmount float64) (models.Prediction, error) {
	if s.router == nil {
		return models.Prediction{}, models.ErrModelUnavailable
	}
	if math.IsNaN(bidAmount) || math.IsInf(bidAmount, 0) {
		return models.Prediction{}, models.InvalidRecord("bid amount must be a finite number")
	}

	row, err := s.Prepare(ctx, raw)
	if err != nil {
		return models.Prediction{}, err
	}

	ratio := 0.0
	if first := row.FirstRoundPrice(); first != 0 {
		ratio = bidAmount / first
	}

	prob, err := s.router.ProbPredict(ctx, row.WithRatio(ratio))
	if err != nil {
		return models.Prediction{}, err
	}

	return models.Prediction{
		Probability:    ScaleProbability(prob),
		RecommendedBid: bidAmount,
	}, nil
}

// History returns the stored round prices of a listing
func (s *PredictionService) History(ctx context.Context, listingID string) (*models.HistoryEntry, error) {
	entry, err := s.merger.Lookup(ctx, listingID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewError(models.KindNotFound, fmt.Sprintf("no history for listing %s", listingID), nil)
		}
		return nil, err
	}
	return entry, nil
}

func (s *PredictionService) Health() HealthStatus {
	_, err := os.Stat(s.modelPath)
	return HealthStatus{
		Status:          "healthy",
		ModelLoaded:     s.router != nil,
		ModelPathExists: err == nil,
	}
}

// ScaleProbability converts a [0, 1] probability into a percentage with two decimals
func ScaleProbability(p float64) float64 {
	pct := predictor.Clamp(p*100, 0, 100)
	return math.Round(pct*100) / 100
}
