package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bidforecast/server/internal/models"
	"bidforecast/server/internal/service"
)

// PredictionService is the pipeline the handlers delegate to
type PredictionService interface {
	Predict(ctx context.Context, raw models.RawListing) (models.Prediction, error)
	PredictProbability(ctx context.Context, raw models.RawListing, bidAmount float64) (models.Prediction, error)
	History(ctx context.Context, listingID string) (*models.HistoryEntry, error)
	Health() service.HealthStatus
}

type Handler struct {
	svc    PredictionService
	logger *logrus.Logger
}

// flexString accepts both JSON strings and JSON numbers; the front-end sends
// prices either way.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// PredictRequest is the body of both prediction endpoints
type PredictRequest struct {
	BidAmount *float64 `json:"bidAmount"`

	ID              string     `json:"id"`
	Category        string     `json:"category"`
	MainCategory    string     `json:"mainCategory"`
	SubCategory     string     `json:"subCategory"`
	Title           string     `json:"title"`
	Name            string     `json:"name"`
	EndDate         string     `json:"endDate"`
	BidType         string     `json:"bidType"`
	AssetType       string     `json:"assetType"`
	Usage           string     `json:"usage"`
	Manufacturer    string     `json:"manufacturer"`
	ModelName       string     `json:"modelName"`
	EvaluationPrice flexString `json:"evaluationPrice"`
	FailureCount    flexString `json:"failureCount"`
	Agency          string     `json:"agency"`
	MinBidPrice     flexString `json:"minBidPrice"`
}

// Listing converts the request into the raw listing fed to the pipeline
func (r PredictRequest) Listing() models.RawListing {
	return models.RawListing{
		ID:              r.ID,
		Category:        r.Category,
		MainCategory:    r.MainCategory,
		SubCategory:     r.SubCategory,
		Title:           r.Title,
		Name:            r.Name,
		EndDate:         r.EndDate,
		BidType:         r.BidType,
		AssetType:       r.AssetType,
		Usage:           r.Usage,
		Manufacturer:    r.Manufacturer,
		ModelName:       r.ModelName,
		EvaluationPrice: string(r.EvaluationPrice),
		FailureCount:    string(r.FailureCount),
		Agency:          r.Agency,
		MinBidPrice:     string(r.MinBidPrice),
	}
}

func NewHandler(svc PredictionService, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) bindPredictRequest(c *gin.Context) (PredictRequest, bool) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).WithField("request_id", requestID(c)).Warn("Failed to parse prediction request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return req, false
	}
	if req.BidAmount == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bidAmount is required"})
		return req, false
	}
	return req, true
}

// Predict returns the recommended bid and the win probability of bidding it
func (h *Handler) Predict(c *gin.Context) {
	req, ok := h.bindPredictRequest(c)
	if !ok {
		return
	}

	prediction, err := h.svc.Predict(c.Request.Context(), req.Listing())
	if err != nil {
		h.respondError(c, err, "Failed to predict")
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// PredictProbability returns the win probability of the submitted bid amount
func (h *Handler) PredictProbability(c *gin.Context) {
	req, ok := h.bindPredictRequest(c)
	if !ok {
		return
	}

	prediction, err := h.svc.PredictProbability(c.Request.Context(), req.Listing(), *req.BidAmount)
	if err != nil {
		h.respondError(c, err, "Failed to predict probability")
		return
	}
	c.JSON(http.StatusOK, prediction)
}

func (h *Handler) GetHistory(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	entry, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            entry.ListingID,
		"main_category": entry.MainCategory,
		"round_prices":  entry.Prices(),
		"first_seen_at": entry.FirstSeenAt,
		"updated_at":    entry.UpdatedAt,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

// respondError logs a pipeline failure and writes the status matching its kind
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	status := StatusFor(err)
	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": requestID(c),
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Warn(msg)
	}

	body := gin.H{"error": err.Error()}
	var perr *models.Error
	if errors.As(err, &perr) {
		body["error"] = perr.Message
		body["kind"] = perr.Kind
		body["retryable"] = perr.Retryable()
	}
	c.JSON(status, body)
}

// StatusFor maps a pipeline error to its HTTP status
func StatusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindInvalidRecord:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case models.KindRoundConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
