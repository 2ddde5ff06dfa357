package models

import "time"

// Main category values after normalization
const (
	CategoryVehicle = "vehicle"
	CategoryOther   = "other"
)

// Missing marks a classification field that no lookup table could fill
const Missing = "missing"

// MaxRound is the last bidding round a listing can reach
const MaxRound = 5

// ClampRound limits a round number to [1, MaxRound]
func ClampRound(round int) int {
	if round < 1 {
		return 1
	}
	if round > MaxRound {
		return MaxRound
	}
	return round
}

// RawListing is a listing as it arrives from the front-end or a CSV export
type RawListing struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	MainCategory    string `json:"mainCategory"`
	SubCategory     string `json:"subCategory"`
	Title           string `json:"title"`
	Name            string `json:"name"`
	EndDate         string `json:"endDate"`
	BidType         string `json:"bidType"`
	AssetType       string `json:"assetType"`
	Usage           string `json:"usage"`
	Manufacturer    string `json:"manufacturer"`
	ModelName       string `json:"modelName"`
	EvaluationPrice string `json:"evaluationPrice"`
	FailureCount    string `json:"failureCount"`
	Agency          string `json:"agency"`
	MinBidPrice     string `json:"minBidPrice"`

	// CurrentRound overrides FailureCount when the source carries an explicit round column
	CurrentRound *int `json:"-"`
}

// Listing is the canonical, typed form of a RawListing
type Listing struct {
	ID           string
	MainCategory string
	MidCategory  string
	Title        string
	Organization string
	CloseAt      *time.Time
	MinBidPrice  float64
	CurrentRound int
}

// IsVehicle reports whether the listing is routed to the vehicle models
func (l Listing) IsVehicle() bool {
	return l.MainCategory == CategoryVehicle
}

// VehicleInfo holds the vehicle-only classification columns
type VehicleInfo struct {
	VehicleType  string `json:"vehicle_type"`
	SubCategory  string `json:"sub_category"`
	MidCategory  string `json:"mid_category"`
	Manufacturer string `json:"manufacturer"`
}

// ClassifiedListing is a listing after the category and organization classifiers ran
type ClassifiedListing struct {
	Listing
	OrganizationGroup string
	Vehicle           *VehicleInfo
}
