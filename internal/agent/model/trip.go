package model

import (
	"context"
	"strings"
	"time"

	errx "github.com/tripgenie/agent-server/internal/core/error"
)

// ReplanRequest is a structured trip plus the disruption alert that invalidates it.
type ReplanRequest struct {
	UserID      string         `json:"userId"`
	TripID      string         `json:"tripId"`
	Destination string         `json:"destination"`
	StartDate   string         `json:"startDate"`
	EndDate     string         `json:"endDate"`
	Guests      int            `json:"guests"`
	Budget      string         `json:"budget"`
	TripType    string         `json:"tripType"`
	AIResponse  string         `json:"aiResponse"`
	Alert       map[string]any `json:"alert"`
}

// Validate checks the fields the replanning prompt cannot do without.
// userId/tripId are optional; they only key the stored record.
func (r ReplanRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Destination) == "":
		return errx.Validation("destination is required")
	case strings.TrimSpace(r.StartDate) == "":
		return errx.Validation("startDate is required")
	case strings.TrimSpace(r.EndDate) == "":
		return errx.Validation("endDate is required")
	case r.Guests < 1:
		return errx.Validation("guests must be at least 1")
	}
	return nil
}

// ReplanRecord is the last replanned itinerary stored for a trip.
type ReplanRecord struct {
	UserID             string         `json:"userId"`
	TripID             string         `json:"tripId"`
	Destination        string         `json:"destination"`
	PreviousItinerary  string         `json:"previousItinerary"`
	ReplannedItinerary string         `json:"replannedItinerary"`
	Alert              map[string]any `json:"alert,omitempty"`
	ReplannedAt        time.Time      `json:"replannedAt"`
}

type ReplanRecordRepository interface {
	// SaveReplan stores (overwrites) the record for rec.UserID/rec.TripID.
	SaveReplan(ctx context.Context, rec ReplanRecord) error

	// LoadReplan returns the stored record or a not-found error.
	LoadReplan(ctx context.Context, userID, tripID string) (*ReplanRecord, error)
}

// AlertCheckRequest asks for a weather assessment of an upcoming trip.
type AlertCheckRequest struct {
	Destination string `json:"destination"`
	StartDate   string `json:"startDate"`
}
