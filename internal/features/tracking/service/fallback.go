package service

import (
	"errors"
	"fmt"
	"time"

	"parceltracker/internal/core/httpclient"
	"parceltracker/internal/features/tracking/domain"
)

// BuildFallback builds a minimal well-formed response for a failed
// tracking request: one shipment with unknown status and a single
// diagnostic event describing the failure.
func BuildFallback(carrier, trackingNumber string, cause error) *domain.TrackingResponse {
	details := "Unknown error"
	var statusErr *httpclient.StatusError
	if errors.As(cause, &statusErr) {
		details = fmt.Sprintf("HTTP %d: %s", statusErr.StatusCode, statusErr.ProviderMessage())
	} else if cause != nil {
		details = cause.Error()
	}

	return domain.NewTrackingResponse(carrier, []domain.Shipment{{
		TrackingNumber: trackingNumber,
		Carrier:        carrier,
		Status:         domain.StatusUnknown,
		Events: []domain.TrackingEvent{{
			Timestamp: time.Now().UTC(),
			Status:    "Error fetching tracking data",
			Details:   details,
		}},
	}})
}
