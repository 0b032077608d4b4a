package ports

import (
	"context"

	"parceltracker/internal/features/tracking/domain"
)

// TrackOptions carries the per-request knobs a carrier adapter may honor.
// Adapters ignore options that do not apply to their API.
type TrackOptions struct {
	// Language is the requested language code; each adapter resolves it
	// into whatever its carrier accepts.
	Language string
	// PostalCode is the recipient postal code, required by some DHL
	// services to unlock full event details.
	PostalCode string
	// Service narrows the query to one carrier service (DHL only).
	Service string
	// RequesterCountryCode hints where the request originates, which DHL
	// uses to localize some texts.
	RequesterCountryCode string
	// OriginCountryCode narrows ambiguous tracking numbers to shipments
	// from one origin country (DHL only).
	OriginCountryCode string
	// Limit caps the number of returned events, when the carrier
	// supports it. Zero means the adapter default.
	Limit int
	// Offset skips that many events for paging (DHL only).
	Offset int
}

// CarrierProvider is the port every carrier adapter implements.
// Adding a carrier means adding an implementation and registering it;
// dispatch never changes.
type CarrierProvider interface {
	// Key returns the lowercase carrier identifier (e.g. "dpd").
	Key() string
	// Track retrieves and normalizes the tracking data for one number.
	// An empty shipment list is a valid "not found" outcome; errors are
	// reserved for transport, credential and malformed-payload failures.
	Track(ctx context.Context, trackingNumber string, opts TrackOptions) (*domain.TrackingResponse, error)
	// TrackingURL returns a human-facing tracking page URL, or "" when
	// the carrier has no stable public page.
	TrackingURL(trackingNumber, language string) string
}
