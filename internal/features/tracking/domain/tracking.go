package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// ShipmentStatus represents the normalized state of a shipment.
// It is a closed set: adapters classify carrier-native vocabularies into
// exactly one of these values and never invent new ones.
type ShipmentStatus string

const (
	// StatusUnknown indicates the carrier data was absent or ambiguous.
	// It is a legitimate terminal classification, not an error.
	StatusUnknown ShipmentStatus = "unknown"
	// StatusInformationReceived indicates the carrier knows about the
	// shipment but has not physically received it yet.
	StatusInformationReceived ShipmentStatus = "information_received"
	// StatusInTransit indicates the shipment is moving between facilities.
	StatusInTransit ShipmentStatus = "in_transit"
	// StatusOutForDelivery indicates the shipment is on a delivery vehicle.
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	// StatusAvailableForPickup indicates the shipment waits at a pickup point.
	StatusAvailableForPickup ShipmentStatus = "available_for_pickup"
	// StatusDelivered indicates the shipment reached the recipient.
	StatusDelivered ShipmentStatus = "delivered"
	// StatusException indicates a delivery problem reported by the carrier.
	StatusException ShipmentStatus = "exception"
	// StatusReturned indicates the shipment went back to the sender.
	StatusReturned ShipmentStatus = "returned"
	// StatusCancelled indicates the shipment was cancelled.
	StatusCancelled ShipmentStatus = "cancelled"
)

// TrackingEvent is a single timestamped fact in a shipment's history.
// Events are immutable once built.
type TrackingEvent struct {
	// Timestamp is when the event occurred. Serialized as ISO-8601 UTC
	// with a trailing Z; zone-less carrier timestamps are tagged UTC.
	Timestamp time.Time `json:"timestamp"`
	// Status is the human-readable short text, in the carrier's language.
	Status string `json:"status"`
	// Location is an optional free-text place description.
	Location string `json:"location,omitempty"`
	// Details is an optional longer description.
	Details string `json:"details,omitempty"`
	// StatusCode is the carrier-specific code, opaque outside that carrier.
	StatusCode string `json:"status_code,omitempty"`
	// Extras holds carrier-specific metadata that does not fit the schema.
	Extras map[string]any `json:"extras,omitempty"`
}

// MarshalJSON serializes the event timestamp as UTC with a trailing Z.
func (e TrackingEvent) MarshalJSON() ([]byte, error) {
	type alias TrackingEvent
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{alias(e), FormatUTC(e.Timestamp)})
}

// Shipment is one tracked item with its normalized status and history.
type Shipment struct {
	// TrackingNumber is the shipment/parcel identifier.
	TrackingNumber string `json:"tracking_number"`
	// Carrier is the lowercase carrier key (e.g. "dhl", "gls").
	Carrier string `json:"carrier"`
	// Status is derived once during normalization from Events plus any
	// carrier-native status field; it is never recomputed afterwards.
	Status ShipmentStatus `json:"status"`
	// Events is the history in ascending timestamp order.
	Events []TrackingEvent `json:"events"`
	// ServiceType is the carrier product name, when reported.
	ServiceType string `json:"service_type,omitempty"`
	// Origin is a free-text origin location, when reported.
	Origin string `json:"origin,omitempty"`
	// Destination is a free-text destination location, when reported.
	Destination string `json:"destination,omitempty"`
	// EstimatedDelivery is the carrier's committed delivery time, if any.
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	// ActualDelivery is the recorded delivery time, if delivered.
	ActualDelivery *time.Time `json:"actual_delivery,omitempty"`
	// Extras holds carrier-specific shipment metadata.
	Extras map[string]any `json:"extras,omitempty"`
}

// MarshalJSON serializes the optional delivery timestamps as UTC with Z.
func (s Shipment) MarshalJSON() ([]byte, error) {
	type alias Shipment
	out := struct {
		alias
		EstimatedDelivery *string `json:"estimated_delivery,omitempty"`
		ActualDelivery    *string `json:"actual_delivery,omitempty"`
	}{alias: alias(s)}
	if s.EstimatedDelivery != nil {
		v := FormatUTC(*s.EstimatedDelivery)
		out.EstimatedDelivery = &v
	}
	if s.ActualDelivery != nil {
		v := FormatUTC(*s.ActualDelivery)
		out.ActualDelivery = &v
	}
	return json.Marshal(out)
}

// TrackingResponse is the top-level envelope returned by every adapter.
type TrackingResponse struct {
	// Shipments holds zero or more shipments. Empty means "not found" or
	// "no data", which is a valid, non-error outcome.
	Shipments []Shipment `json:"shipments"`
	// Provider is the carrier key the response came from.
	Provider string `json:"provider"`
	// QueryTimestamp is set once when the response is constructed.
	QueryTimestamp time.Time `json:"query_timestamp"`
}

// MarshalJSON serializes the query timestamp as UTC with a trailing Z.
func (r TrackingResponse) MarshalJSON() ([]byte, error) {
	type alias TrackingResponse
	return json.Marshal(struct {
		alias
		QueryTimestamp string `json:"query_timestamp"`
	}{alias(r), FormatUTC(r.QueryTimestamp)})
}

// NewTrackingResponse builds a response envelope with the query timestamp
// set to the current instant. A nil shipment slice becomes an empty one so
// the JSON wire shape is always an array.
func NewTrackingResponse(provider string, shipments []Shipment) *TrackingResponse {
	if shipments == nil {
		shipments = []Shipment{}
	}
	return &TrackingResponse{
		Shipments:      shipments,
		Provider:       provider,
		QueryTimestamp: time.Now().UTC(),
	}
}

// HasShipments reports whether the response contains any shipments.
func (r *TrackingResponse) HasShipments() bool {
	return len(r.Shipments) > 0
}

// PrimaryShipment returns the first shipment, or nil when there is none.
func (r *TrackingResponse) PrimaryShipment() *Shipment {
	if len(r.Shipments) == 0 {
		return nil
	}
	return &r.Shipments[0]
}

// SortEvents orders events ascending by timestamp. Carriers emit history
// newest-first, oldest-first or unordered; the unified model always carries
// ascending order. The sort is stable so same-instant events keep their
// carrier order.
func SortEvents(events []TrackingEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// FormatUTC renders a timestamp as ISO-8601 UTC with a literal trailing Z.
// Zone-less timestamps are assumed UTC by convention.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
