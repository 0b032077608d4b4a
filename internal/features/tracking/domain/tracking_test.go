package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackingResponseDefaults(t *testing.T) {
	resp := NewTrackingResponse("correos", nil)

	assert.Equal(t, "correos", resp.Provider)
	assert.NotNil(t, resp.Shipments)
	assert.False(t, resp.HasShipments())
	assert.Nil(t, resp.PrimaryShipment())
	assert.WithinDuration(t, time.Now().UTC(), resp.QueryTimestamp, 2*time.Second)
}

func TestPrimaryShipment(t *testing.T) {
	resp := NewTrackingResponse("dhl", []Shipment{
		{TrackingNumber: "A", Carrier: "dhl", Status: StatusInTransit},
		{TrackingNumber: "B", Carrier: "dhl", Status: StatusDelivered},
	})

	require.True(t, resp.HasShipments())
	assert.Equal(t, "A", resp.PrimaryShipment().TrackingNumber)
}

func TestSortEventsAscendingAndStable(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []TrackingEvent{
		{Timestamp: base.Add(2 * time.Hour), Status: "delivered"},
		{Timestamp: base, Status: "admitted"},
		{Timestamp: base.Add(time.Hour), Status: "first at same instant"},
		{Timestamp: base.Add(time.Hour), Status: "second at same instant"},
	}

	SortEvents(events)

	assert.Equal(t, "admitted", events[0].Status)
	assert.Equal(t, "first at same instant", events[1].Status)
	assert.Equal(t, "second at same instant", events[2].Status)
	assert.Equal(t, "delivered", events[3].Status)
}

func TestTimestampsSerializeAsUTCWithZ(t *testing.T) {
	madrid := time.FixedZone("CEST", 2*60*60)
	eta := time.Date(2025, 7, 2, 9, 0, 0, 0, madrid)
	resp := NewTrackingResponse("gls", []Shipment{{
		TrackingNumber:    "12345",
		Carrier:           "gls",
		Status:            StatusDelivered,
		Events:            []TrackingEvent{{Timestamp: time.Date(2025, 7, 1, 14, 30, 0, 0, madrid), Status: "Delivered"}},
		EstimatedDelivery: &eta,
	}})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	shipment := decoded["shipments"].([]any)[0].(map[string]any)
	event := shipment["events"].([]any)[0].(map[string]any)
	assert.Equal(t, "2025-07-01T12:30:00Z", event["timestamp"])
	assert.Equal(t, "2025-07-02T07:00:00Z", shipment["estimated_delivery"])
	assert.NotContains(t, shipment, "actual_delivery")
}

func TestEmptyShipmentsMarshalAsArray(t *testing.T) {
	raw, err := json.Marshal(NewTrackingResponse("ctt", nil))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"shipments":[]`)
}
