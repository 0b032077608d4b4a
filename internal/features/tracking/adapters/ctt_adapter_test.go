package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/ports"
)

const cttPayload = `{
	"data": {
		"shipping_code": "0082800082909720118884",
		"client_reference": "ORDER-9912",
		"origin_name": "COSLADA",
		"destin_province_name": "VALENCIA",
		"committed_delivery_datetime": "2025-09-12T21:00:00",
		"delivery_date": "null",
		"declared_weight": 1.2,
		"item_count": 1,
		"shipping_history": {"events": [
			{"code": "1500", "type": "REPARTO", "description": "En reparto",
			 "detail": {"item_event_datetime": "2025-09-12T08:30:00",
			            "item_event_text": "Salida a reparto",
			            "External_event_text": "null",
			            "event_courier_code": "null"}},
			{"code": "1000", "type": "TRANSITO", "description": "En tránsito",
			 "detail": {"item_event_datetime": "2025-09-11T19:00:00",
			            "item_event_text": "null"}},
			{"code": "0000", "type": "ADMISION", "description": "Admitido",
			 "detail": {"item_event_datetime": "2025-09-11T10:00:00"}}
		]}
	}
}`

func TestCTTAdapter_Track(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0082800082909720118884", r.URL.Query().Get("sc"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cttPayload))
	}))
	defer ts.Close()

	adapter := NewCTTAdapter(testTransport())
	adapter.baseURL = ts.URL

	resp, err := adapter.Track(context.Background(), "0082800082909720118884", ports.TrackOptions{})
	require.NoError(t, err)
	require.True(t, resp.HasShipments())

	shipment := resp.PrimaryShipment()
	assert.Equal(t, "0082800082909720118884", shipment.TrackingNumber)
	assert.Equal(t, "COSLADA", shipment.Origin)
	assert.Equal(t, "VALENCIA", shipment.Destination, "province used when name absent")

	// Latest event code 1500 wins the classification.
	assert.Equal(t, domain.StatusOutForDelivery, shipment.Status)

	require.Len(t, shipment.Events, 3)
	assert.Equal(t, "Admitido", shipment.Events[0].Status)
	assert.Equal(t, "0000", shipment.Events[0].StatusCode)
	assert.Equal(t, "Salida a reparto", shipment.Events[2].Details)
	assert.Empty(t, shipment.Events[1].Details, `"null" detail strings are dropped`)

	require.NotNil(t, shipment.EstimatedDelivery)
	assert.Equal(t, time.Date(2025, 9, 12, 21, 0, 0, 0, time.UTC), shipment.EstimatedDelivery.UTC())
	assert.Nil(t, shipment.ActualDelivery, "not delivered yet")

	assert.Equal(t, "ORDER-9912", shipment.Extras["client_reference"])
	assert.Equal(t, 1.2, shipment.Extras["declared_weight"])
}

func TestCTTAdapter_DeliveredSetsActualDelivery(t *testing.T) {
	payload := `{
		"data": {
			"shipping_code": "X1",
			"delivery_date": "2025-09-12T14:05:00",
			"shipping_history": {"events": [
				{"code": "9999", "description": "Entregado",
				 "detail": {"item_event_datetime": "2025-09-12T14:05:00"}}
			]}
		}
	}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer ts.Close()

	adapter := NewCTTAdapter(testTransport())
	adapter.baseURL = ts.URL

	resp, err := adapter.Track(context.Background(), "X1", ports.TrackOptions{})
	require.NoError(t, err)

	shipment := resp.PrimaryShipment()
	require.NotNil(t, shipment)
	assert.Equal(t, domain.StatusDelivered, shipment.Status, "unknown code falls back to text")
	require.NotNil(t, shipment.ActualDelivery)
	assert.Equal(t, time.Date(2025, 9, 12, 14, 5, 0, 0, time.UTC), shipment.ActualDelivery.UTC())
}

// TestCTTAdapter_AccentInsensitiveClassification verifies folded Spanish
// phrases classify regardless of accents and casing.
func TestCTTAdapter_AccentInsensitiveClassification(t *testing.T) {
	events := []domain.TrackingEvent{{
		Timestamp: time.Now(),
		Status:    "EN TRÁNSITO HACIA DESTINO",
	}}
	assert.Equal(t, domain.StatusInTransit, cttStatus(events))

	events[0].Status = "Disponible para recoger en punto de recogida"
	assert.Equal(t, domain.StatusAvailableForPickup, cttStatus(events))
}

func TestCTTAdapter_EmptyDataMeansNoShipments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": null, "data": null}`))
	}))
	defer ts.Close()

	adapter := NewCTTAdapter(testTransport())
	adapter.baseURL = ts.URL

	resp, err := adapter.Track(context.Background(), "unknown", ports.TrackOptions{})
	require.NoError(t, err)
	assert.Empty(t, resp.Shipments)
}

// TestCTTAdapter_NormalizationIsIdempotent verifies normalizing the same
// raw payload twice yields structurally equal responses, the query
// timestamp aside.
func TestCTTAdapter_NormalizationIsIdempotent(t *testing.T) {
	var payload cttResponse
	require.NoError(t, json.Unmarshal([]byte(cttPayload), &payload))

	adapter := NewCTTAdapter(testTransport())
	first := adapter.normalize(&payload, "0082800082909720118884")
	second := adapter.normalize(&payload, "0082800082909720118884")

	first.QueryTimestamp = second.QueryTimestamp
	assert.Equal(t, first, second)
}

func TestCTTString(t *testing.T) {
	assert.Empty(t, cttString("null"))
	assert.Empty(t, cttString("NULL"))
	assert.Empty(t, cttString("  "))
	assert.Equal(t, "value", cttString(" value "))
}
