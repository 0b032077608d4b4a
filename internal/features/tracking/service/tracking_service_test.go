package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parceltracker/internal/core/httpclient"
	adapter "parceltracker/internal/features/tracking/adapters"
	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/ports"
)

// mockProvider is a mock implementation of CarrierProvider for testing.
type mockProvider struct {
	key            string
	returnResponse *domain.TrackingResponse
	returnError    error
	trackingURL    string
}

// Key implements CarrierProvider.
func (m *mockProvider) Key() string {
	return m.key
}

// Track implements CarrierProvider.
func (m *mockProvider) Track(ctx context.Context, trackingNumber string, opts ports.TrackOptions) (*domain.TrackingResponse, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	return m.returnResponse, nil
}

// TrackingURL implements CarrierProvider.
func (m *mockProvider) TrackingURL(trackingNumber, language string) string {
	return m.trackingURL
}

// TestTrackingService_Track_Success verifies successful dispatch to the
// matching provider.
func TestTrackingService_Track_Success(t *testing.T) {
	expected := domain.NewTrackingResponse("correos", []domain.Shipment{{
		TrackingNumber: "PK123",
		Carrier:        "correos",
		Status:         domain.StatusInTransit,
	}})

	svc := NewTrackingService([]ports.CarrierProvider{
		&mockProvider{key: "correos", returnResponse: expected},
	})

	result, err := svc.Track(context.Background(), "correos", "PK123", ports.TrackOptions{}, false)

	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Equal(t, expected, result.Response)
}

// TestTrackingService_Track_CarrierNotSupported verifies unknown carriers
// error regardless of strict mode.
func TestTrackingService_Track_CarrierNotSupported(t *testing.T) {
	svc := NewTrackingService([]ports.CarrierProvider{
		&mockProvider{key: "correos"},
	})

	for _, strict := range []bool{true, false} {
		result, err := svc.Track(context.Background(), "fedex", "PK123", ports.TrackOptions{}, strict)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrCarrierNotSupported)
	}
}

// TestTrackingService_Track_StrictPropagates verifies strict mode wraps
// and propagates provider failures.
func TestTrackingService_Track_StrictPropagates(t *testing.T) {
	providerErr := errors.New("connection reset")
	svc := NewTrackingService([]ports.CarrierProvider{
		&mockProvider{key: "dhl", returnError: providerErr},
	})

	result, err := svc.Track(context.Background(), "dhl", "PK123", ports.TrackOptions{}, true)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, providerErr)
	assert.Contains(t, err.Error(), "dhl")
}

// TestTrackingService_Track_FallbackOnFailure verifies non-strict mode
// converts provider failures into a degraded fallback response.
func TestTrackingService_Track_FallbackOnFailure(t *testing.T) {
	statusErr := &httpclient.StatusError{
		StatusCode: 503,
		Body:       []byte(`{"message": "upstream unavailable"}`),
	}
	svc := NewTrackingService([]ports.CarrierProvider{
		&mockProvider{key: "dpd", returnError: fmt.Errorf("dpd request failed: %w", statusErr)},
	})

	result, err := svc.Track(context.Background(), "dpd", "PK123", ports.TrackOptions{}, false)

	require.NoError(t, err)
	assert.True(t, result.Degraded)
	require.Error(t, result.Err)

	shipment := result.Response.PrimaryShipment()
	require.NotNil(t, shipment)
	assert.Equal(t, "PK123", shipment.TrackingNumber)
	assert.Equal(t, domain.StatusUnknown, shipment.Status)
	require.Len(t, shipment.Events, 1)
	assert.Equal(t, "Error fetching tracking data", shipment.Events[0].Status)
	assert.Equal(t, "HTTP 503: upstream unavailable", shipment.Events[0].Details)
}

// TestTrackingService_Track_MissingCredentialsAlwaysPropagate verifies
// configuration errors are never masked by the fallback.
func TestTrackingService_Track_MissingCredentialsAlwaysPropagate(t *testing.T) {
	credErr := fmt.Errorf("%w: GLS_CLIENT_ID/GLS_CLIENT_SECRET are not set", adapter.ErrMissingCredentials)
	svc := NewTrackingService([]ports.CarrierProvider{
		&mockProvider{key: "gls", returnError: credErr},
	})

	result, err := svc.Track(context.Background(), "gls", "REF1", ports.TrackOptions{}, false)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, adapter.ErrMissingCredentials)
}

// TestTrackingService_Carriers verifies registered keys come back sorted.
func TestTrackingService_Carriers(t *testing.T) {
	svc := NewTrackingService([]ports.CarrierProvider{
		&mockProvider{key: "gls"},
		&mockProvider{key: "correos"},
		&mockProvider{key: "dhl"},
	})

	assert.Equal(t, []string{"correos", "dhl", "gls"}, svc.Carriers())
}

func TestTrackingService_TrackingURL(t *testing.T) {
	svc := NewTrackingService([]ports.CarrierProvider{
		&mockProvider{key: "correos", trackingURL: "https://www.correos.es/track?n=PK123"},
		&mockProvider{key: "ctt", trackingURL: ""},
	})

	url, err := svc.TrackingURL("correos", "PK123", "es")
	require.NoError(t, err)
	assert.Equal(t, "https://www.correos.es/track?n=PK123", url)

	url, err = svc.TrackingURL("ctt", "PK123", "es")
	require.NoError(t, err)
	assert.Empty(t, url, "carrier without a public page")

	_, err = svc.TrackingURL("fedex", "PK123", "es")
	assert.ErrorIs(t, err, ErrCarrierNotSupported)
}

func TestBuildFallback_NonHTTPError(t *testing.T) {
	resp := BuildFallback("correos", "PK123", errors.New("dial tcp: timeout"))

	shipment := resp.PrimaryShipment()
	require.NotNil(t, shipment)
	require.Len(t, shipment.Events, 1)
	assert.Equal(t, "dial tcp: timeout", shipment.Events[0].Details)
}
