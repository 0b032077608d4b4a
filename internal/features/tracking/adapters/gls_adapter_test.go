package adapter

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parceltracker/internal/core/cache"
	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/ports"
)

const glsParcelsPayload = `{
	"parcels": [
		{"requested": "REF1", "unitno": "12345678901",
		 "status": "DELIVEREDPS", "statusDateTime": "2024-10-11T15:24:57+0200",
		 "events": [
			{"code": "3.120", "description": "Delivered to ParcelShop",
			 "eventDateTime": "2024-10-11T15:24:57+0200",
			 "city": "Madrid", "postalCode": "28001", "country": "ES"},
			{"code": "0.100", "description": "Preadvice received",
			 "eventDateTime": "2024-10-09T08:00:00+0200"}
		 ]},
		{"requested": "REF1", "unitno": "12345678902",
		 "status": "INTRANSIT", "events": []}
	]
}`

func newGLSTokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-1:secret-1"))
		assert.Equal(t, expected, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok-abc", "expires_in": 3600}`))
	}))
}

func TestGLSAdapter_Track(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenServer := newGLSTokenServer(t, &tokenCalls)
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "ES", r.Header.Get("Accept-Language"))
		assert.Equal(t, "/tracking/simple/references/REF1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("showEvents"))
		assert.Equal(t, "false", r.URL.Query().Get("showLinks"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(glsParcelsPayload))
	}))
	defer apiServer.Close()

	tokens := NewGLSTokenSource(testTransport(), "client-1", "secret-1", nil)
	tokens.tokenURL = tokenServer.URL

	adapter := NewGLSAdapter(testTransport(), tokens, "prod")
	adapter.baseURL = apiServer.URL + "/"

	resp, err := adapter.Track(context.Background(), "REF1", ports.TrackOptions{Language: "es"})
	require.NoError(t, err)
	require.Len(t, resp.Shipments, 2, "one shipment per parcel")

	first := resp.Shipments[0]
	assert.Equal(t, "12345678901", first.TrackingNumber)
	assert.Equal(t, domain.StatusDelivered, first.Status, "DELIVEREDPS classifies as delivered")
	require.Len(t, first.Events, 2)
	assert.Equal(t, "Preadvice received", first.Events[0].Status, "events sorted ascending")
	assert.Equal(t, "Madrid 28001, ES", first.Events[1].Location)
	assert.Equal(t, "3.120", first.Events[1].StatusCode)

	second := resp.Shipments[1]
	assert.Equal(t, domain.StatusInTransit, second.Status)
}

func TestGLSAdapter_StatusMap(t *testing.T) {
	cases := []struct {
		code string
		want domain.ShipmentStatus
	}{
		{"PREADVICE", domain.StatusInformationReceived},
		{"INTRANSIT", domain.StatusInTransit},
		{"INDELIVERY", domain.StatusOutForDelivery},
		{"DELIVEREDPS", domain.StatusDelivered},
		{"DELIVERED", domain.StatusDelivered},
		{"NOTDELIVERED", domain.StatusException},
		{"CANCELED", domain.StatusCancelled},
		{"FINAL", domain.StatusUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, glsStatuses[tc.code], "code %q", tc.code)
	}
}

// TestGLSAdapter_SkipsParcelsWithoutUnitNumber verifies unknown references
// (error entries) yield an empty response, not an error.
func TestGLSAdapter_SkipsParcelsWithoutUnitNumber(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenServer := newGLSTokenServer(t, &tokenCalls)
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"parcels": [{"requested": "NOPE", "errorCode": "E_404_01", "errorMessage": "Resource Not Found"}]}`))
	}))
	defer apiServer.Close()

	tokens := NewGLSTokenSource(testTransport(), "client-1", "secret-1", nil)
	tokens.tokenURL = tokenServer.URL

	adapter := NewGLSAdapter(testTransport(), tokens, "prod")
	adapter.baseURL = apiServer.URL + "/"

	resp, err := adapter.Track(context.Background(), "NOPE", ports.TrackOptions{})
	require.NoError(t, err)
	assert.Empty(t, resp.Shipments)
}

func TestGLSAdapter_MissingCredentials(t *testing.T) {
	tokens := NewGLSTokenSource(testTransport(), "", "", nil)
	adapter := NewGLSAdapter(testTransport(), tokens, "prod")

	_, err := adapter.Track(context.Background(), "REF1", ports.TrackOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

// TestGLSTokenSource_CachesToken verifies a Redis-backed token source only
// hits the token endpoint once while the token is fresh.
func TestGLSTokenSource_CachesToken(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenServer := newGLSTokenServer(t, &tokenCalls)
	defer tokenServer.Close()

	mr := miniredis.RunT(t)
	tokenCache, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer tokenCache.Close()

	tokens := NewGLSTokenSource(testTransport(), "client-1", "secret-1", tokenCache)
	tokens.tokenURL = tokenServer.URL

	ctx := context.Background()
	tok, err := tokens.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok)

	tok, err = tokens.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok)
	assert.Equal(t, int32(1), tokenCalls.Load(), "second call served from cache")

	// After invalidation the endpoint is consulted again.
	tokens.Invalidate(ctx)
	_, err = tokens.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load())
}

// TestGLSAdapter_RefreshesRejectedToken verifies a 401 on the tracking call
// drops the cached token and retries once with a fresh one.
func TestGLSAdapter_RefreshesRejectedToken(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenServer := newGLSTokenServer(t, &tokenCalls)
	defer tokenServer.Close()

	var apiCalls atomic.Int32
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message": "invalid token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(glsParcelsPayload))
	}))
	defer apiServer.Close()

	mr := miniredis.RunT(t)
	tokenCache, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer tokenCache.Close()

	ctx := context.Background()
	require.NoError(t, tokenCache.Set(ctx, "gls:token:client-1", []byte("stale"), time.Hour))

	tokens := NewGLSTokenSource(testTransport(), "client-1", "secret-1", tokenCache)
	tokens.tokenURL = tokenServer.URL

	adapter := NewGLSAdapter(testTransport(), tokens, "prod")
	adapter.baseURL = apiServer.URL + "/"

	resp, err := adapter.Track(ctx, "REF1", ports.TrackOptions{})
	require.NoError(t, err)
	assert.Len(t, resp.Shipments, 2)
	assert.Equal(t, int32(2), apiCalls.Load(), "first call rejected, retry succeeded")
	assert.Equal(t, int32(1), tokenCalls.Load(), "stale cache entry replaced by one fetch")
}

func TestGLSServerSelection(t *testing.T) {
	assert.Equal(t, glsServers["prod"], glsServerBase("prod"))
	assert.Equal(t, glsServers["prod"], glsServerBase(""))
	assert.Equal(t, glsServers["sandbox"], glsServerBase("test"))
	assert.Equal(t, glsServers["qas"], glsServerBase("qa"))
}

func TestGLSAdapter_NoTrackingURL(t *testing.T) {
	tokens := NewGLSTokenSource(testTransport(), "c", "s", nil)
	adapter := NewGLSAdapter(testTransport(), tokens, "prod")
	assert.Empty(t, adapter.TrackingURL("12345678901", "es"))
}

func TestComposeLocation(t *testing.T) {
	assert.Equal(t, "Madrid 28001, ES", composeLocation("Madrid", "28001", "ES"))
	assert.Equal(t, "Madrid", composeLocation("Madrid", "", ""))
	assert.Equal(t, "ES", composeLocation("", "", "ES"))
	assert.Equal(t, "28001, ES", composeLocation("", "28001", "ES"))
	assert.Empty(t, composeLocation("", "", ""))
}
