package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"parceltracker/internal/core/logger"
	adapter "parceltracker/internal/features/tracking/adapters"
	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// ErrCarrierNotSupported is returned when no provider is registered for
// the requested carrier.
var ErrCarrierNotSupported = errors.New("carrier not supported")

// TrackResult is the outcome of a tracking request. When Degraded is set,
// Response is a fallback built from Err rather than carrier data.
type TrackResult struct {
	Response *domain.TrackingResponse
	Degraded bool
	Err      error
}

// TrackingService dispatches tracking requests to carrier providers and
// applies the strict/non-strict error boundary.
type TrackingService struct {
	providers map[string]ports.CarrierProvider
	logger    *zap.Logger
}

// NewTrackingService creates a TrackingService with the given providers.
// A later provider with a duplicate key replaces the earlier one.
func NewTrackingService(providers []ports.CarrierProvider) *TrackingService {
	byKey := make(map[string]ports.CarrierProvider, len(providers))
	for _, p := range providers {
		byKey[p.Key()] = p
	}
	return &TrackingService{
		providers: byKey,
		logger:    logger.Named("tracking.service"),
	}
}

// Track retrieves tracking data for a carrier and tracking number.
//
// Provider failures follow the strict flag: strict mode propagates them
// wrapped, otherwise the result carries a fallback response with Degraded
// set so callers can still render a well-formed body. Unsupported carriers
// and missing credentials always propagate, since retrying the carrier
// will never produce data.
func (s *TrackingService) Track(ctx context.Context, carrier, trackingNumber string, opts ports.TrackOptions, strict bool) (*TrackResult, error) {
	provider, ok := s.providers[carrier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCarrierNotSupported, carrier)
	}

	response, err := provider.Track(ctx, trackingNumber, opts)
	if err == nil {
		return &TrackResult{Response: response}, nil
	}

	if errors.Is(err, adapter.ErrMissingCredentials) {
		return nil, err
	}
	if strict {
		return nil, fmt.Errorf("tracking %s shipment %s: %w", carrier, trackingNumber, err)
	}

	s.logger.Warn("Provider failed, building fallback response",
		zap.String("carrier", carrier),
		zap.String("tracking_number", trackingNumber),
		zap.Error(err),
	)

	return &TrackResult{
		Response: BuildFallback(carrier, trackingNumber, err),
		Degraded: true,
		Err:      err,
	}, nil
}

// TrackingURL returns the public tracking page URL for a carrier, or ""
// when the carrier has no page addressable by tracking number alone.
func (s *TrackingService) TrackingURL(carrier, trackingNumber, language string) (string, error) {
	provider, ok := s.providers[carrier]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCarrierNotSupported, carrier)
	}
	return provider.TrackingURL(trackingNumber, language), nil
}

// Carriers returns the registered carrier keys in sorted order.
func (s *TrackingService) Carriers() []string {
	keys := make([]string, 0, len(s.providers))
	for key := range s.providers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
