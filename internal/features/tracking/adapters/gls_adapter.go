package adapter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parceltracker/internal/core/cache"
	"parceltracker/internal/core/httpclient"
	"parceltracker/internal/core/logger"
	"parceltracker/internal/core/timeparse"
	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/locale"
	"parceltracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

const glsTokenURL = "https://api.gls-group.net/oauth2/v1/token"

// glsServers maps environment names to track-and-trace base URLs.
var glsServers = map[string]string{
	"prod":    "https://api.gls-group.net/track-and-trace-v1/",
	"sandbox": "https://api-sandbox.gls-group.net/track-and-trace-v1/",
	"qas":     "https://api-qas.gls-group.net/track-and-trace-v1/",
}

// glsStatuses maps GLS parcel status codes onto the unified vocabulary.
// FINAL deliberately maps to unknown: it only says the lifecycle ended,
// not how.
var glsStatuses = map[string]domain.ShipmentStatus{
	"PLANNEDPICKUP": domain.StatusInformationReceived,
	"INPICKUP":      domain.StatusInformationReceived,
	"NOTPICKEDUP":   domain.StatusException,
	"PREADVICE":     domain.StatusInformationReceived,
	"INTRANSIT":     domain.StatusInTransit,
	"INDELIVERY":    domain.StatusOutForDelivery,
	"DELIVEREDPS":   domain.StatusDelivered,
	"DELIVERED":     domain.StatusDelivered,
	"INWAREHOUSE":   domain.StatusInTransit,
	"NOTDELIVERED":  domain.StatusException,
	"CANCELED":      domain.StatusCancelled,
	"FINAL":         domain.StatusUnknown,
}

// GLSTokenSource obtains OAuth2 client-credentials tokens for the GLS
// APIs, caching them until shortly before expiry when a cache is wired.
type GLSTokenSource struct {
	client       *httpclient.Client
	tokenURL     string
	clientID     string
	clientSecret string
	tokens       cache.Cache
	logger       *zap.Logger
}

// NewGLSTokenSource creates a token source. tokens may be nil, in which
// case every call hits the token endpoint.
func NewGLSTokenSource(client *httpclient.Client, clientID, clientSecret string, tokens cache.Cache) *GLSTokenSource {
	return &GLSTokenSource{
		client:       client,
		tokenURL:     glsTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokens:       tokens,
		logger:       logger.Named("adapter.gls.token"),
	}
}

func (ts *GLSTokenSource) cacheKey() string {
	return "gls:token:" + ts.clientID
}

// Token returns a valid access token, from cache when possible.
func (ts *GLSTokenSource) Token(ctx context.Context) (string, error) {
	if ts.clientID == "" || ts.clientSecret == "" {
		return "", fmt.Errorf("%w: GLS_CLIENT_ID/GLS_CLIENT_SECRET are not set", ErrMissingCredentials)
	}

	if ts.tokens != nil {
		if cached, err := ts.tokens.Get(ctx, ts.cacheKey()); err == nil {
			return string(cached), nil
		}
	}

	headers := jsonHeaders()
	basic := base64.StdEncoding.EncodeToString([]byte(ts.clientID + ":" + ts.clientSecret))
	headers.Set("Authorization", "Basic "+basic)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	resp, err := ts.client.PostForm(ctx, ts.tokenURL, form, headers)
	if err != nil {
		return "", fmt.Errorf("gls token request failed: %w", err)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := resp.JSON(&payload); err != nil {
		return "", fmt.Errorf("gls token payload malformed: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("gls token endpoint returned no access_token")
	}

	if ts.tokens != nil && payload.ExpiresIn > 60 {
		// Expire ahead of the carrier so a cached token is never stale.
		ttl := time.Duration(payload.ExpiresIn-30) * time.Second
		if err := ts.tokens.Set(ctx, ts.cacheKey(), []byte(payload.AccessToken), ttl); err != nil {
			ts.logger.Warn("Failed to cache GLS token", zap.Error(err))
		}
	}

	return payload.AccessToken, nil
}

// Invalidate drops the cached token, e.g. after the carrier rejected it.
func (ts *GLSTokenSource) Invalidate(ctx context.Context) {
	if ts.tokens == nil {
		return
	}
	if err := ts.tokens.Delete(ctx, ts.cacheKey()); err != nil {
		ts.logger.Warn("Failed to invalidate GLS token", zap.Error(err))
	}
}

// GLSAdapter tracks parcels via the GLS track-and-trace API. One reference
// may resolve to several parcels; each becomes its own shipment.
type GLSAdapter struct {
	client  *httpclient.Client
	tokens  *GLSTokenSource
	baseURL string
	logger  *zap.Logger
}

// NewGLSAdapter creates a GLSAdapter for the given environment
// ("prod", "sandbox"/"test" or "qas").
func NewGLSAdapter(client *httpclient.Client, tokens *GLSTokenSource, server string) *GLSAdapter {
	return &GLSAdapter{
		client:  client,
		tokens:  tokens,
		baseURL: glsServerBase(server),
		logger:  logger.Named("adapter.gls"),
	}
}

func glsServerBase(server string) string {
	switch strings.ToLower(server) {
	case "sb", "sandbox", "test":
		return glsServers["sandbox"]
	case "qas", "qa":
		return glsServers["qas"]
	default:
		return glsServers["prod"]
	}
}

// glsResponse mirrors the ParcelsResponseDTO shape.
type glsResponse struct {
	Parcels []struct {
		Requested      string `json:"requested"`
		Unitno         string `json:"unitno"`
		Status         string `json:"status"`
		StatusDateTime string `json:"statusDateTime"`
		Events         []struct {
			Code          string `json:"code"`
			Description   string `json:"description"`
			EventDateTime string `json:"eventDateTime"`
			City          string `json:"city"`
			PostalCode    string `json:"postalCode"`
			Country       string `json:"country"`
		} `json:"events"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"parcels"`
}

// Key returns the carrier identifier.
func (a *GLSAdapter) Key() string {
	return "gls"
}

// Track fetches and normalizes GLS tracking data for a reference.
func (a *GLSAdapter) Track(ctx context.Context, trackingNumber string, opts ports.TrackOptions) (*domain.TrackingResponse, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	lang, _ := locale.Resolve(opts.Language, a.Key())

	headers := jsonHeaders()
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("Accept-Language", lang)

	params := url.Values{}
	params.Set("showLinks", "false")
	params.Set("showEvents", "true")

	requestURL := a.baseURL + "tracking/simple/references/" + url.PathEscape(trackingNumber)

	resp, err := a.client.Get(ctx, requestURL, params, headers)
	if err != nil {
		// A cached token can outlive its validity when the carrier revokes
		// it early. Drop it and retry once with a fresh one.
		var statusErr *httpclient.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
			return nil, fmt.Errorf("gls request failed: %w", err)
		}

		a.logger.Warn("GLS rejected the access token, refreshing", zap.String("tracking_number", trackingNumber))
		a.tokens.Invalidate(ctx)

		token, err = a.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		headers.Set("Authorization", "Bearer "+token)

		resp, err = a.client.Get(ctx, requestURL, params, headers)
		if err != nil {
			return nil, fmt.Errorf("gls request failed: %w", err)
		}
	}

	var payload glsResponse
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("gls payload malformed: %w", err)
	}

	return a.normalize(&payload), nil
}

func (a *GLSAdapter) normalize(payload *glsResponse) *domain.TrackingResponse {
	var shipments []domain.Shipment

	for _, parcel := range payload.Parcels {
		// Unknown references come back as parcel entries with an error
		// code and no unit number. Skip them; an empty response is the
		// "not found" outcome.
		if parcel.Unitno == "" {
			if parcel.ErrorCode != "" {
				a.logger.Debug("GLS reference without parcel",
					zap.String("requested", parcel.Requested),
					zap.String("error_code", parcel.ErrorCode),
					zap.String("error_message", parcel.ErrorMessage),
				)
			}
			continue
		}

		events := make([]domain.TrackingEvent, 0, len(parcel.Events))
		for _, ev := range parcel.Events {
			ts, ok := timeparse.ISO(ev.EventDateTime)
			if !ok {
				a.logger.Warn("Unparseable GLS event timestamp", zap.String("timestamp", ev.EventDateTime))
				ts = time.Now().UTC()
			}
			text := ev.Description
			if text == "" {
				text = ev.Code
			}
			events = append(events, domain.TrackingEvent{
				Timestamp:  ts,
				Status:     text,
				Location:   composeLocation(ev.City, ev.PostalCode, ev.Country),
				Details:    text,
				StatusCode: ev.Code,
			})
		}
		domain.SortEvents(events)

		status, ok := glsStatuses[strings.ToUpper(parcel.Status)]
		if !ok {
			if parcel.Status != "" {
				a.logger.Warn("Unknown GLS status code", zap.String("status", parcel.Status))
			}
			status = domain.StatusUnknown
		}

		shipments = append(shipments, domain.Shipment{
			TrackingNumber: parcel.Unitno,
			Carrier:        a.Key(),
			Status:         status,
			Events:         events,
		})
	}

	return domain.NewTrackingResponse(a.Key(), shipments)
}

// composeLocation joins city, postal code and country the way carriers
// print addresses: "City 12345, CC".
func composeLocation(city, postal, country string) string {
	city = strings.TrimSpace(city)
	postal = strings.TrimSpace(postal)
	country = strings.TrimSpace(country)

	left := city
	if postal != "" {
		if left != "" {
			left += " " + postal
		} else {
			left = postal
		}
	}
	switch {
	case left != "" && country != "":
		return left + ", " + country
	case left != "":
		return left
	default:
		return country
	}
}

// TrackingURL returns "" because GLS has no stable public tracking page
// keyed by unit number alone.
func (a *GLSAdapter) TrackingURL(trackingNumber, language string) string {
	return ""
}
