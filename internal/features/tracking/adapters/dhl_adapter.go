package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parceltracker/internal/core/httpclient"
	"parceltracker/internal/core/logger"
	"parceltracker/internal/core/timeparse"
	"parceltracker/internal/features/tracking/classify"
	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/locale"
	"parceltracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

const (
	dhlProdBase = "https://api-eu.dhl.com/track/shipments"
	dhlTestBase = "https://api-test.dhl.com/track/shipments"

	// UTAPI defaults to 5 events; request full history instead.
	dhlDefaultLimit = 50
)

// dhlStatusCodes maps the five UTAPI status codes onto the unified
// vocabulary.
var dhlStatusCodes = map[string]domain.ShipmentStatus{
	"delivered":   domain.StatusDelivered,
	"failure":     domain.StatusException,
	"pre-transit": domain.StatusInformationReceived,
	"transit":     domain.StatusInTransit,
}

// DHLAdapter tracks shipments via the DHL Unified Tracking API (UTAPI).
// Requires a DHL-API-Key; without one every query fails with
// ErrMissingCredentials.
type DHLAdapter struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
	logger  *zap.Logger
}

// NewDHLAdapter creates a DHLAdapter. server selects the UTAPI environment
// ("test" or anything else for production).
func NewDHLAdapter(client *httpclient.Client, apiKey, server string) *DHLAdapter {
	baseURL := dhlProdBase
	if strings.EqualFold(server, "test") {
		baseURL = dhlTestBase
	}
	return &DHLAdapter{
		client:  client,
		apiKey:  apiKey,
		baseURL: baseURL,
		logger:  logger.Named("adapter.dhl"),
	}
}

// dhlResponse mirrors the relevant parts of the UTAPI payload.
type dhlResponse struct {
	Shipments []struct {
		ID      string `json:"id"`
		Service string `json:"service"`
		Status  struct {
			Timestamp  string `json:"timestamp"`
			StatusCode string `json:"statusCode"`
			Status     string `json:"status"`
		} `json:"status"`
		Details struct {
			Product struct {
				ProductName string `json:"productName"`
			} `json:"product"`
			Origin      *dhlPlace `json:"origin"`
			Destination *dhlPlace `json:"destination"`
		} `json:"details"`
		Events []dhlEvent `json:"events"`
	} `json:"shipments"`
}

type dhlPlace struct {
	Address struct {
		AddressLocality string `json:"addressLocality"`
		CountryCode     string `json:"countryCode"`
	} `json:"address"`
}

type dhlEvent struct {
	Timestamp string `json:"timestamp"`
	Location  struct {
		Address struct {
			AddressLocality string `json:"addressLocality"`
			CountryCode     string `json:"countryCode"`
		} `json:"address"`
		ServicePoint struct {
			Label string `json:"label"`
		} `json:"servicePoint"`
	} `json:"location"`
	StatusCode     string `json:"statusCode"`
	Status         string `json:"status"`
	Description    string `json:"description"`
	StatusDetailed string `json:"statusDetailed"`
	Remark         string `json:"remark"`
	NextSteps      string `json:"nextSteps"`
}

// Key returns the carrier identifier.
func (a *DHLAdapter) Key() string {
	return "dhl"
}

// Track fetches and normalizes DHL tracking data. A 404 from UTAPI means
// "shipment not found" and yields an empty response.
func (a *DHLAdapter) Track(ctx context.Context, trackingNumber string, opts ports.TrackOptions) (*domain.TrackingResponse, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%w: DHL_API_KEY is not set", ErrMissingCredentials)
	}

	lang, _ := locale.Resolve(opts.Language, a.Key())

	params := url.Values{}
	params.Set("trackingNumber", trackingNumber)
	params.Set("language", lang)
	if opts.Service != "" {
		params.Set("service", opts.Service)
	}
	if opts.PostalCode != "" {
		// Required by parcel-de and parcel-nl for full event details.
		params.Set("recipientPostalCode", opts.PostalCode)
	}
	if opts.RequesterCountryCode != "" {
		params.Set("requesterCountryCode", opts.RequesterCountryCode)
	}
	if opts.OriginCountryCode != "" {
		params.Set("originCountryCode", opts.OriginCountryCode)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = dhlDefaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	headers := jsonHeaders()
	headers.Set("DHL-API-Key", a.apiKey)

	resp, err := a.client.Get(ctx, a.baseURL, params, headers)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return domain.NewTrackingResponse(a.Key(), nil), nil
		}
		return nil, fmt.Errorf("dhl request failed: %w", err)
	}

	var payload dhlResponse
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("dhl payload malformed: %w", err)
	}

	return a.normalize(&payload, trackingNumber), nil
}

func (a *DHLAdapter) normalize(payload *dhlResponse, trackingNumber string) *domain.TrackingResponse {
	if len(payload.Shipments) == 0 {
		return domain.NewTrackingResponse(a.Key(), nil)
	}

	first := payload.Shipments[0]

	events := make([]domain.TrackingEvent, 0, len(first.Events))
	for _, ev := range first.Events {
		ts, ok := timeparse.ISO(ev.Timestamp)
		if !ok {
			a.logger.Warn("Unparseable DHL event timestamp", zap.String("timestamp", ev.Timestamp))
			ts = time.Now().UTC()
		}
		status, details := selectDHLEventText(&ev)
		events = append(events, domain.TrackingEvent{
			Timestamp:  ts,
			Status:     status,
			Location:   dhlEventLocation(&ev),
			Details:    details,
			StatusCode: ev.StatusCode,
		})
	}
	domain.SortEvents(events)

	id := first.ID
	if id == "" {
		id = trackingNumber
	}

	return domain.NewTrackingResponse(a.Key(), []domain.Shipment{{
		TrackingNumber: id,
		Carrier:        a.Key(),
		Status:         dhlStatus(first.Status.StatusCode, events),
		Events:         events,
		ServiceType:    first.Details.Product.ProductName,
		Origin:         dhlPlaceText(first.Details.Origin),
		Destination:    dhlPlaceText(first.Details.Destination),
	}})
}

// dhlStatus resolves the shipment status: the shipment-level statusCode is
// canonical, then the latest event code, then free-text inference. UTAPI
// keeps reporting "transit" while the parcel is already on the delivery
// vehicle, so a text upgrade is applied on top of code-mapped transit.
func dhlStatus(shipmentCode string, events []domain.TrackingEvent) domain.ShipmentStatus {
	latestText := ""
	if len(events) > 0 {
		latest := events[len(events)-1]
		latestText = latest.Details
		if latestText == "" {
			latestText = latest.Status
		}
	}

	if mapped, ok := dhlStatusCodes[strings.ToLower(strings.TrimSpace(shipmentCode))]; ok {
		return classify.UpgradeOutForDelivery(mapped, latestText)
	}

	if len(events) == 0 {
		return domain.StatusUnknown
	}

	latest := events[len(events)-1]
	if mapped, ok := dhlStatusCodes[strings.ToLower(latest.StatusCode)]; ok {
		return classify.UpgradeOutForDelivery(mapped, latestText)
	}

	return classify.FromText(latestText)
}

// selectDHLEventText picks a human-friendly status and details pair.
// UTAPI sometimes puts cryptic short codes (ZN, PO) in the status field;
// the description is preferred then.
func selectDHLEventText(ev *dhlEvent) (string, string) {
	status := strings.TrimSpace(ev.Status)
	desc := strings.TrimSpace(ev.Description)
	if desc == "" {
		desc = strings.TrimSpace(ev.StatusDetailed)
	}

	out := status
	if looksLikeShortCode(status) && desc != "" {
		out = desc
	}
	if out == "" {
		out = desc
	}

	var details []string
	if desc != "" && out != desc {
		details = append(details, desc)
	}
	if next := strings.TrimSpace(ev.NextSteps); next != "" {
		details = append(details, "Next: "+next)
	}
	if remark := strings.TrimSpace(ev.Remark); remark != "" {
		details = append(details, "Remark: "+remark)
	}

	return out, strings.Join(details, " | ")
}

// looksLikeShortCode reports whether the status text is a cryptic 2-3
// letter uppercase code rather than a readable description.
func looksLikeShortCode(s string) bool {
	return s != "" && len(s) <= 3 && s == strings.ToUpper(s) && s != strings.ToLower(s)
}

func dhlEventLocation(ev *dhlEvent) string {
	locality := ev.Location.Address.AddressLocality
	country := ev.Location.Address.CountryCode
	switch {
	case locality != "" && country != "":
		return locality + ", " + country
	case locality != "":
		return locality
	default:
		return ev.Location.ServicePoint.Label
	}
}

func dhlPlaceText(place *dhlPlace) string {
	if place == nil {
		return ""
	}
	parts := []string{}
	if place.Address.AddressLocality != "" {
		parts = append(parts, place.Address.AddressLocality)
	}
	if place.Address.CountryCode != "" {
		parts = append(parts, place.Address.CountryCode)
	}
	return strings.Join(parts, ", ")
}

// TrackingURL returns the global DHL tracker page for this shipment.
func (a *DHLAdapter) TrackingURL(trackingNumber, language string) string {
	lang, _ := locale.Resolve(language, a.Key())
	return fmt.Sprintf("https://www.dhl.com/track?tracking-id=%s&language=%s",
		url.QueryEscape(trackingNumber), lang)
}
