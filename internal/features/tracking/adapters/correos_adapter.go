package adapter

import (
	"context"
	"fmt"
	"net/url"
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

// CorreosAdapter tracks shipments via the public Correos search API.
// No authentication required. Supported languages are EN, ES and FR;
// anything else makes the API answer 500, so unsupported languages are
// resolved to EN before the request.
type CorreosAdapter struct {
	client  *httpclient.Client
	baseURL string
	logger  *zap.Logger
}

// NewCorreosAdapter creates a CorreosAdapter on the shared transport.
func NewCorreosAdapter(client *httpclient.Client) *CorreosAdapter {
	return &CorreosAdapter{
		client:  client,
		baseURL: "https://api1.correos.es/digital-services/searchengines/api/v1/envios",
		logger:  logger.Named("adapter.correos"),
	}
}

// correosResponse mirrors the relevant parts of the Correos payload.
type correosResponse struct {
	Shipment []struct {
		ShipmentCode string `json:"shipmentCode"`
		Events       []struct {
			EventDate    string `json:"eventDate"` // DD/MM/YYYY
			EventTime    string `json:"eventTime"` // HH:MM:SS or HH:MM
			Phase        any    `json:"phase"`
			SummaryText  string `json:"summaryText"`
			ExtendedText string `json:"extendedText"`
			Codired      string `json:"codired"`
			EventCode    string `json:"eventCode"`
		} `json:"events"`
	} `json:"shipment"`
}

// Key returns the carrier identifier.
func (a *CorreosAdapter) Key() string {
	return "correos"
}

// Track fetches and normalizes Correos tracking data.
func (a *CorreosAdapter) Track(ctx context.Context, trackingNumber string, opts ports.TrackOptions) (*domain.TrackingResponse, error) {
	lang, normalizedFrom := locale.Resolve(opts.Language, a.Key())
	if normalizedFrom != "" {
		a.logger.Debug("Unsupported Correos language, using EN",
			zap.String("requested", normalizedFrom),
		)
	}

	params := url.Values{}
	params.Set("text", trackingNumber)
	params.Set("language", lang)

	resp, err := a.client.Get(ctx, a.baseURL, params, jsonHeaders())
	if err != nil {
		return nil, fmt.Errorf("correos request failed: %w", err)
	}

	// Invalid tracking numbers come back as HTML error pages with a 200
	// status. That is "no data", not a failure.
	if !resp.IsJSON() {
		return domain.NewTrackingResponse(a.Key(), nil), nil
	}

	var payload correosResponse
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("correos payload malformed: %w", err)
	}

	return a.normalize(&payload, trackingNumber), nil
}

func (a *CorreosAdapter) normalize(payload *correosResponse, trackingNumber string) *domain.TrackingResponse {
	if len(payload.Shipment) == 0 {
		return domain.NewTrackingResponse(a.Key(), nil)
	}

	first := payload.Shipment[0]

	events := make([]domain.TrackingEvent, 0, len(first.Events))
	for _, ev := range first.Events {
		ts, ok := timeparse.Compound(ev.EventDate, ev.EventTime, "02/01/2006", "15:04:05", "15:04")
		if !ok {
			// Keep the event: its text still carries tracking information.
			a.logger.Warn("Unparseable Correos event timestamp",
				zap.String("date", ev.EventDate),
				zap.String("time", ev.EventTime),
			)
			ts = time.Now().UTC()
		}
		events = append(events, domain.TrackingEvent{
			Timestamp:  ts,
			Status:     ev.SummaryText,
			Details:    ev.ExtendedText,
			StatusCode: ev.EventCode,
		})
	}
	domain.SortEvents(events)

	code := first.ShipmentCode
	if code == "" {
		code = trackingNumber
	}

	return domain.NewTrackingResponse(a.Key(), []domain.Shipment{{
		TrackingNumber: code,
		Carrier:        a.Key(),
		Status:         correosStatus(events),
		Events:         events,
	}})
}

// correosStatus infers the shipment status from the latest event text.
// Texts arrive in the requested language, so both Spanish and English
// keywords are checked.
func correosStatus(events []domain.TrackingEvent) domain.ShipmentStatus {
	if len(events) == 0 {
		return domain.StatusUnknown
	}
	latest := classify.Fold(events[len(events)-1].Status)

	switch {
	case strings.Contains(latest, "entregado") || strings.Contains(latest, "delivered"):
		return domain.StatusDelivered
	case strings.Contains(latest, "reparto") || strings.Contains(latest, "delivery"):
		return domain.StatusOutForDelivery
	case strings.Contains(latest, "transito") || strings.Contains(latest, "transit"):
		return domain.StatusInTransit
	case strings.Contains(latest, "admitido") || strings.Contains(latest, "received"):
		return domain.StatusInformationReceived
	default:
		return domain.StatusUnknown
	}
}

// TrackingURL returns the public Correos locator page for this shipment.
func (a *CorreosAdapter) TrackingURL(trackingNumber, language string) string {
	return "https://www.correos.es/es/es/herramientas/localizador/envios/detalle?tracking-number=" + url.QueryEscape(trackingNumber)
}
