package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"parceltracker/internal/core/httpclient"
	"parceltracker/internal/core/logger"
	"parceltracker/internal/core/timeparse"
	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/locale"
	"parceltracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// DPDAdapter tracks parcels via the public DPD PLC (Parcel Life Cycle)
// API. No authentication required, but the locale segment is strict:
// it must be lowercase_UPPERCASE and from a known set, otherwise the API
// answers 429 or 500 instead of falling back. Invalid tracking numbers
// produce a redirect to an HTML page rather than an error status.
type DPDAdapter struct {
	client  *httpclient.Client
	baseURL string
	logger  *zap.Logger
}

// NewDPDAdapter creates a DPDAdapter on the shared transport.
func NewDPDAdapter(client *httpclient.Client) *DPDAdapter {
	return &DPDAdapter{
		client:  client,
		baseURL: "https://tracking.dpd.de/rest/plc",
		logger:  logger.Named("adapter.dpd"),
	}
}

// dpdResponse mirrors the PLC payload envelope.
type dpdResponse struct {
	Parcellifecycle *struct {
		ParcelLifeCycleData struct {
			ShipmentInfo struct {
				ParcelLabelNumber string `json:"parcelLabelNumber"`
				ProductName       string `json:"productName"`
			} `json:"shipmentInfo"`
			StatusInfo []dpdStatusInfo `json:"statusInfo"`
			ScanInfo   struct {
				Scan []dpdScan `json:"scan"`
			} `json:"scanInfo"`
		} `json:"parcelLifeCycleData"`
	} `json:"parcellifecycleResponse"`
}

type dpdStatusInfo struct {
	Status      string `json:"status"`
	Label       string `json:"label"`
	Description struct {
		Content []string `json:"content"`
	} `json:"description"`
	StatusHasBeenReached bool   `json:"statusHasBeenReached"`
	IsCurrentStatus      bool   `json:"isCurrentStatus"`
	Location             string `json:"location"`
	Date                 string `json:"date"` // "DD.MM.YYYY, HH:MM"
}

type dpdScan struct {
	Date     string `json:"date"` // ISO, no zone
	ScanData struct {
		Location string `json:"location"`
	} `json:"scanData"`
	ScanDescription struct {
		Label   string   `json:"label"`
		Content []string `json:"content"`
	} `json:"scanDescription"`
}

// Key returns the carrier identifier.
func (a *DPDAdapter) Key() string {
	return "dpd"
}

// Track fetches and normalizes DPD tracking data.
func (a *DPDAdapter) Track(ctx context.Context, trackingNumber string, opts ports.TrackOptions) (*domain.TrackingResponse, error) {
	loc, normalizedFrom := locale.ResolveDPD(opts.Language)

	requestURL := fmt.Sprintf("%s/%s/%s", a.baseURL, loc, url.PathEscape(trackingNumber))

	resp, err := a.client.Get(ctx, requestURL, nil, jsonHeaders())
	if err != nil {
		return nil, fmt.Errorf("dpd request failed: %w", err)
	}

	// Invalid tracking numbers redirect to an HTML page. Not JSON means
	// no data, not a failure.
	if !resp.IsJSON() {
		return domain.NewTrackingResponse(a.Key(), nil), nil
	}

	var payload dpdResponse
	if err := resp.JSON(&payload); err == nil && payload.Parcellifecycle != nil {
		shipment := a.normalizePLC(&payload, trackingNumber, loc, opts.Language, normalizedFrom)
		return domain.NewTrackingResponse(a.Key(), []domain.Shipment{shipment}), nil
	}

	// The PLC envelope is missing or shaped differently; fall back to the
	// generic extractor so a payload change does not black out tracking.
	var generic map[string]any
	if err := json.Unmarshal(resp.Body, &generic); err != nil {
		return domain.NewTrackingResponse(a.Key(), nil), nil
	}
	a.logger.Warn("DPD payload without PLC envelope, using generic extractor",
		zap.String("tracking_number", trackingNumber),
	)
	shipment := a.normalizeGeneric(generic, trackingNumber)
	return domain.NewTrackingResponse(a.Key(), []domain.Shipment{shipment}), nil
}

func (a *DPDAdapter) normalizePLC(payload *dpdResponse, trackingNumber, loc, languageInput, normalizedFrom string) domain.Shipment {
	data := payload.Parcellifecycle.ParcelLifeCycleData

	var events []domain.TrackingEvent

	// Scan events carry the detailed timeline; statusInfo milestones are
	// the fallback, restricted to reached ones so future milestones do
	// not pollute the history.
	if len(data.ScanInfo.Scan) > 0 {
		for _, scan := range data.ScanInfo.Scan {
			ts, ok := timeparse.ISO(scan.Date)
			if !ok {
				a.logger.Warn("Unparseable DPD scan date", zap.String("date", scan.Date))
				ts = time.Now().UTC()
			}
			text := scan.ScanDescription.Label
			if len(scan.ScanDescription.Content) > 0 && scan.ScanDescription.Content[0] != "" {
				text = scan.ScanDescription.Content[0]
			}
			events = append(events, domain.TrackingEvent{
				Timestamp: ts,
				Status:    text,
				Location:  scan.ScanData.Location,
				Details:   text,
			})
		}
	} else {
		for _, st := range data.StatusInfo {
			if !st.StatusHasBeenReached {
				continue
			}
			ts, ok := timeparse.Layouts(st.Date, "02.01.2006, 15:04", "02.01.2006 15:04")
			if !ok {
				a.logger.Warn("Unparseable DPD status date", zap.String("date", st.Date))
				ts = time.Now().UTC()
			}
			text := st.Status
			if st.Label != "" {
				text = st.Label
			}
			if len(st.Description.Content) > 0 && st.Description.Content[0] != "" {
				text = st.Description.Content[0]
			}
			events = append(events, domain.TrackingEvent{
				Timestamp: ts,
				Status:    text,
				Location:  st.Location,
				Details:   text,
			})
		}
	}
	domain.SortEvents(events)

	number := data.ShipmentInfo.ParcelLabelNumber
	if number == "" {
		number = trackingNumber
	}

	extras := map[string]any{"dpd_locale": loc}
	if normalizedFrom != "" && !strings.EqualFold(strings.TrimSpace(languageInput), loc) {
		extras["language_normalized_from"] = strings.TrimSpace(languageInput)
	}

	return domain.Shipment{
		TrackingNumber: number,
		Carrier:        a.Key(),
		Status:         dpdStatus(data.StatusInfo, events),
		Events:         events,
		ServiceType:    data.ShipmentInfo.ProductName,
		Extras:         extras,
	}
}

// dpdStatus derives the shipment status from the current milestone code,
// falling back to the latest event text.
func dpdStatus(statusInfo []dpdStatusInfo, events []domain.TrackingEvent) domain.ShipmentStatus {
	for _, st := range statusInfo {
		if !st.IsCurrentStatus {
			continue
		}
		code := strings.ToUpper(st.Status)
		switch {
		case strings.Contains(code, "DELIVERED"):
			return domain.StatusDelivered
		case strings.Contains(code, "OUT_FOR_DELIVERY"):
			return domain.StatusOutForDelivery
		case strings.Contains(code, "ON_THE_ROAD"),
			strings.Contains(code, "AT_DELIVERY_DEPOT"),
			strings.Contains(code, "IN_TRANSIT"):
			return domain.StatusInTransit
		case strings.Contains(code, "PICKUP"):
			return domain.StatusInformationReceived
		}
		return domain.StatusUnknown
	}

	if len(events) == 0 {
		return domain.StatusUnknown
	}
	last := strings.ToLower(events[len(events)-1].Status)
	switch {
	case strings.Contains(last, "delivered"):
		return domain.StatusDelivered
	case strings.Contains(last, "out for delivery"), strings.Contains(last, "delivery"):
		return domain.StatusOutForDelivery
	case strings.Contains(last, "transit"), strings.Contains(last, "depot"), strings.Contains(last, "on the way"):
		return domain.StatusInTransit
	default:
		return domain.StatusUnknown
	}
}

// normalizeGeneric is the last-resort extractor for unknown payload shapes.
// It walks the structure breadth-first looking for the first list of
// event-shaped objects and coerces whatever fields it recognizes.
func (a *DPDAdapter) normalizeGeneric(obj map[string]any, trackingNumber string) domain.Shipment {
	var events []domain.TrackingEvent
	for _, raw := range findFirstEventsList(obj) {
		ts, ok := timeparse.Coerce(raw)
		if !ok {
			continue
		}
		events = append(events, domain.TrackingEvent{
			Timestamp: ts,
			Status:    firstStringField(raw, "status", "description", "state", "statusText"),
			Details:   firstStringField(raw, "details", "comment", "message", "extra"),
		})
	}
	domain.SortEvents(events)

	status := domain.StatusUnknown
	if len(events) > 0 {
		last := strings.ToLower(events[len(events)-1].Status)
		switch {
		case strings.Contains(last, "delivered"):
			status = domain.StatusDelivered
		case strings.Contains(last, "delivery"):
			status = domain.StatusOutForDelivery
		case strings.Contains(last, "transit"), strings.Contains(last, "sorted"), strings.Contains(last, "processed"):
			status = domain.StatusInTransit
		}
	}

	return domain.Shipment{
		TrackingNumber: trackingNumber,
		Carrier:        a.Key(),
		Status:         status,
		Events:         events,
	}
}

// findFirstEventsList locates the first list of dicts that looks like an
// event history anywhere in the payload.
func findFirstEventsList(obj map[string]any) []map[string]any {
	queue := []any{obj}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		switch v := item.(type) {
		case map[string]any:
			for _, child := range v {
				if list, ok := asEventList(child); ok {
					return list
				}
				queue = append(queue, child)
			}
		case []any:
			for _, child := range v {
				queue = append(queue, child)
			}
		}
	}
	return nil
}

func asEventList(value any) ([]map[string]any, bool) {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}

	events := make([]map[string]any, 0, len(list))
	hasEventKey := false
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		for key := range m {
			switch strings.ToLower(key) {
			case "status", "description", "state":
				hasEventKey = true
			}
		}
		events = append(events, m)
	}
	if !hasEventKey {
		return nil, false
	}
	return events, true
}

func firstStringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}

// TrackingURL returns the public DPD status page for this parcel.
func (a *DPDAdapter) TrackingURL(trackingNumber, language string) string {
	loc, _ := locale.ResolveDPD(language)
	return fmt.Sprintf("https://tracking.dpd.de/status/%s/parcel/%s", loc, url.PathEscape(trackingNumber))
}
