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
	"parceltracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// cttStatusCodes maps CTT's 4-digit event codes onto the unified
// vocabulary. The table only covers the codes observed in the wild; text
// inference handles the rest.
var cttStatusCodes = map[string]domain.ShipmentStatus{
	"0000": domain.StatusInformationReceived,
	"1000": domain.StatusInTransit,
	"1500": domain.StatusOutForDelivery,
	"2310": domain.StatusAvailableForPickup,
}

// CTTAdapter tracks shipments via the CTT Express public endpoint.
// The endpoint is undocumented, so the payload is parsed defensively:
// missing sections yield empty responses and the literal string "null"
// (which CTT emits for absent detail fields) is treated as no value.
type CTTAdapter struct {
	client  *httpclient.Client
	baseURL string
	logger  *zap.Logger
}

// NewCTTAdapter creates a CTTAdapter on the shared transport.
func NewCTTAdapter(client *httpclient.Client) *CTTAdapter {
	return &CTTAdapter{
		client:  client,
		baseURL: "https://wct.cttexpress.com/p_track_redis.php",
		logger:  logger.Named("adapter.ctt"),
	}
}

// cttResponse mirrors the relevant parts of the CTT payload.
type cttResponse struct {
	Data *struct {
		ShippingCode    string `json:"shipping_code"`
		ClientReference string `json:"client_reference"`
		OriginName      string `json:"origin_name"`
		OriginProvince  string `json:"origin_province_name"`
		DestinName      string `json:"destin_name"`
		DestinProvince  string `json:"destin_province_name"`

		CommittedDeliveryDatetime string `json:"committed_delivery_datetime"`
		ReportedDeliveryDate      string `json:"reported_delivery_date"`
		DeliveryDate              string `json:"delivery_date"`

		DeclaredWeight   any `json:"declared_weight"`
		FinalWeight      any `json:"final_weight"`
		ShippingTypeCode any `json:"shipping_type_code"`
		ClientCenterCode any `json:"client_center_code"`
		ClientCode       any `json:"client_code"`
		ItemCount        any `json:"item_count"`
		TrafficTypeCode  any `json:"traffic_type_code"`
		HasCustom        any `json:"has_custom"`

		ShippingHistory struct {
			Events []cttEvent `json:"events"`
		} `json:"shipping_history"`
	} `json:"data"`
}

type cttEvent struct {
	Code        string `json:"code"`
	Type        string `json:"type"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
	Detail      struct {
		ItemEventDatetime string `json:"item_event_datetime"`
		ItemEventText     string `json:"item_event_text"`
		ExternalEventText string `json:"External_event_text"`
		EventCourierCode  string `json:"event_courier_code"`
	} `json:"detail"`
}

// Key returns the carrier identifier.
func (a *CTTAdapter) Key() string {
	return "ctt"
}

// Track fetches and normalizes CTT tracking data. The language option is
// accepted for interface symmetry; the endpoint ignores it.
func (a *CTTAdapter) Track(ctx context.Context, trackingNumber string, opts ports.TrackOptions) (*domain.TrackingResponse, error) {
	params := url.Values{}
	params.Set("sc", trackingNumber)

	resp, err := a.client.Get(ctx, a.baseURL, params, jsonHeaders())
	if err != nil {
		return nil, fmt.Errorf("ctt request failed: %w", err)
	}

	var payload cttResponse
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("ctt payload malformed: %w", err)
	}

	return a.normalize(&payload, trackingNumber), nil
}

func (a *CTTAdapter) normalize(payload *cttResponse, trackingNumber string) *domain.TrackingResponse {
	data := payload.Data
	if data == nil {
		return domain.NewTrackingResponse(a.Key(), nil)
	}

	events := make([]domain.TrackingEvent, 0, len(data.ShippingHistory.Events))
	for _, ev := range data.ShippingHistory.Events {
		dtStr := cttString(ev.Detail.ItemEventDatetime)
		if dtStr == "" {
			dtStr = cttString(ev.EventDate)
		}
		ts, ok := timeparse.ISO(dtStr)
		if !ok {
			a.logger.Warn("Unparseable CTT event timestamp", zap.String("datetime", dtStr))
			ts = time.Now().UTC()
		}

		text := ev.Description
		if text == "" {
			text = ev.Type
		}

		details := ""
		for _, candidate := range []string{ev.Detail.ItemEventText, ev.Detail.ExternalEventText, ev.Detail.EventCourierCode} {
			if v := cttString(candidate); v != "" {
				details = v
				break
			}
		}

		events = append(events, domain.TrackingEvent{
			Timestamp:  ts,
			Status:     text,
			Details:    details,
			StatusCode: ev.Code,
			Extras:     map[string]any{"type": ev.Type},
		})
	}
	domain.SortEvents(events)

	code := cttString(data.ShippingCode)
	if code == "" {
		code = trackingNumber
	}

	origin := cttString(data.OriginName)
	if origin == "" {
		origin = cttString(data.OriginProvince)
	}
	destination := cttString(data.DestinName)
	if destination == "" {
		destination = cttString(data.DestinProvince)
	}

	status := cttStatus(events)

	estStr := cttString(data.CommittedDeliveryDatetime)
	if estStr == "" {
		estStr = cttString(data.ReportedDeliveryDate)
	}
	if estStr == "" {
		estStr = cttString(data.DeliveryDate)
	}
	var estimated *time.Time
	if t, ok := timeparse.ISO(estStr); ok {
		estimated = &t
	}

	var actual *time.Time
	if status == domain.StatusDelivered {
		adStr := cttString(data.DeliveryDate)
		if adStr == "" {
			adStr = estStr
		}
		if t, ok := timeparse.ISO(adStr); ok {
			actual = &t
		}
	}

	extras := map[string]any{}
	for key, value := range map[string]any{
		"client_reference":   cttString(data.ClientReference),
		"declared_weight":    data.DeclaredWeight,
		"final_weight":       data.FinalWeight,
		"shipping_type_code": data.ShippingTypeCode,
		"client_center_code": data.ClientCenterCode,
		"client_code":        data.ClientCode,
		"item_count":         data.ItemCount,
		"traffic_type_code":  data.TrafficTypeCode,
		"has_custom":         data.HasCustom,
	} {
		if value != nil && value != "" {
			extras[key] = value
		}
	}
	if len(extras) == 0 {
		extras = nil
	}

	return domain.NewTrackingResponse(a.Key(), []domain.Shipment{{
		TrackingNumber:    code,
		Carrier:           a.Key(),
		Status:            status,
		Events:            events,
		Origin:            origin,
		Destination:       destination,
		EstimatedDelivery: estimated,
		ActualDelivery:    actual,
		Extras:            extras,
	}})
}

// cttString normalizes CTT string fields: the API emits the literal
// string "null" for absent values.
func cttString(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

// cttStatus classifies the latest event: the 4-digit code table wins,
// then accent-folded Spanish phrases, then the shared keyword table.
func cttStatus(events []domain.TrackingEvent) domain.ShipmentStatus {
	if len(events) == 0 {
		return domain.StatusUnknown
	}
	latest := events[len(events)-1]

	if status, ok := cttStatusCodes[strings.TrimSpace(latest.StatusCode)]; ok {
		return status
	}

	t := classify.Fold(latest.Status)
	switch {
	case strings.Contains(t, "entregado"), strings.Contains(t, "entrega realizada"):
		return domain.StatusDelivered
	case strings.Contains(t, "entrega hoy"), strings.Contains(t, "reparto"),
		strings.Contains(t, "delivery today"):
		return domain.StatusOutForDelivery
	case strings.Contains(t, "para recoger"), strings.Contains(t, "punto de recogida"):
		return domain.StatusAvailableForPickup
	case strings.Contains(t, "transito"), strings.Contains(t, "in transit"):
		return domain.StatusInTransit
	case strings.Contains(t, "pendiente de recepcion"), strings.Contains(t, "pendiente de recogida"),
		strings.Contains(t, "admitido"):
		return domain.StatusInformationReceived
	}

	return classify.FromText(latest.Status)
}

// TrackingURL returns "" because CTT Express has no public tracking page
// addressable by shipping code alone.
func (a *CTTAdapter) TrackingURL(trackingNumber, language string) string {
	return ""
}
