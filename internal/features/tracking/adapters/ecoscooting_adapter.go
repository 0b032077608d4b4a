package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"parceltracker/internal/core/httpclient"
	"parceltracker/internal/core/logger"
	"parceltracker/internal/features/tracking/domain"
	"parceltracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

const (
	cainiaoAPIURL = "https://de-link.cainiao.com/gateway/link.do"

	// The Cainiao gateway requires all five form fields. The provider id
	// and routing code are fixed for Ecoscooting; the digest is a
	// placeholder the gateway accepts with any value.
	ecoscootingMsgType    = "CN_OVERSEA_LOGISTICS_INQUIRY_TRACKING"
	ecoscootingProviderID = "DISTRIBUTOR_30250031"
	ecoscootingToCode     = "CNL_EU"
	ecoscootingDigest     = "suibianxie"
)

// ecoscootingStatusGroups maps Cainiao status groups onto the unified
// vocabulary.
var ecoscootingStatusGroups = map[string]domain.ShipmentStatus{
	"delivered":            domain.StatusDelivered,
	"ready_for_collection": domain.StatusAvailableForPickup,
	"delivering":           domain.StatusOutForDelivery,
	"in_transit":           domain.StatusInTransit,
}

// ecoscootingDate matches "2025-09-12 12:54:13 UTC+1".
var ecoscootingDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) UTC([+-]\d+)$`)

// EcoscootingAdapter tracks shipments through the Cainiao logistics
// gateway, which fronts Ecoscooting's last-mile network. The endpoint is
// reverse engineered; failures surface as errors so the caller decides
// between strict propagation and a degraded response.
type EcoscootingAdapter struct {
	client  *httpclient.Client
	baseURL string
	logger  *zap.Logger
}

// NewEcoscootingAdapter creates an EcoscootingAdapter on the shared
// transport.
func NewEcoscootingAdapter(client *httpclient.Client) *EcoscootingAdapter {
	return &EcoscootingAdapter{
		client:  client,
		baseURL: cainiaoAPIURL,
		logger:  logger.Named("adapter.ecoscooting"),
	}
}

// ecoscootingResponse mirrors the Cainiao inquiry payload.
type ecoscootingResponse struct {
	Success  string `json:"success"`
	Statuses []struct {
		Datetime    string `json:"datetime"`
		StatusName  string `json:"statusName"`
		Description string `json:"description"`
		StatusGroup string `json:"statusGroup"`
	} `json:"statuses"`
	PackageParam struct {
		ToCity    string `json:"toCity"`
		ToZipcode string `json:"toZipcode"`
	} `json:"packageParam"`
	PopStationParam struct {
		StationName   string `json:"stationName"`
		DetailAddress string `json:"detailAddress"`
	} `json:"popStationParam"`
}

// Key returns the carrier identifier.
func (a *EcoscootingAdapter) Key() string {
	return "ecoscooting"
}

// Track fetches and normalizes Ecoscooting tracking data.
func (a *EcoscootingAdapter) Track(ctx context.Context, trackingNumber string, opts ports.TrackOptions) (*domain.TrackingResponse, error) {
	logisticsInterface, err := json.Marshal(map[string]string{
		"mailNo": trackingNumber,
		"locale": "en_US",
		"role":   "endUser",
	})
	if err != nil {
		return nil, fmt.Errorf("ecoscooting request encoding failed: %w", err)
	}

	form := url.Values{}
	form.Set("logistics_interface", string(logisticsInterface))
	form.Set("msg_type", ecoscootingMsgType)
	form.Set("logistic_provider_id", ecoscootingProviderID)
	form.Set("data_digest", ecoscootingDigest)
	form.Set("to_code", ecoscootingToCode)

	headers := jsonHeaders()
	headers.Set("Origin", "https://ecoscooting.com")
	headers.Set("Referer", "https://ecoscooting.com/tracking/"+trackingNumber)

	resp, err := a.client.PostForm(ctx, a.baseURL, form, headers)
	if err != nil {
		return nil, fmt.Errorf("ecoscooting request failed: %w", err)
	}

	var payload ecoscootingResponse
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("ecoscooting payload malformed: %w", err)
	}
	if payload.Success != "true" {
		return nil, fmt.Errorf("ecoscooting gateway rejected the inquiry")
	}

	return a.normalize(&payload, trackingNumber), nil
}

func (a *EcoscootingAdapter) normalize(payload *ecoscootingResponse, trackingNumber string) *domain.TrackingResponse {
	events := make([]domain.TrackingEvent, 0, len(payload.Statuses))
	for _, st := range payload.Statuses {
		ts, ok := parseEcoscootingDate(st.Datetime)
		if !ok {
			a.logger.Warn("Unparseable Ecoscooting event timestamp", zap.String("datetime", st.Datetime))
			ts = time.Now().UTC()
		}
		events = append(events, domain.TrackingEvent{
			Timestamp: ts,
			Status:    st.StatusName,
			Details:   st.Description,
		})
	}
	domain.SortEvents(events)

	// The gateway reports newest first; the first raw entry carries the
	// current status group.
	status := domain.StatusUnknown
	if len(payload.Statuses) > 0 {
		group := strings.ToLower(payload.Statuses[0].StatusGroup)
		if mapped, ok := ecoscootingStatusGroups[group]; ok {
			status = mapped
		} else if group != "" {
			a.logger.Warn("Unknown Ecoscooting status group", zap.String("status_group", group))
		}
	}

	var destinationParts []string
	if payload.PackageParam.ToCity != "" {
		destinationParts = append(destinationParts, payload.PackageParam.ToCity)
	}
	if payload.PackageParam.ToZipcode != "" {
		destinationParts = append(destinationParts, payload.PackageParam.ToZipcode)
	}
	if payload.PopStationParam.StationName != "" {
		destinationParts = append(destinationParts, "PUDO: "+payload.PopStationParam.StationName)
	}
	if payload.PopStationParam.DetailAddress != "" {
		destinationParts = append(destinationParts, payload.PopStationParam.DetailAddress)
	}

	shipment := domain.Shipment{
		TrackingNumber: trackingNumber,
		Carrier:        a.Key(),
		Status:         status,
		Events:         events,
		Destination:    strings.Join(destinationParts, ", "),
	}

	if status == domain.StatusDelivered && len(events) > 0 {
		delivered := events[len(events)-1].Timestamp
		shipment.ActualDelivery = &delivered
	}

	return domain.NewTrackingResponse(a.Key(), []domain.Shipment{shipment})
}

// parseEcoscootingDate parses the gateway's "2006-01-02 15:04:05 UTC+1"
// format, where the offset is whole hours.
func parseEcoscootingDate(value string) (time.Time, bool) {
	match := ecoscootingDate.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return time.Time{}, false
	}

	naive, err := time.Parse("2006-01-02 15:04:05", match[1])
	if err != nil {
		return time.Time{}, false
	}

	offsetHours, err := strconv.Atoi(match[2])
	if err != nil {
		return time.Time{}, false
	}

	zone := time.UTC
	if offsetHours != 0 {
		zone = time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*60*60)
	}
	return time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0, zone), true
}

// TrackingURL returns the Ecoscooting public tracking page.
func (a *EcoscootingAdapter) TrackingURL(trackingNumber, language string) string {
	return "https://ecoscooting.com/tracking/" + url.PathEscape(trackingNumber)
}
