package handler

import (
	"errors"
	"strconv"
	"strings"

	adapter "parceltracker/internal/features/tracking/adapters"
	"parceltracker/internal/features/tracking/ports"
	"parceltracker/internal/features/tracking/service"

	"github.com/gofiber/fiber/v2"
)

// TrackingHandler handles HTTP requests for tracking operations.
type TrackingHandler struct {
	trackingService *service.TrackingService
	strictDefault   bool
	defaultLanguage string
}

// NewTrackingHandler creates a new TrackingHandler. strictDefault applies
// when the request does not carry an explicit strict query parameter.
func NewTrackingHandler(trackingService *service.TrackingService, strictDefault bool) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
		strictDefault:   strictDefault,
	}
}

// WithDefaultLanguage sets the language used when requests omit lang.
func (h *TrackingHandler) WithDefaultLanguage(language string) *TrackingHandler {
	h.defaultLanguage = language
	return h
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// TrackingURLResponse carries a carrier's public tracking page URL.
type TrackingURLResponse struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
	URL            string `json:"url"`
}

// CarriersResponse lists the supported carrier identifiers.
type CarriersResponse struct {
	Carriers []string `json:"carriers"`
}

// Track godoc
// @Summary Track a shipment
// @Description Retrieves normalized tracking data for a tracking number from the given carrier
// @Tags tracking
// @Accept json
// @Produce json
// @Param number path string true "Tracking Number"
// @Param carrier query string true "Carrier key (e.g., correos, dhl, dpd, gls, ctt, ecoscooting)"
// @Param lang query string false "Preferred language (ISO 639-1 code or ll_RR locale)"
// @Param strict query bool false "Propagate carrier failures instead of returning a degraded response"
// @Param postal_code query string false "Recipient postal code, for carriers that use it"
// @Param service query string false "Carrier service level hint"
// @Param requester_country_code query string false "Country the request originates from (DHL)"
// @Param origin_country_code query string false "Shipment origin country filter (DHL)"
// @Param limit query int false "Maximum number of events to request"
// @Param offset query int false "Number of events to skip (DHL)"
// @Success 200 {object} domain.TrackingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} domain.TrackingResponse
// @Router /tracking/{number} [get]
func (h *TrackingHandler) Track(c *fiber.Ctx) error {
	trackingNumber := strings.TrimSpace(c.Params("number"))
	if trackingNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "tracking number is required",
			RayID:   rayID(c),
		})
	}

	carrier := strings.ToLower(strings.TrimSpace(c.Query("carrier")))
	if carrier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "carrier query parameter is required",
			RayID:   rayID(c),
		})
	}

	strict := h.strictDefault
	if raw := c.Query("strict"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Message: "strict must be a boolean",
				RayID:   rayID(c),
			})
		}
		strict = parsed
	}

	opts := ports.TrackOptions{
		Language:             c.Query("lang", h.defaultLanguage),
		PostalCode:           c.Query("postal_code"),
		Service:              c.Query("service"),
		RequesterCountryCode: c.Query("requester_country_code"),
		OriginCountryCode:    c.Query("origin_country_code"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Message: "limit must be a positive integer",
				RayID:   rayID(c),
			})
		}
		opts.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Message: "offset must be a non-negative integer",
				RayID:   rayID(c),
			})
		}
		opts.Offset = offset
	}

	result, err := h.trackingService.Track(c.UserContext(), carrier, trackingNumber, opts, strict)
	if err != nil {
		if errors.Is(err, service.ErrCarrierNotSupported) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Message: "carrier not supported",
				RayID:   rayID(c),
			})
		}
		if errors.Is(err, adapter.ErrMissingCredentials) {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}

		// Strict-mode provider failure.
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   rayID(c),
		})
	}

	// A degraded result still carries a well-formed body; the status code
	// tells clients the carrier did not answer.
	if result.Degraded {
		return c.Status(fiber.StatusBadGateway).JSON(result.Response)
	}
	return c.JSON(result.Response)
}

// TrackingURL godoc
// @Summary Get the carrier's public tracking page URL
// @Description Returns the carrier web page for a tracking number, when the carrier has one
// @Tags tracking
// @Accept json
// @Produce json
// @Param number path string true "Tracking Number"
// @Param carrier query string true "Carrier key"
// @Param lang query string false "Preferred language"
// @Success 200 {object} TrackingURLResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tracking/{number}/url [get]
func (h *TrackingHandler) TrackingURL(c *fiber.Ctx) error {
	trackingNumber := strings.TrimSpace(c.Params("number"))
	carrier := strings.ToLower(strings.TrimSpace(c.Query("carrier")))
	if carrier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "carrier query parameter is required",
			RayID:   rayID(c),
		})
	}

	url, err := h.trackingService.TrackingURL(carrier, trackingNumber, c.Query("lang"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Message: "carrier not supported",
			RayID:   rayID(c),
		})
	}
	if url == "" {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Message: "carrier has no public tracking page",
			RayID:   rayID(c),
		})
	}

	return c.JSON(TrackingURLResponse{
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		URL:            url,
	})
}

// Carriers godoc
// @Summary List supported carriers
// @Description Returns the carrier keys accepted by the tracking endpoints
// @Tags tracking
// @Produce json
// @Success 200 {object} CarriersResponse
// @Router /carriers [get]
func (h *TrackingHandler) Carriers(c *fiber.Ctx) error {
	return c.JSON(CarriersResponse{Carriers: h.trackingService.Carriers()})
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
