// Package classify maps carrier status texts onto the normalized status
// vocabulary. Carrier-specific code tables always take precedence in the
// adapters; this package is the shared fallback for free-text statuses,
// which arrive in a mix of English and Spanish.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"parceltracker/internal/features/tracking/domain"
)

// Fold lowercases text and strips diacritics, so "Admitido" and "admitído"
// compare equal.
func Fold(text string) string {
	lowered := strings.ToLower(text)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, lowered)
	if err != nil {
		return lowered
	}
	return folded
}

// keywordGroup maps a set of substrings to one normalized status.
// Groups are evaluated in order; the first hit wins.
type keywordGroup struct {
	status   domain.ShipmentStatus
	keywords []string
}

// Pickup-point phrases come before the delivered/pickup groups: "available
// for pickup" must not fall through to the generic "pickup" keyword, and
// "pickup point" texts often also contain "delivered".
var keywordGroups = []keywordGroup{
	{domain.StatusAvailableForPickup, []string{
		"available for pickup", "ready for pickup", "disponible para recoger",
		"para recoger", "pickup point", "collection point",
	}},
	{domain.StatusDelivered, []string{"delivered", "entregado"}},
	{domain.StatusOutForDelivery, []string{"out for delivery", "in delivery", "reparto"}},
	{domain.StatusInTransit, []string{"in transit", "transit", "depot", "sorted", "on the way"}},
	{domain.StatusInformationReceived, []string{
		"pickup", "accepted", "admitido", "pre-registered", "pre registered",
	}},
	{domain.StatusException, []string{"exception", "failed", "undeliverable"}},
}

// FromText classifies a free-text status. Unmatched or empty text yields
// StatusUnknown, which is a valid outcome, not an error.
func FromText(text string) domain.ShipmentStatus {
	if strings.TrimSpace(text) == "" {
		return domain.StatusUnknown
	}
	folded := Fold(text)
	for _, group := range keywordGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(folded, keyword) {
				return group.status
			}
		}
	}
	return domain.StatusUnknown
}

// outForDeliveryPhrases detect the last-mile stage inside event texts.
// DHL in particular keeps reporting "transit" while the parcel is already
// on the delivery vehicle.
var outForDeliveryPhrases = []string{
	"out for delivery",
	"in delivery",
	"loaded onto the delivery vehicle",
	"delivery vehicle",
}

// UpgradeOutForDelivery promotes an in-transit status to out-for-delivery
// when any of the given texts mentions the delivery vehicle. Terminal and
// non-transit statuses are never touched.
func UpgradeOutForDelivery(current domain.ShipmentStatus, texts ...string) domain.ShipmentStatus {
	if current != domain.StatusInTransit {
		return current
	}
	for _, text := range texts {
		folded := Fold(text)
		for _, phrase := range outForDeliveryPhrases {
			if strings.Contains(folded, phrase) {
				return domain.StatusOutForDelivery
			}
		}
	}
	return current
}
