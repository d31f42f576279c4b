// internal/livesearch/encoder.go
package livesearch

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"escapade/internal/common/errors"
	"escapade/internal/models"
)

// Wire keys of the session-open form body.
const (
	fieldCountry          = "country"
	fieldCurrency         = "currency"
	fieldLocale           = "locale"
	fieldOriginPlace      = "originPlace"
	fieldDestinationPlace = "destinationPlace"
	fieldOutboundDate     = "outboundDate"
	fieldInboundDate      = "inboundDate"
	fieldAdults           = "adults"
)

// EncodeQuery renders q as the provider's form fields. inboundDate is present only
// for return trips. It fails only when a required field is missing.
func EncodeQuery(q models.SearchQuery) (url.Values, error) {
	var missing []string
	required := []struct {
		key, val string
	}{
		{fieldCountry, q.Country},
		{fieldCurrency, q.Currency},
		{fieldLocale, q.Locale},
		{fieldOriginPlace, q.OriginPlace},
		{fieldDestinationPlace, q.DestinationPlace},
		{fieldOutboundDate, q.OutboundDate},
	}
	for _, f := range required {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.key)
		}
	}
	if q.Adults < 1 {
		missing = append(missing, fieldAdults)
	}
	if len(missing) > 0 {
		return nil, errors.NewInvalidQueryError("missing: " + strings.Join(missing, ", "))
	}

	form := url.Values{}
	for _, f := range required {
		form.Set(f.key, f.val)
	}
	form.Set(fieldAdults, strconv.Itoa(q.Adults))
	if q.HasInbound() {
		form.Set(fieldInboundDate, q.InboundDate)
	}
	return form, nil
}

// DecodeQuery is the inverse of EncodeQuery, used by provider fakes and replay tooling.
func DecodeQuery(form url.Values) (models.SearchQuery, error) {
	adults, err := strconv.Atoi(form.Get(fieldAdults))
	if err != nil {
		return models.SearchQuery{}, fmt.Errorf("decode %s: %w", fieldAdults, err)
	}
	return models.SearchQuery{
		Country:          form.Get(fieldCountry),
		Currency:         form.Get(fieldCurrency),
		Locale:           form.Get(fieldLocale),
		OriginPlace:      form.Get(fieldOriginPlace),
		DestinationPlace: form.Get(fieldDestinationPlace),
		OutboundDate:     form.Get(fieldOutboundDate),
		InboundDate:      form.Get(fieldInboundDate),
		Adults:           adults,
	}, nil
}
