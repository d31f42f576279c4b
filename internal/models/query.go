// internal/models/query.go
package models

// SearchQuery is one live-search request as submitted by the front-end or a job.
// Dates use the provider's yyyy-mm-dd form. InboundDate is empty for one-way trips.
type SearchQuery struct {
	Country          string `json:"country" validate:"required"`
	Currency         string `json:"currency" validate:"required"`
	Locale           string `json:"locale" validate:"required"`
	OriginPlace      string `json:"originPlace" validate:"required,placeid"`
	DestinationPlace string `json:"destinationPlace" validate:"required,placeid,nefield=OriginPlace"`
	OutboundDate     string `json:"outboundDate" validate:"required,datetime=2006-01-02"`
	InboundDate      string `json:"inboundDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Adults           int    `json:"adults" validate:"min=1,max=8"`
}

// HasInbound reports whether the query asks for a return leg.
func (q SearchQuery) HasInbound() bool {
	return q.InboundDate != ""
}

// QueryDefaults fills locale-style fields a caller may leave out.
type QueryDefaults struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Locale   string `json:"locale"`
	Adults   int    `json:"adults"`
}

// WithDefaults returns a copy of q with empty fields taken from d.
func (q SearchQuery) WithDefaults(d QueryDefaults) SearchQuery {
	if q.Country == "" {
		q.Country = d.Country
	}
	if q.Currency == "" {
		q.Currency = d.Currency
	}
	if q.Locale == "" {
		q.Locale = d.Locale
	}
	if q.Adults == 0 {
		q.Adults = d.Adults
	}
	return q
}
