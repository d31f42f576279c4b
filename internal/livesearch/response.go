// internal/livesearch/response.go
package livesearch

import (
	"encoding/json"
)

// PollResponse is one snapshot of a live pricing session. The four lookup
// collections are id-indexed and reference each other.
type PollResponse struct {
	SessionKey  string              `json:"SessionKey,omitempty"`
	Status      string              `json:"Status"`
	Itineraries []ProviderItinerary `json:"Itineraries"`
	Legs        []ProviderLeg       `json:"Legs"`
	Places      []ProviderPlace     `json:"Places"`
	Carriers    []ProviderCarrier   `json:"Carriers"`
	Agents      []ProviderAgent     `json:"Agents,omitempty"`

	// Raw is the body the snapshot was decoded from.
	Raw json.RawMessage `json:"-"`
}

type ProviderItinerary struct {
	OutboundLegID  string          `json:"OutboundLegId"`
	InboundLegID   string          `json:"InboundLegId,omitempty"`
	PricingOptions []PricingOption `json:"PricingOptions"`
}

type PricingOption struct {
	Agents            []int   `json:"Agents"`
	QuoteAgeInMinutes int     `json:"QuoteAgeInMinutes"`
	Price             float64 `json:"Price"`
	DeeplinkURL       string  `json:"DeeplinkUrl"`
}

type ProviderLeg struct {
	ID                 string `json:"Id"`
	OriginStation      int    `json:"OriginStation"`
	DestinationStation int    `json:"DestinationStation"`
	Departure          string `json:"Departure"`
	Arrival            string `json:"Arrival"`
	Duration           int    `json:"Duration"`
	Carriers           []int  `json:"Carriers"`
	Stops              []int  `json:"Stops"`
	Directionality     string `json:"Directionality"`
}

type ProviderPlace struct {
	ID       int    `json:"Id"`
	ParentID int    `json:"ParentId,omitempty"`
	Code     string `json:"Code,omitempty"`
	Type     string `json:"Type,omitempty"`
	Name     string `json:"Name"`
}

type ProviderCarrier struct {
	ID          int    `json:"Id"`
	Code        string `json:"Code,omitempty"`
	Name        string `json:"Name"`
	DisplayCode string `json:"DisplayCode,omitempty"`
}

type ProviderAgent struct {
	ID   int    `json:"Id"`
	Name string `json:"Name"`
	Type string `json:"Type,omitempty"`
}

// DecodePollResponse parses a snapshot body. When the body is not valid JSON
// the returned response carries only Raw, so the normalizer's shape check can
// turn it into a sentinel result.
func DecodePollResponse(body []byte) (*PollResponse, error) {
	resp := &PollResponse{}
	err := json.Unmarshal(body, resp)
	if err != nil {
		resp = &PollResponse{}
	}
	resp.Raw = append(json.RawMessage(nil), body...)
	return resp, err
}

// statusOnly reads just the Status field of an intermediate snapshot.
type statusOnly struct {
	Status *string `json:"Status"`
}
