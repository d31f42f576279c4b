// internal/livesearch/normalizer.go
package livesearch

import (
	"strings"

	"escapade/internal/common/errors"
	"escapade/internal/common/validation"
	"escapade/internal/models"
)

// lookup holds the id-indexed collections of one snapshot. When an id occurs
// more than once the first entry wins.
type lookup struct {
	legs     map[string]ProviderLeg
	places   map[int]string
	carriers map[int]string
	agents   map[int]string
}

func newLookup(resp *PollResponse) *lookup {
	l := &lookup{
		legs:     make(map[string]ProviderLeg, len(resp.Legs)),
		places:   make(map[int]string, len(resp.Places)),
		carriers: make(map[int]string, len(resp.Carriers)),
		agents:   make(map[int]string, len(resp.Agents)),
	}
	for _, leg := range resp.Legs {
		if _, ok := l.legs[leg.ID]; !ok {
			l.legs[leg.ID] = leg
		}
	}
	for _, p := range resp.Places {
		if _, ok := l.places[p.ID]; !ok {
			l.places[p.ID] = p.Name
		}
	}
	for _, c := range resp.Carriers {
		if _, ok := l.carriers[c.ID]; !ok {
			l.carriers[c.ID] = c.Name
		}
	}
	for _, a := range resp.Agents {
		if _, ok := l.agents[a.ID]; !ok {
			l.agents[a.ID] = a.Name
		}
	}
	return l
}

// Normalize joins a snapshot into self-contained itineraries, one per raw
// itinerary, in response order. A snapshot that fails the shape check returns
// MALFORMED_RESPONSE and no itineraries. Leg ids with no match do not fail the
// pass: the leg is returned with Resolved false and only its id set.
func Normalize(resp *PollResponse) ([]models.Itinerary, error) {
	if err := checkShape(resp); err != nil {
		return nil, err
	}

	l := newLookup(resp)
	out := make([]models.Itinerary, 0, len(resp.Itineraries))
	for _, raw := range resp.Itineraries {
		out = append(out, l.itinerary(raw))
	}
	return out, nil
}

func checkShape(resp *PollResponse) error {
	if resp == nil {
		return errors.NewMalformedResponseError("empty response")
	}

	if len(resp.Raw) > 0 {
		if res := validation.ValidatePollResponse(resp.Raw); !res.Valid {
			return errors.NewMalformedResponseError(res.Summary())
		}
	}

	// A body that passed the schema but did not decode leaves the collections nil.
	var missing []string
	if resp.Itineraries == nil {
		missing = append(missing, "Itineraries")
	}
	if resp.Legs == nil {
		missing = append(missing, "Legs")
	}
	if resp.Places == nil {
		missing = append(missing, "Places")
	}
	if resp.Carriers == nil {
		missing = append(missing, "Carriers")
	}
	if len(missing) > 0 {
		return errors.NewMalformedResponseError("missing collections: " + strings.Join(missing, ", "))
	}
	return nil
}

func (l *lookup) itinerary(raw ProviderItinerary) models.Itinerary {
	it := models.Itinerary{
		TripType:      models.TripTypeOneWay,
		OutboundLegID: raw.OutboundLegID,
		Outbound:      l.leg(raw.OutboundLegID),
	}

	if raw.InboundLegID != "" {
		inbound := l.leg(raw.InboundLegID)
		it.TripType = models.TripTypeRoundTrip
		it.InboundLegID = raw.InboundLegID
		it.Inbound = &inbound
	}

	if len(raw.PricingOptions) > 0 {
		opt := raw.PricingOptions[0]
		it.Price = opt.Price
		it.QuoteAgeMinutes = opt.QuoteAgeInMinutes
		it.DeepLink = opt.DeeplinkURL
		if len(opt.Agents) > 0 {
			it.Agent = l.agents[opt.Agents[0]]
		}
	}
	return it
}

func (l *lookup) leg(id string) models.Leg {
	raw, ok := l.legs[id]
	if !ok {
		return models.Leg{ID: id}
	}

	leg := models.Leg{
		ID:              raw.ID,
		Resolved:        true,
		OriginID:        raw.OriginStation,
		OriginName:      l.places[raw.OriginStation],
		DestinationID:   raw.DestinationStation,
		DestinationName: l.places[raw.DestinationStation],
		Departure:       raw.Departure,
		Arrival:         raw.Arrival,
		DurationMinutes: raw.Duration,
		Directionality:  raw.Directionality,
		CarrierIDs:      raw.Carriers,
		StopIDs:         raw.Stops,
	}
	leg.Carriers = resolveNames(raw.Carriers, l.carriers)
	leg.Stops = resolveNames(raw.Stops, l.places)
	return leg
}

// resolveNames maps ids to names in id order, skipping ids with no entry.
func resolveNames(ids []int, names map[int]string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return out
}
