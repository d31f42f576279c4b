// internal/models/itinerary.go
package models

import (
	"encoding/json"
	"strconv"
)

// TripType distinguishes itineraries with and without a return leg.
type TripType string

const (
	TripTypeOneWay    TripType = "one_way"
	TripTypeRoundTrip TripType = "round_trip"
)

// Leg is one directional flight segment with every id resolved to a display name.
// When Resolved is false the leg id had no match in the response and only ID is set.
type Leg struct {
	ID              string   `json:"id"`
	Resolved        bool     `json:"resolved"`
	OriginID        int      `json:"originId,omitempty"`
	OriginName      string   `json:"originName,omitempty"`
	DestinationID   int      `json:"destinationId,omitempty"`
	DestinationName string   `json:"destinationName,omitempty"`
	Departure       string   `json:"departure,omitempty"`
	Arrival         string   `json:"arrival,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Directionality  string   `json:"directionality,omitempty"`
	CarrierIDs      []int    `json:"carrierIds,omitempty"`
	Carriers        []string `json:"carriers,omitempty"`
	StopIDs         []int    `json:"stopIds,omitempty"`
	Stops           []string `json:"stops,omitempty"`
}

// Itinerary is a priced outbound leg with an optional inbound leg.
type Itinerary struct {
	TripType        TripType `json:"tripType"`
	OutboundLegID   string   `json:"outboundLegId"`
	InboundLegID    string   `json:"inboundLegId,omitempty"`
	Price           float64  `json:"price"`
	QuoteAgeMinutes int      `json:"quoteAgeMinutes"`
	DeepLink        string   `json:"deepLink,omitempty"`
	Agent           string   `json:"agent,omitempty"`
	Outbound        Leg      `json:"outbound"`
	Inbound         *Leg     `json:"inbound,omitempty"`
}

// FlatColumns is the column order of FlatItinerary.Values, shared by CSV export
// and the search_live_data table.
var FlatColumns = []string{
	"OutboundLegId", "Price", "QuoteAge", "InboundLegId", "linkURL", "Agent",
	"OriginStationOB", "DestinationStationOB", "DepartureOB", "ArrivalOB", "DurationOB",
	"CarriersOB", "DirectionalityOB", "StopsOB",
	"OriginStationIB", "DestinationStationIB", "DepartureIB", "ArrivalIB", "DurationIB",
	"CarriersIB", "DirectionalityIB", "StopsIB",
	"stopsListOB", "carriersListOB", "stopsListIB", "carriersListIB",
	"OriginStationNameOB", "DestinationStationNameOB", "OriginStationNameIB", "DestinationStationNameIB",
}

// FlatLeg is the tabular form of a Leg. List fields hold compact JSON arrays.
type FlatLeg struct {
	OriginStation          string `json:"originStation"`
	DestinationStation     string `json:"destinationStation"`
	Departure              string `json:"departure"`
	Arrival                string `json:"arrival"`
	Duration               string `json:"duration"`
	Carriers               string `json:"carriers"`
	Directionality         string `json:"directionality"`
	Stops                  string `json:"stops"`
	StopsList              string `json:"stopsList"`
	CarriersList           string `json:"carriersList"`
	OriginStationName      string `json:"originStationName"`
	DestinationStationName string `json:"destinationStationName"`
}

// FlatItinerary is the row persisted and exported for one Itinerary.
// Inbound is the zero FlatLeg for one-way trips.
type FlatItinerary struct {
	OutboundLegID string  `json:"outboundLegId"`
	Price         string  `json:"price"`
	QuoteAge      string  `json:"quoteAge"`
	InboundLegID  string  `json:"inboundLegId"`
	LinkURL       string  `json:"linkUrl"`
	Agent         string  `json:"agent"`
	Outbound      FlatLeg `json:"outbound"`
	Inbound       FlatLeg `json:"inbound"`
}

// Flatten projects the itinerary onto the flat row layout.
func (i Itinerary) Flatten() FlatItinerary {
	f := FlatItinerary{
		OutboundLegID: i.OutboundLegID,
		Price:         strconv.FormatFloat(i.Price, 'f', -1, 64),
		QuoteAge:      strconv.Itoa(i.QuoteAgeMinutes),
		InboundLegID:  i.InboundLegID,
		LinkURL:       i.DeepLink,
		Agent:         i.Agent,
		Outbound:      flattenLeg(i.Outbound),
	}
	if i.TripType == TripTypeRoundTrip && i.Inbound != nil {
		f.Inbound = flattenLeg(*i.Inbound)
	}
	return f
}

// Values returns the row in FlatColumns order.
func (f FlatItinerary) Values() []string {
	ob, ib := f.Outbound, f.Inbound
	return []string{
		f.OutboundLegID, f.Price, f.QuoteAge, f.InboundLegID, f.LinkURL, f.Agent,
		ob.OriginStation, ob.DestinationStation, ob.Departure, ob.Arrival, ob.Duration,
		ob.Carriers, ob.Directionality, ob.Stops,
		ib.OriginStation, ib.DestinationStation, ib.Departure, ib.Arrival, ib.Duration,
		ib.Carriers, ib.Directionality, ib.Stops,
		ob.StopsList, ob.CarriersList, ib.StopsList, ib.CarriersList,
		ob.OriginStationName, ob.DestinationStationName, ib.OriginStationName, ib.DestinationStationName,
	}
}

func flattenLeg(l Leg) FlatLeg {
	if !l.Resolved {
		return FlatLeg{}
	}
	return FlatLeg{
		OriginStation:          stationID(l.OriginID),
		DestinationStation:     stationID(l.DestinationID),
		Departure:              l.Departure,
		Arrival:                l.Arrival,
		Duration:               strconv.Itoa(l.DurationMinutes),
		Carriers:               compactList(l.CarrierIDs),
		Directionality:         l.Directionality,
		Stops:                  compactList(l.StopIDs),
		StopsList:              compactList(l.Stops),
		CarriersList:           compactList(l.Carriers),
		OriginStationName:      l.OriginName,
		DestinationStationName: l.DestinationName,
	}
}

// stationID leaves a missing station (id 0) blank rather than writing "0".
func stationID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func compactList[T int | string](items []T) string {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}
