// internal/models/place.go
package models

// Place is one entry of the provider's place catalogue. PlaceID is the value
// queries use as originPlace or destinationPlace, for example "LHR-sky".
type Place struct {
	PlaceID     string `json:"PlaceId"`
	PlaceName   string `json:"PlaceName"`
	CountryID   string `json:"CountryId,omitempty"`
	RegionID    string `json:"RegionId,omitempty"`
	CityID      string `json:"CityId,omitempty"`
	CountryName string `json:"CountryName,omitempty"`
}
