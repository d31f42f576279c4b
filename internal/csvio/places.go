package csvio

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"escapade/internal/models"
)

// PlaceColumns is the header of a place catalogue file.
var PlaceColumns = []string{"PlaceId", "PlaceName", "CountryId", "RegionId", "CityId", "CountryName"}

// WritePlaces writes the catalogue with a header row.
func WritePlaces(w io.Writer, places []models.Place) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PlaceColumns); err != nil {
		return err
	}
	for _, p := range places {
		if err := cw.Write([]string{p.PlaceID, p.PlaceName, p.CountryID, p.RegionID, p.CityID, p.CountryName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlacesFile creates or truncates path and calls WritePlaces.
func WritePlacesFile(path string, places []models.Place) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = WritePlaces(f, places)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadPlaceIDs returns the set of PlaceId values in a catalogue file.
// The PlaceId column may appear anywhere in the header.
func ReadPlaceIDs(r io.Reader) (map[string]struct{}, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if stderrors.Is(err, io.EOF) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, h := range header {
		if normalizeHeader(h) == "placeid" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no PlaceId column in header")
	}

	ids := make(map[string]struct{})
	for {
		record, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col >= len(record) {
			continue
		}
		if id := strings.TrimSpace(record[col]); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// ReadPlaceIDsFile opens path and calls ReadPlaceIDs.
func ReadPlaceIDsFile(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPlaceIDs(f)
}
