// Package csvio reads search queries from header-row CSV files and writes
// normalized itineraries as flat CSV rows.
package csvio

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"escapade/internal/models"
)

// ResultColumns precede models.FlatColumns in every exported row.
var ResultColumns = []string{"QueryIndex", "Status"}

// headerAliases maps normalized header names to query fields. Both the provider's
// parameter names and the JSON field names are accepted.
var headerAliases = map[string]string{
	"country":             "country",
	"currency":            "currency",
	"locale":              "locale",
	"originplace":         "originPlace",
	"origin":              "originPlace",
	"destinationplace":    "destinationPlace",
	"destination":         "destinationPlace",
	"outbounddate":        "outboundDate",
	"outboundpartialdate": "outboundDate",
	"inbounddate":         "inboundDate",
	"inboundpartialdate":  "inboundDate",
	"adults":              "adults",
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.TrimPrefix(h, "\ufeff") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// ReadQueries parses one query per row. Unknown columns are ignored, blank rows are
// skipped and empty locale fields are filled from d.
func ReadQueries(r io.Reader, d models.QueryDefaults) ([]models.SearchQuery, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if stderrors.Is(err, io.EOF) {
		return []models.SearchQuery{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = headerAliases[normalizeHeader(h)]
	}

	queries := []models.SearchQuery{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		var q models.SearchQuery
		for i, value := range record {
			if i >= len(fields) {
				break
			}
			value = strings.TrimSpace(value)
			switch fields[i] {
			case "country":
				q.Country = value
			case "currency":
				q.Currency = value
			case "locale":
				q.Locale = value
			case "originPlace":
				q.OriginPlace = value
			case "destinationPlace":
				q.DestinationPlace = value
			case "outboundDate":
				q.OutboundDate = value
			case "inboundDate":
				q.InboundDate = value
			case "adults":
				if value == "" {
					continue
				}
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: adults %q is not a number", line, value)
				}
				q.Adults = n
			}
		}
		queries = append(queries, q.WithDefaults(d))
	}
	return queries, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadQueriesFile opens path and calls ReadQueries.
func ReadQueriesFile(path string, d models.QueryDefaults) ([]models.SearchQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadQueries(f, d)
}

// WriteItineraries writes one row per itinerary of every complete or stale result,
// preceded by a header unless header is false. It returns the number of data rows.
func WriteItineraries(w io.Writer, results []models.PipelineResult, header bool) (int, error) {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(append(append([]string{}, ResultColumns...), models.FlatColumns...)); err != nil {
			return 0, err
		}
	}

	rows := 0
	for _, res := range results {
		if !res.HasResults() {
			continue
		}
		for _, it := range res.Itineraries {
			row := []string{strconv.Itoa(res.Index), string(res.Status)}
			row = append(row, it.Flatten().Values()...)
			if err := cw.Write(row); err != nil {
				return rows, err
			}
			rows++
		}
	}

	cw.Flush()
	return rows, cw.Error()
}

// WriteItinerariesFile creates or truncates path, or appends to it when appendMode is set.
// The header is written only when the file starts empty.
func WriteItinerariesFile(path string, results []models.PipelineResult, appendMode bool) (int, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}

	rows, err := WriteItineraries(f, results, info.Size() == 0)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return rows, err
}
