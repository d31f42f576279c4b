package searchliveflights

import (
	"fmt"
	"time"

	"escapade/internal/common/validation"
	"escapade/internal/models"
)

const dateLayout = "2006-01-02"

// InputSchema describes the job variables accepted by the worker.
const InputSchema = `{
  "type": "object",
  "required": ["queries"],
  "properties": {
    "userId": {"type": "integer", "minimum": 0},
    "searchName": {"type": "string", "maxLength": 200},
    "sequential": {"type": "boolean"},
    "correlationKey": {"type": "string"},
    "queries": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["originPlace", "destinationPlace", "outboundDate"],
        "properties": {
          "country": {"type": "string"},
          "currency": {"type": "string"},
          "locale": {"type": "string"},
          "originPlace": {"type": "string"},
          "destinationPlace": {"type": "string"},
          "outboundDate": {"type": "string"},
          "inboundDate": {"type": "string"},
          "adults": {"type": "integer"}
        }
      }
    }
  }
}`

// QueryValidator checks submitted queries before any provider call is made.
type QueryValidator struct {
	structs    *validation.StructValidator
	maxQueries int
	places     map[string]struct{}
	now        func() time.Time
}

func NewQueryValidator(maxQueries int) *QueryValidator {
	return &QueryValidator{
		structs:    validation.NewStructValidator(),
		maxQueries: maxQueries,
		now:        time.Now,
	}
}

// WithKnownPlaces restricts origin and destination to ids in the place catalogue.
// An empty catalogue leaves the check off.
func (v *QueryValidator) WithKnownPlaces(places map[string]struct{}) *QueryValidator {
	v.places = places
	return v
}

// Validate applies field rules to every query, then the date rules: the outbound date
// may not be in the past and the inbound date may not precede it.
func (v *QueryValidator) Validate(queries []models.SearchQuery) *validation.ValidationResult {
	out := &validation.ValidationResult{Valid: true}

	if len(queries) == 0 {
		out.Errors = append(out.Errors, validation.ValidationError{
			Field: "queries", Message: "at least one query is required", Code: "REQUIRED",
		})
	}
	if v.maxQueries > 0 && len(queries) > v.maxQueries {
		out.Errors = append(out.Errors, validation.ValidationError{
			Field:   "queries",
			Message: fmt.Sprintf("at most %d queries per search", v.maxQueries),
			Code:    "MAX",
		})
	}

	today := v.now().Format(dateLayout)
	for i, q := range queries {
		prefix := fmt.Sprintf("queries[%d]", i)

		res := v.structs.Validate(q)
		for _, e := range res.Errors {
			e.Field = prefix + "." + e.Field
			out.Errors = append(out.Errors, e)
		}
		if !res.Valid {
			continue
		}

		if len(v.places) > 0 {
			for _, f := range [][2]string{{"originPlace", q.OriginPlace}, {"destinationPlace", q.DestinationPlace}} {
				if _, ok := v.places[f[1]]; !ok {
					out.Errors = append(out.Errors, validation.ValidationError{
						Field:   prefix + "." + f[0],
						Message: fmt.Sprintf("unknown place %q", f[1]),
						Code:    "UNKNOWN_PLACE",
					})
				}
			}
		}

		// yyyy-mm-dd strings order the same way as the dates they hold.
		if q.OutboundDate < today {
			out.Errors = append(out.Errors, validation.ValidationError{
				Field:   prefix + ".outboundDate",
				Message: "must not be in the past",
				Code:    "DATE_IN_PAST",
			})
		}
		if q.HasInbound() && q.InboundDate < q.OutboundDate {
			out.Errors = append(out.Errors, validation.ValidationError{
				Field:   prefix + ".inboundDate",
				Message: "must not be before outboundDate",
				Code:    "DATE_ORDER",
			})
		}
	}

	out.Valid = len(out.Errors) == 0
	return out
}
