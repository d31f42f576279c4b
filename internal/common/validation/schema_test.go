package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePollResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantText  string
	}{
		{
			name:      "complete snapshot",
			raw:       `{"Status":"UpdatesComplete","Itineraries":[{"OutboundLegId":"a"}],"Legs":[{"Id":"a","OriginStation":1,"DestinationStation":2}],"Places":[{"Id":1},{"Id":2}],"Carriers":[{"Id":9}]}`,
			wantValid: true,
		},
		{
			name:      "empty collections are fine",
			raw:       `{"Itineraries":[],"Legs":[],"Places":[],"Carriers":[]}`,
			wantValid: true,
		},
		{
			name:      "legs missing",
			raw:       `{"Itineraries":[],"Places":[],"Carriers":[]}`,
			wantValid: false,
			wantText:  "Legs",
		},
		{
			name:      "incomplete members are left to the normalizer",
			raw:       `{"Itineraries":[{"OutboundLegId":"a"},{}],"Legs":[{"Id":"a","OriginStation":null}],"Places":[{}],"Carriers":[]}`,
			wantValid: true,
		},
		{
			name:      "legs is an object",
			raw:       `{"Itineraries":[],"Legs":{},"Places":[],"Carriers":[]}`,
			wantValid: false,
			wantText:  "Legs",
		},
		{
			name:      "not json",
			raw:       `<html>`,
			wantValid: false,
			wantText:  "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidatePollResponse([]byte(tt.raw))
			assert.Equal(t, tt.wantValid, res.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, res.Errors)
				assert.Contains(t, res.Summary(), tt.wantText)
			}
		})
	}
}

func TestValidateDocument_BadSchema(t *testing.T) {
	_, err := ValidateDocument(`{"type": 5}`, []byte(`{}`))
	assert.Error(t, err)
}
