package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id == "" {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	assert.Len(t, ids, numIDs)
}

func TestParseRequestID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RequestID
		wantErr bool
	}{
		{name: "plain", input: "req-123", want: "req-123"},
		{name: "trimmed", input: "  abc  ", want: "abc"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequestID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestIDOrNew(t *testing.T) {
	assert.Equal(t, RequestID("given"), RequestIDOrNew("given"))

	generated := RequestIDOrNew("")
	assert.NotEmpty(t, generated.String())
	assert.NotEqual(t, generated, RequestIDOrNew(""))
}
