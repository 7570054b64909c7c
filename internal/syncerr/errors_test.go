package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsAreDetectableThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")

	transport := fmt.Errorf("cannot fetch issues: %w", Transport("GET issues", 0, cause))
	assert.True(t, IsTransport(transport))
	assert.False(t, IsData(transport))
	assert.ErrorIs(t, transport, cause)

	data := fmt.Errorf("cannot fetch states: %w", Data("GET states", errors.New("invalid API response format")))
	assert.True(t, IsData(data))
	assert.False(t, IsTransport(data))
}

func TestTransportErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "with status",
			err:      Transport("GET states", 500, errors.New("Internal Server Error")),
			expected: "GET states: unexpected status 500: Internal Server Error",
		},
		{
			name:     "without status",
			err:      Transport("POST webhook", 0, errors.New("timeout")),
			expected: "POST webhook: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}
