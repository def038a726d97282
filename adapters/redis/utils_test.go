package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParseRoundTrip(t *testing.T) {
	original := TestMessage{ID: "m-1", Data: "hello"}

	encoded, err := DefaultParseToMessage(original)
	assert.NoError(t, err)
	assert.Contains(t, encoded, "data")

	decoded, err := DefaultParseFromMessage[TestMessage](encoded)
	assert.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDefaultParseRejectsPointer(t *testing.T) {
	_, err := DefaultParseToMessage(&TestMessage{ID: "m-1"})
	assert.ErrorIs(t, err, ErrPointerType)
}

func TestDefaultParseFromMessageErrors(t *testing.T) {
	tests := []struct {
		name    string
		message map[string]any
		wantErr bool
	}{
		{
			name:    "空訊息視為零值",
			message: map[string]any{},
			wantErr: false,
		},
		{
			name:    "缺少data欄位",
			message: map[string]any{"other": "x"},
			wantErr: true,
		},
		{
			name:    "data不是合法的base64",
			message: map[string]any{"data": "???"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultParseFromMessage[TestMessage](tt.message)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
