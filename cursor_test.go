package goresource

import (
	"encoding/base64"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DecodeCursor_EmptyToken(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, cursor)
}

func Test_DecodeCursor_KnownToken(t *testing.T) {
	// base64("p=A")
	cursor, err := DecodeCursor("cD1B")
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, 0, cursor.Offset)
	assert.False(t, cursor.Reverse)
	require.NotNil(t, cursor.Position)
	assert.Equal(t, "A", *cursor.Position)
}

func Test_Cursor_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
	}{
		{"zero cursor", Cursor{}},
		{"offset only", Cursor{Offset: 7}},
		{"reverse only", Cursor{Reverse: true}},
		{"position only", Cursor{Position: lo.ToPtr("A")}},
		{"empty position", Cursor{Position: lo.ToPtr("")}},
		{"all fields", Cursor{Offset: 3, Reverse: true, Position: lo.ToPtr("John Doe")}},
		{"position with separators", Cursor{Offset: 1, Position: lo.ToPtr("a&b=c?d")}},
		{"timestamp position", Cursor{Position: lo.ToPtr("2024-03-01T12:00:00.000000001Z")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeCursor(tt.cursor.String())
			require.NoError(t, err)

			if tt.cursor.IsEmpty() {
				require.Nil(t, decoded)
				return
			}

			require.NotNil(t, decoded)
			assert.Equal(t, tt.cursor.Offset, decoded.Offset)
			assert.Equal(t, tt.cursor.Reverse, decoded.Reverse)
			if tt.cursor.Position == nil {
				assert.Nil(t, decoded.Position)
			} else {
				require.NotNil(t, decoded.Position)
				assert.Equal(t, *tt.cursor.Position, *decoded.Position)
			}
		})
	}
}

func Test_DecodeCursor_InvalidTokens(t *testing.T) {
	encode := func(payload string) string {
		return base64.StdEncoding.EncodeToString([]byte(payload))
	}

	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "not-valid-base64!!!"},
		{"non-numeric offset", encode("o=abc")},
		{"blank offset", encode("o=")},
		{"negative offset", encode("o=-1")},
		{"non-numeric reverse", encode("r=yes")},
		{"blank reverse", encode("r=")},
		{"malformed query string", encode("p=%zz")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeCursor(tt.token)
			require.Nil(t, cursor)
			require.ErrorIs(t, err, ErrInvalidCursor)

			// Every token failure is also a not-found condition.
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func Test_DecodeCursor_OffsetCutoff(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("o=99999"))

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, offsetCutoff, cursor.Offset)
}

func Test_DecodeCursor_ReverseFlagValues(t *testing.T) {
	tests := []struct {
		payload string
		reverse bool
	}{
		{"r=1", true},
		{"r=0", false},
		{"r=2", true},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			token := base64.StdEncoding.EncodeToString([]byte(tt.payload))

			cursor, err := DecodeCursor(token)
			require.NoError(t, err)
			assert.Equal(t, tt.reverse, cursor.Reverse)
		})
	}
}

func Test_Cursor_NilReceiver(t *testing.T) {
	var cursor *Cursor

	assert.Equal(t, "", cursor.String())
	assert.True(t, cursor.IsEmpty())
	assert.Equal(t, 0, cursor.GetOffset())
	assert.False(t, cursor.IsReversed())
	assert.Nil(t, cursor.GetPosition())
}
