package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDateAddMonths проверяет календарное сложение с обрезкой до конца месяца.
func TestDateAddMonths(t *testing.T) {
	tests := []struct {
		from   string
		months int
		want   string
	}{
		{from: "2024-01-31", months: 1, want: "2024-02-29"},
		{from: "2023-01-31", months: 1, want: "2023-02-28"},
		{from: "2024-01-15", months: 1, want: "2024-02-15"},
		{from: "2024-11-30", months: 3, want: "2025-02-28"},
		{from: "2024-02-29", months: 12, want: "2025-02-28"},
		{from: "2024-12-31", months: 1, want: "2025-01-31"},
		{from: "2024-03-31", months: -1, want: "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got := MustParseDate(tt.from).AddMonths(tt.months)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

// TestParseDate проверяет разбор дат и меток времени.
func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.March, 1), d)

	d, err = ParseDate("2024-03-01T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.March, 1), d)

	_, err = ParseDate("03/01/2024")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

// TestDateJSON проверяет формат сериализации и пустые значения.
func TestDateJSON(t *testing.T) {
	encoded, err := json.Marshal(NewDate(2024, time.February, 29))
	require.NoError(t, err)
	assert.Equal(t, `"2024-02-29"`, string(encoded))

	var payload struct {
		Due  Date  `json:"due"`
		Paid *Date `json:"paid"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2024-01-31","paid":null}`), &payload))
	assert.Equal(t, "2024-01-31", payload.Due.String())
	assert.Nil(t, payload.Paid)

	var empty Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.True(t, empty.IsZero())
}
