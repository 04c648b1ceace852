package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseBillID проверяет сведение числовых и строковых форм к одному значению.
func TestParseBillID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want BillID
	}{
		{name: "integer text", raw: "1700000000000", want: "1700000000000"},
		{name: "surrounding spaces", raw: "  1700000000000 ", want: "1700000000000"},
		{name: "leading zeros", raw: "0042", want: "42"},
		{name: "exponent", raw: "1.7e12", want: "1700000000000"},
		{name: "integral float", raw: "15.0", want: "15"},
		{name: "fraction", raw: "1.50", want: "1.5"},
		{name: "text", raw: "bill-abc", want: "bill-abc"},
		{name: "nan stays text", raw: "NaN", want: "NaN"},
		{name: "beyond int64", raw: "12345678901234567890", want: "12345678901234567890"},
		{name: "beyond int64 exponent", raw: "1.2345678901234567891e19", want: "12345678901234567891"},
		{name: "huge exponent stays text", raw: "1e1000", want: "1e1000"},
		{name: "occurrence", raw: "1700000000000-20240229", want: "1700000000000-20240229"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBillID(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParseBillIDDistinctLargeIntegers проверяет, что разные большие числа не сливаются.
func TestParseBillIDDistinctLargeIntegers(t *testing.T) {
	first, err := ParseBillID("12345678901234567890")
	require.NoError(t, err)
	second, err := ParseBillID("12345678901234567891")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	var fromNumber BillID
	require.NoError(t, json.Unmarshal([]byte(`12345678901234567891`), &fromNumber))
	assert.Equal(t, second, fromNumber)

	third, err := ParseBillID("9007199254740993")
	require.NoError(t, err)
	fourth, err := ParseBillID("9007199254740992.0")
	require.NoError(t, err)
	assert.NotEqual(t, third, fourth)
}

// TestParseBillIDEmpty проверяет отказ для пустого идентификатора.
func TestParseBillIDEmpty(t *testing.T) {
	_, err := ParseBillID("   ")
	require.ErrorIs(t, err, ErrInvalidBillID)
}

// TestBillIDJSON проверяет, что числовой и строковый JSON дают одинаковый идентификатор.
func TestBillIDJSON(t *testing.T) {
	var fromNumber, fromString BillID
	require.NoError(t, json.Unmarshal([]byte(`1700000000000`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`"1700000000000"`), &fromString))
	assert.Equal(t, fromNumber, fromString)

	encoded, err := json.Marshal(fromString)
	require.NoError(t, err)
	assert.Equal(t, `1700000000000`, string(encoded))

	encoded, err = json.Marshal(BillID("1700000000000-20240229"))
	require.NoError(t, err)
	assert.Equal(t, `"1700000000000-20240229"`, string(encoded))

	var empty BillID
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Equal(t, BillID(""), empty)

	assert.Error(t, json.Unmarshal([]byte(`true`), &empty))
}
