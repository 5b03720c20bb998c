package tabular

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/capfolio/backend/src/models"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"$1,234.56", "1234.56"},
		{"(500.00)", "-500"},
		{"($1,500.25)", "-1500.25"},
		{"-42", "-42"},
		{"", "0"},
		{"-", "0"},
		{"--", "0"},
		{"  $0.00000001 ", "0.00000001"},
		{"+100", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimal(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseDecimalRejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "12.3.4", "N/A", "$"} {
		_, err := ParseDecimal(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseDateGuessedLayouts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2023-06-15", "2023-06-15"},
		{"06/15/2023", "2023-06-15"},
		{"6/15/2023", "2023-06-15"},
		{"2023-06-15T14:30:00Z", "2023-06-15"},
		{"2023-06-15 14:30:00", "2023-06-15"},
		{"Jan 2, 2023", "2023-01-02"},
		{"20230615", "2023-06-15"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseDateHintDisambiguates(t *testing.T) {
	// 03/04/2023 is March 4 in the US and April 3 in most of Europe.
	mdy, err := ParseDate("03/04/2023", models.DateFormatMDY)
	require.NoError(t, err)
	assert.Equal(t, "2023-03-04", mdy.Format("2006-01-02"))

	dmy, err := ParseDate("03/04/2023", models.DateFormatDMY)
	require.NoError(t, err)
	assert.Equal(t, "2023-04-03", dmy.Format("2006-01-02"))
}

func TestParseDateFailures(t *testing.T) {
	for _, in := range []string{"", "not a date", "13/45/2023"} {
		_, err := ParseDate(in, models.DateFormatMDY)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseAcquiredDatePlaceholders(t *testing.T) {
	sold := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"Various", "VARIOUS", "Inherited", "gifted", " unknown "} {
		got, estimated, err := ParseAcquiredDate(in, sold, models.DateFormatMDY)
		require.NoError(t, err, "input %q", in)
		assert.True(t, estimated, "input %q", in)
		// The estimate lands comfortably before the long-term boundary.
		assert.True(t, got.Before(sold.AddDate(-1, 0, 0)), "input %q estimated %s", in, got)
	}
}

func TestParseAcquiredDateRealDateIsNotEstimated(t *testing.T) {
	sold := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	got, estimated, err := ParseAcquiredDate("01/15/2021", sold, models.DateFormatMDY)
	require.NoError(t, err)
	assert.False(t, estimated)
	assert.Equal(t, "2021-01-15", got.Format("2006-01-02"))
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"Yes", "y", "TRUE", "1", "Covered", "reported"} {
		assert.True(t, ParseBool(in), "input %q", in)
	}
	for _, in := range []string{"No", "n", "false", "0", "", "Noncovered"} {
		assert.False(t, ParseBool(in), "input %q", in)
	}
}
