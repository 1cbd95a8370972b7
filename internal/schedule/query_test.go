package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single word", input: "Koramangala", expected: "koramangala"},
		{name: "internal spaces", input: "MG Road Metro", expected: "mg+road+metro"},
		{name: "trailing whitespace", input: "Indiranagar  \t", expected: "indiranagar"},
		{name: "leading space kept", input: " Jayanagar", expected: "+jayanagar"},
		{name: "double space", input: "a  b", expected: "a++b"},
		{name: "special characters untouched", input: "St. Mark's & Co", expected: "st.+mark's+&+co"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Koramangala",
		"MG Road Metro  ",
		" Leading",
		"ALL CAPS STOP\n",
		"already+normalized",
		"tabs\tinside",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestQueryEncode(t *testing.T) {
	q := NewQuery("Koramangala", "Indiranagar", "08:30")
	assert.Equal(t, "departure=koramangala&destination=indiranagar&time=08:30", q.Encode())

	q = NewQuery("MG Road ", "Silk Board", "")
	assert.Equal(t, "departure=mg+road&destination=silk+board&time=", q.Encode())
}

func TestQueryURL(t *testing.T) {
	q := Query{Departure: "a", Destination: "b", Time: "10:00"}

	tests := []struct {
		base     string
		expected string
	}{
		{base: "https://busapi.amithv.xyz/api/v1/schedules?", expected: "https://busapi.amithv.xyz/api/v1/schedules?departure=a&destination=b&time=10:00"},
		{base: "http://localhost/schedules", expected: "http://localhost/schedules?departure=a&destination=b&time=10:00"},
		{base: "http://localhost/schedules?key=x", expected: "http://localhost/schedules?key=x&departure=a&destination=b&time=10:00"},
		{base: "http://localhost/schedules?key=x&", expected: "http://localhost/schedules?key=x&departure=a&destination=b&time=10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			assert.Equal(t, tt.expected, q.URL(tt.base))
		})
	}
}
