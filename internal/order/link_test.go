package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+673 712-3456", "6737123456"},
		{"673 7123456", "6737123456"},
		{"7123456", "6737123456"},
		{"(712) 3456", "6737123456"},
		{"", ""},
		{"call me", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPhone(tt.in, DefaultCountryCode))
		})
	}
}

func TestFormatPhoneOtherCountry(t *testing.T) {
	assert.Equal(t, "60123456789", FormatPhone("123456789", "60"))
	assert.Equal(t, "60123456789", FormatPhone("+60 123456789", "60"))
}

func TestBuildDeepLink(t *testing.T) {
	assert.Equal(t,
		"https://wa.me/6737123456?text=Hi%20there",
		BuildDeepLink("+673 7123456", "Hi there"))
	assert.Equal(t,
		"https://wa.me/?text=x",
		BuildDeepLink("", "x"))
}

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"a b&c=d/e?f#g", "a%20b%26c%3Dd%2Fe%3Ff%23g"},
		{"line\nbreak", "line%0Abreak"},
		{"é", "%C3%A9"},
		{"🛒", "%F0%9F%9B%92"},
		{"*bold* +673", "*bold*%20%2B673"},
		{"•", "%E2%80%A2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeURIComponent(tt.in))
		})
	}
}
