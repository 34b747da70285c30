package comms_test

import (
	"testing"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
)

func TestFormatE164(t *testing.T) {
	cases := []struct {
		phone       string
		countryCode string
		want        string
	}{
		{"9876543210", "+91", "+919876543210"},
		{"09876543210", "+91", "+919876543210"},   // Indian trunk zero
		{"0987654321", "+44", "+44987654321"},     // UK trunk zero
		{"98765 43210", "+91", "+919876543210"},   // spaces stripped
		{"(987) 654-3210", "+1", "+19876543210"},  // punctuation stripped
		{"+91 9876543210", "+91", "+919876543210"}, // duplicated country code
		{"+919876543210", "+91", "+919876543210"},  // duplicated country code, no space
		{"0151 1234567", "+49", "+491511234567"},  // German trunk zero
		{"5551234567", "1", "+15551234567"},       // country code without plus
	}

	for _, c := range cases {
		got, err := comms.FormatE164(c.phone, c.countryCode)
		if err != nil {
			t.Fatalf("FormatE164(%q, %q): unexpected error %v", c.phone, c.countryCode, err)
		}
		if got != c.want {
			t.Fatalf("FormatE164(%q, %q) = %q, want %q", c.phone, c.countryCode, got, c.want)
		}
	}
}

func TestFormatE164_KeepsNationalNumberStartingWithCountryCode(t *testing.T) {
	// Without a "+" the input is a national number; sharing leading
	// digits with the country code must not truncate it.
	got, err := comms.FormatE164("9198765432", "+91")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+919198765432" {
		t.Fatalf("got %q, want +919198765432", got)
	}
}

func TestFormatE164_Invalid(t *testing.T) {
	cases := []struct {
		phone       string
		countryCode string
	}{
		{"12345", "+91"},             // too short
		{"123456789012345", "+91"},   // too long
		{"9876543210", "abc"},        // bad country code
		{"9876543210", "+12345"},     // country code too long
		{"", "+44"},                  // empty phone
	}

	for _, c := range cases {
		if _, err := comms.FormatE164(c.phone, c.countryCode); err == nil {
			t.Fatalf("FormatE164(%q, %q): expected error", c.phone, c.countryCode)
		}
	}
}

func TestFormatWhatsAppNumber(t *testing.T) {
	got, err := comms.FormatWhatsAppNumber("9876543210", "+91")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "whatsapp:+919876543210" {
		t.Fatalf("got %q, want whatsapp:+919876543210", got)
	}
}
