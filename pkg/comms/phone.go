package comms

import (
	"regexp"
	"strings"
)

var (
	nonDigits       = regexp.MustCompile(`\D`)
	countryCodeForm = regexp.MustCompile(`^\+?\d{1,3}$`)
)

// trunkPrefixes maps a country calling code to the national trunk prefix
// subscribers dial domestically. The prefix is not part of E.164 and must
// be stripped before prepending the country code.
var trunkPrefixes = map[string]string{
	"44":  "0", // United Kingdom
	"49":  "0", // Germany
	"33":  "0", // France
	"39":  "",  // Italy keeps its leading zero
	"61":  "0", // Australia
	"81":  "0", // Japan
	"91":  "0", // India
	"27":  "0", // South Africa
	"234": "0", // Nigeria
}

// FormatE164 normalizes a raw phone and country code into E.164 form
// ("+<country code><national number>"). Non-digits are stripped, the
// national trunk prefix is removed per the country table, and the
// remaining national number must be 6 to 14 digits. Inputs with a
// leading "+" are treated as already international and lose their
// duplicated country code.
func FormatE164(phone, countryCode string) (string, error) {
	cc := strings.TrimSpace(countryCode)
	if !countryCodeForm.MatchString(cc) {
		return "", commsErrors.New(ErrInvalidCountry).WithDetail("country_code", countryCode)
	}
	cc = strings.TrimPrefix(cc, "+")

	raw := strings.TrimSpace(phone)
	national := nonDigits.ReplaceAllString(raw, "")

	// A leading "+" marks the input as a full international number; only
	// then is a duplicated country code dropped. A national number that
	// merely starts with the same digits stays intact.
	if strings.HasPrefix(raw, "+") && strings.HasPrefix(national, cc) && len(national) > len(cc)+5 {
		national = national[len(cc):]
	}

	if trunk, ok := trunkPrefixes[cc]; ok && trunk != "" {
		national = strings.TrimPrefix(national, trunk)
	}

	if len(national) < 6 || len(national) > 14 {
		return "", commsErrors.New(ErrInvalidPhone).
			WithDetail("phone", phone).
			WithDetail("digits", len(national))
	}

	return "+" + cc + national, nil
}

// FormatWhatsAppNumber renders the Twilio WhatsApp address for a phone,
// "whatsapp:+<E.164 number>".
func FormatWhatsAppNumber(phone, countryCode string) (string, error) {
	e164, err := FormatE164(phone, countryCode)
	if err != nil {
		return "", err
	}
	return "whatsapp:" + e164, nil
}
