package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"trekkr/pkg/locale"
)

// NormalizePhone returns phone in E.164 form, or "" when no supported region
// recognises it as a valid number.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	for _, region := range locale.PhoneRegions() {
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return ""
}
