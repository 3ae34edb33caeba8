package locale

import (
	"slices"
)

const DefaultRegion = "IN"

type Country struct {
	Code     string // ISO 3166-1 alpha-2
	Name     string
	DialCode string
}

// Countries lists the regions participants are commonly booked from. The
// order of PhoneRegions decides how numbers without a country code are read.
var Countries = map[string]Country{
	"IN": {Code: "IN", Name: "India", DialCode: "+91"},
	"NP": {Code: "NP", Name: "Nepal", DialCode: "+977"},
	"BT": {Code: "BT", Name: "Bhutan", DialCode: "+975"},
	"US": {Code: "US", Name: "United States", DialCode: "+1"},
	"GB": {Code: "GB", Name: "United Kingdom", DialCode: "+44"},
}

var phoneRegions = []string{"IN", "NP", "BT", "US", "GB"}

func PhoneRegions() []string {
	return slices.Clone(phoneRegions)
}
