// Package sanitizer normalizes user supplied booking and catalogue input
// before validation and storage.
//
// All functions are idempotent. Invalid input is reported by returning an
// empty value rather than an error; validators decide whether empty is allowed.
//
// Normalization includes:
//   - Phone numbers: E.164 (+[country][number]), numbers without a country code read as Indian first
//   - Emails: trimmed and lowercased
//   - Names and free text: whitespace collapsed and trimmed
//   - Promo codes: trimmed and uppercased
//   - Months: canonical English name ("march" becomes "March")
//   - Slices: duplicates and empty values removed after normalization
//   - URLs: https enforced, host lowercased
package sanitizer
