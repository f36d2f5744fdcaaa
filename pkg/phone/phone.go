// Package phone normalizes North American phone numbers to E.164.
package phone

import "strings"

// Normalize converts a raw phone number into E.164 form using North
// American defaults:
//
//   - 10 digits are prefixed with +1
//   - 11 digits starting with 1 are prefixed with +
//   - input already starting with + is returned unchanged
//   - anything else becomes +1 followed by its digits
//
// Normalize never fails. Short or garbage input yields a syntactically odd
// result rather than an error, and such results are not stable: 9 digits
// become "+1" plus 9 digits, which has 10 digits and gains a second "1" when
// normalized again. Valid 10 and 11 digit numbers are idempotent.
func Normalize(raw string) string {
	digits := Digits(raw)

	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	case strings.HasPrefix(raw, "+"):
		return raw
	default:
		return "+1" + digits
	}
}

// Digits strips everything except ASCII digits.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Mask replaces every digit except the last four with '*', for logs.
func Mask(number string) string {
	const visible = 4
	if len(number) <= visible {
		return number
	}
	masked := []byte(number)
	for i := 0; i < len(masked)-visible; i++ {
		if masked[i] >= '0' && masked[i] <= '9' {
			masked[i] = '*'
		}
	}
	return string(masked)
}
