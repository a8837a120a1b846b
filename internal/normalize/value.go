package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// StripFloatSuffix removes a single literal trailing ".0". It does not look at
// the rest of the field, so "v1.0" becomes "v1" as well.
func StripFloatSuffix(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// ConvertValue infers the type of one field: int64 first, then float64, and
// otherwise the trimmed string itself. Parsing is locale independent.
func ConvertValue(raw string) any {
	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if isDecimalLiteral(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// isDecimalLiteral rejects forms strconv.ParseFloat accepts but QC exports
// never mean as numbers: hex floats, underscores, Inf and NaN.
func isDecimalLiteral(s string) bool {
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '.' || r == '+' || r == '-' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return digits
}

// FormatValue renders a converted value back to text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// CompactWhitespace removes every whitespace rune, internal ones included.
func CompactWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// IsMissing reports whether a field carries no value: blank after trimming or
// the literal NA in any case.
func IsMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "NA")
}
