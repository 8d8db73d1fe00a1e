package norm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const valueLogPrefix = "norm:value"

// Quantity is a numeric JSON field in a legacy payload. Clients send
// numbers, numeric strings, strings with a decimal comma, or nothing
// at all. Unparseable strings coerce to 0, matching what the old API
// did rather than rejecting whole rows over one bad cell.
type Quantity float64

// Float64 returns the quantity as a plain float.
func (q Quantity) Float64() float64 {
	return float64(q)
}

// UnmarshalJSON accepts numbers, numeric strings (decimal comma
// allowed), null, and "". Non-numeric strings coerce to 0.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%s - invalid quantity: %w", valueLogPrefix, err)
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if s == "" {
			*q = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*q = 0
			return nil
		}
		*q = Quantity(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%s - quantity must be a number or string: %w", valueLogPrefix, err)
	}
	*q = Quantity(f)
	return nil
}

// MarshalJSON renders the quantity as a plain JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(q))
}

// Flag is a tolerant boolean for legacy payloads. It decodes from JSON
// booleans, the strings "true"/"yes"/"1" and "false"/"no"/"0", and
// numbers (0 is false). Absent, null, and unrecognized values leave it
// unset so the caller's default applies.
type Flag struct {
	value bool
	set   bool
}

// FlagOf wraps a concrete boolean as a set Flag.
func FlagOf(v bool) Flag {
	return Flag{value: v, set: true}
}

// Or returns the flag value, or def when the flag was never set.
func (f Flag) Or(def bool) bool {
	if f.set {
		return f.value
	}
	return def
}

// Bool returns the value and whether it was explicitly set.
func (f Flag) Bool() (value, ok bool) {
	return f.value, f.set
}

var (
	truthyWords = map[string]bool{"true": true, "yes": true, "1": true}
	falsyWords  = map[string]bool{"false": true, "no": true, "0": true}
)

// UnmarshalJSON decodes the legacy boolean shapes. Unrecognized
// strings leave the flag unset rather than failing the request.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = Flag{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("%s - invalid flag: %w", valueLogPrefix, err)
		}
		*f = FlagOf(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%s - invalid flag: %w", valueLogPrefix, err)
		}
		word := strings.ToLower(strings.TrimSpace(s))
		if truthyWords[word] {
			*f = FlagOf(true)
		} else if falsyWords[word] {
			*f = FlagOf(false)
		}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%s - flag must be a boolean, string, or number: %w", valueLogPrefix, err)
		}
		*f = FlagOf(n != 0)
	}
	return nil
}

// MarshalJSON renders the effective value; unset flags render false.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Or(false))
}

// UniqueFold deduplicates strings case-insensitively, keeping the
// first spelling seen and the original order. Blank entries are
// dropped. The refs endpoint depends on this exact behavior: org and
// supplier pickers must not show "ACME" and "Acme" twice.
func UniqueFold(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
