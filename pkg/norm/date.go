// Package norm coerces the loose value shapes legacy clients send into
// Go values and formats them back the way the old API responded. The
// front end never agreed on one date format or decimal separator, so
// every inbound field goes through these helpers instead of plain
// encoding/json decoding.
package norm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLogPrefix = "norm:date"

// DateLayout is the single format dates are rendered in on the wire.
const DateLayout = "2006-01-02"

// Inbound layouts, tried in order. The first two cover the web client,
// the slash form shows up in spreadsheet imports.
var dateLayouts = []string{DateLayout, "02.01.2006", "02/01/2006"}

// ParseDate parses one of the accepted legacy date formats. Timestamps
// with a time part are truncated to their date.
func ParseDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if i := strings.IndexByte(s, 'T'); i == 10 {
		s = s[:10]
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("%s - empty date", dateLogPrefix)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s - unrecognized date %q", dateLogPrefix, value)
}

// FormatDate renders a nullable date the way the legacy API did:
// "YYYY-MM-DD", or the empty string for missing dates.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Date is a JSON date field in a legacy payload. It decodes from any
// accepted inbound format (null and "" mean unset) and encodes as
// "YYYY-MM-DD" or "".
type Date struct {
	t time.Time
}

// DateOf wraps a concrete time as a Date.
func DateOf(t time.Time) Date {
	return Date{t: t}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns the date as a nullable time, nil when unset. The
// pointer form matches how nullable DATE columns scan.
func (d Date) Time() *time.Time {
	if d.t.IsZero() {
		return nil
	}
	t := d.t
	return &t
}

func (d Date) String() string {
	return FormatDate(d.Time())
}

// UnmarshalJSON accepts null, "", and the legacy inbound formats.
// Unparseable strings are an error, never silently unset.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.t = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%s - date must be a string: %w", dateLogPrefix, err)
	}
	if strings.TrimSpace(s) == "" {
		d.t = time.Time{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.t = t
	return nil
}

// MarshalJSON renders "YYYY-MM-DD", or "" when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
