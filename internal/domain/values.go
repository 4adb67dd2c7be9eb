package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Text is a string attribute that also accepts JSON numbers, since models
// frequently emit batch numbers and dates unquoted.
type Text string

// NewText returns a pointer to a Text holding s.
func NewText(s string) *Text {
	t := Text(s)
	return &t
}

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	*t = Text(string(b))
	return nil
}

// String returns the value, or "" for a nil Text.
func (t *Text) String() string {
	if t == nil {
		return ""
	}
	return string(*t)
}

// Populated reports whether t is non-nil and not blank.
func (t *Text) Populated() bool {
	return t != nil && strings.TrimSpace(string(*t)) != ""
}

var numberNoise = regexp.MustCompile(`(?i)rs\.?|inr|₹|,|\s`)

// Number is an optional decimal quantity. It decodes JSON numbers as well as
// strings such as "Rs. 45.00". A string that is not a number ("1x10",
// "40 per strip") is kept verbatim in Raw so it still counts as populated
// and survives a round trip.
type Number struct {
	Value decimal.Decimal
	Valid bool
	Raw   string
}

// NewNumber returns a valid Number holding f.
func NewNumber(f float64) Number {
	return Number{Value: decimal.NewFromFloat(f), Valid: true}
}

// Populated reports whether n carries a parsed value or unparsed text.
func (n Number) Populated() bool {
	return n.Valid || n.Raw != ""
}

// String returns the decimal form, the raw text, or "" when absent.
func (n Number) String() string {
	if n.Valid {
		return n.Value.String()
	}
	return n.Raw
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = Number{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	text := string(b)
	if b[0] == '"' {
		if s, err := strconv.Unquote(text); err == nil {
			text = s
		}
	}
	text = strings.TrimSpace(text)
	cleaned := numberNoise.ReplaceAllString(text, "")
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		n.Raw = text
		return nil
	}
	*n = Number{Value: d, Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	switch {
	case n.Valid:
		return []byte(n.Value.String()), nil
	case n.Raw != "":
		return json.Marshal(n.Raw)
	}
	return []byte("null"), nil
}
