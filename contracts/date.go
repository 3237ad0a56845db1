package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a calendar date carried in message payloads. Producers emit either
// a bare "2006-01-02" or a full RFC 3339 timestamp; both are accepted.
type Date struct {
	time.Time
}

// NewDate builds a Date truncated to the day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Time.IsZero()
}

// AddDays returns the date shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// String formats the date as 2006-01-02, or empty when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// MarshalJSON emits the 2006-01-02 form.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "2006-01-02", RFC 3339, and null/empty.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("contracts: invalid date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = Date{t}
			return nil
		}
	}
	return fmt.Errorf("contracts: invalid date %q", s)
}
