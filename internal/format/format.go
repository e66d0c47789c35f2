// Package format holds the display formatting helpers shared by the ledger
// and the notification feed: currency grouping, 12h clock conversion and the
// locale date strings stored on history entries.
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidClock = errors.New("invalid clock time")

// Currency renders an amount the way the dashboard shows RD$ values:
// rounded to whole units and grouped by thousands. Currency(1500) == "1,500".
func Currency(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	negative := rounded.IsNegative()
	digits := rounded.Abs().String()
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Clock12 converts a 24h "HH:MM" string to its 12h form, "14:30" -> "2:30 PM".
func Clock12(clock string) string {
	minutes, err := ParseClock(clock)
	if err != nil {
		return ""
	}
	hour := minutes / 60
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	hour = hour % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minutes%60, ampm)
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, ErrInvalidClock
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, ErrInvalidClock
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, ErrInvalidClock
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, ErrInvalidClock
	}
	return hour*60 + minute, nil
}

// DisplayDate matches the es-DO locale date the client stored on history
// entries and bills: day/month/year without leading zeros.
func DisplayDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

// DisplayTime matches the en-US 12h timestamp stored on notifications.
func DisplayTime(t time.Time) string {
	return t.Format("03:04 PM")
}
