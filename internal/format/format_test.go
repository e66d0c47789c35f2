package format

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1500", "1,500"},
		{"1234567", "1,234,567"},
		{"1500.49", "1,500"},
		{"1500.5", "1,501"},
		{"-25000", "-25,000"},
	}
	for _, tc := range cases {
		got := Currency(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Errorf("Currency(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClock12(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"14:30", "2:30 PM"},
		{"00:05", "12:05 AM"},
		{"12:00", "12:00 PM"},
		{"09:15", "9:15 AM"},
		{"23:59", "11:59 PM"},
		{"garbage", ""},
	}
	for _, tc := range cases {
		if got := Clock12(tc.in); got != tc.want {
			t.Errorf("Clock12(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("10:45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minutes != 645 {
		t.Fatalf("expected 645 minutes, got %d", minutes)
	}
	for _, bad := range []string{"", "10", "24:00", "10:60", "aa:bb", "-1:30"} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrInvalidClock) {
			t.Errorf("ParseClock(%q) expected ErrInvalidClock, got %v", bad, err)
		}
	}
}

func TestDisplayDate(t *testing.T) {
	got := DisplayDate(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
	if got != "5/3/2024" {
		t.Fatalf("DisplayDate = %q, want 5/3/2024", got)
	}
}

func TestDisplayTime(t *testing.T) {
	got := DisplayTime(time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC))
	if got != "02:07 PM" {
		t.Fatalf("DisplayTime = %q, want 02:07 PM", got)
	}
}
