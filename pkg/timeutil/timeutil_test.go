package timeutil

import (
	"testing"
	"time"
)

func TestISOWeekday(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"monday", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 1},
		{"wednesday", time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), 3},
		{"saturday", time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), 6},
		{"sunday maps to 7", time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ISOWeekday(tt.date); got != tt.want {
				t.Errorf("ISOWeekday(%s) = %d, want %d", tt.date.Weekday(), got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"9:00", 0, true},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"", 0, true},
		{"nine", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error, got %d", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFormatClock_RoundTrip(t *testing.T) {
	for _, minutes := range []int{0, 540, 750, 1439} {
		s := FormatClock(minutes)
		back, err := ParseClock(s)
		if err != nil {
			t.Fatalf("FormatClock(%d) produced unparseable %q: %v", minutes, s, err)
		}
		if back != minutes {
			t.Errorf("round trip %d -> %q -> %d", minutes, s, back)
		}
	}
}

func TestTruncateMinute(t *testing.T) {
	in := time.Date(2025, 6, 2, 9, 30, 45, 123456789, time.UTC)
	got := TruncateMinute(in)
	want := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TruncateMinute = %v, want %v", got, want)
	}
}

func TestAtMinutes(t *testing.T) {
	date := time.Date(2025, 6, 2, 17, 45, 12, 99, time.UTC)
	got := AtMinutes(date, 540)
	want := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AtMinutes = %v, want %v", got, want)
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.January, 31},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.April, 30},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}
