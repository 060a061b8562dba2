package dialogue_test

import (
	"errors"
	"testing"
	"time"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
)

// wednesday is the reference "now" for date tests: Wednesday 14 May 2025.
var wednesday = time.Date(2025, time.May, 14, 10, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseNumber(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"four", 4, true},
		{"4", 4, true},
		{"zero people", 0, false},
		{"twenty", 20, true},
		{"twenty-one", 0, false},
		{"table five", 5, true},
		{"we are 12 people", 12, true},
		{"just the two of us", 2, true},
		{"0", 0, false},
		{"someone", 0, false},
		{"a few", 0, false},
	}
	for _, tc := range tests {
		got, ok := dialogue.ParseNumber(tc.in)
		if ok != tc.wantOK || (ok && got != tc.want) {
			t.Errorf("ParseNumber(%q) = %d, %v; want %d, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"today please", day(2025, 5, 14), true},
		{"tomorrow", day(2025, 5, 15), true},
		{"the day after tomorrow", day(2025, 5, 16), true},
		{"friday", day(2025, 5, 16), true},
		{"next friday", day(2025, 5, 23), true},
		{"wednesday", day(2025, 5, 21), true},
		{"next Wednesday", day(2025, 5, 21), true},
		{"next tuesday", day(2025, 5, 27), true},
		{"this monday", day(2025, 5, 19), true},
		{"2025-06-01", day(2025, 6, 1), true},
		{"2025-02-30", time.Time{}, false},
		{"May 20th", day(2025, 5, 20), true},
		{"may 1st", day(2026, 5, 1), true},
		{"the 3rd of January", day(2026, 1, 3), true},
		{"february 30", time.Time{}, false},
		{"sometime soon", time.Time{}, false},
	}
	for _, tc := range tests {
		got, ok := dialogue.ParseDate(tc.in, wednesday)
		if ok != tc.wantOK || (ok && !got.Equal(tc.want)) {
			t.Errorf("ParseDate(%q) = %s, %v; want %s, %v", tc.in, got.Format(time.DateOnly), ok, tc.want.Format(time.DateOnly), tc.wantOK)
		}
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in       string
		hour     int
		minute   int
		wantOK   bool
		wantText string
	}{
		{"noon", 12, 0, true, "12:00 PM"},
		{"midnight", 0, 0, true, "12:00 AM"},
		{"7 pm", 19, 0, true, "07:00 PM"},
		{"7:30 p.m.", 19, 30, true, "07:30 PM"},
		{"12:45 PM", 12, 45, true, "12:45 PM"},
		{"12 am", 0, 0, true, "12:00 AM"},
		{"seven thirty PM", 19, 30, true, "07:30 PM"},
		{"half past eight in the evening", 20, 30, true, "08:30 PM"},
		{"quarter past seven", 7, 15, true, "07:15 AM"},
		{"quarter to eight", 7, 45, true, "07:45 AM"},
		{"quarter to one", 12, 45, true, "12:45 PM"},
		{"six", 18, 0, true, "06:00 PM"},
		{"two in the afternoon", 14, 0, true, "02:00 PM"},
		{"11 in the morning", 11, 0, true, "11:00 AM"},
		{"I am free at 6", 18, 0, true, "06:00 PM"},
		{"whenever works", 0, 0, false, ""},
		{"25:00", 0, 0, false, ""},
	}
	for _, tc := range tests {
		h, m, ok := dialogue.ParseTime(tc.in)
		if ok != tc.wantOK || (ok && (h != tc.hour || m != tc.minute)) {
			t.Errorf("ParseTime(%q) = %d:%02d, %v; want %d:%02d, %v", tc.in, h, m, ok, tc.hour, tc.minute, tc.wantOK)
			continue
		}
		if ok {
			if got := dialogue.FormatTime(h, m); got != tc.wantText {
				t.Errorf("FormatTime(ParseTime(%q)) = %q, want %q", tc.in, got, tc.wantText)
			}
		}
	}
}

func TestParseDateRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in         string
		start, end time.Time
		wantErr    error
	}{
		{in: "June 15 to June 30", start: day(2025, 6, 15), end: day(2025, 6, 30)},
		{in: "15th June to 30th June", start: day(2025, 6, 15), end: day(2025, 6, 30)},
		{in: "6/15 - 6/30", start: day(2025, 6, 15), end: day(2025, 6, 30)},
		{in: "december 20 through january 5", start: day(2025, 12, 20), end: day(2026, 1, 5)},
		{in: "March 3 to March 10", start: day(2026, 3, 3), end: day(2026, 3, 10)},
		{in: "this weekend", start: day(2025, 5, 17), end: day(2025, 5, 19)},
		{in: "sometime next week", start: day(2025, 5, 19), end: day(2025, 5, 25)},
		{in: "June 15", wantErr: dialogue.ErrIncompleteRange},
		{in: "whenever is cheapest", wantErr: dialogue.ErrIncompleteRange},
		{in: "June 31 to July 4", wantErr: dialogue.ErrInvalidDate},
		{in: "13/15 to 6/30", wantErr: dialogue.ErrInvalidDate},
	}
	for _, tc := range tests {
		got, err := dialogue.ParseDateRange(tc.in, wednesday)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ParseDateRange(%q) err = %v, want %v", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDateRange(%q) err = %v", tc.in, err)
			continue
		}
		if len(got) != 2 || !got[0].Equal(tc.start) || !got[1].Equal(tc.end) {
			t.Errorf("ParseDateRange(%q) = %v, want [%s %s]", tc.in, got, tc.start.Format(time.DateOnly), tc.end.Format(time.DateOnly))
		}
	}
}

func TestWordMatching(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"yes please", dialogue.IsAffirmative("Yes please"), true},
		{"that's right", dialogue.IsAffirmative("that's right!"), true},
		{"that's not right", dialogue.IsAffirmative("that's not right"), false},
		{"no", dialogue.IsAffirmative("no"), false},
		{"yesterday", dialogue.IsAffirmative("yesterday"), false},
		{"extra word", dialogue.IsAffirmative("place it", "place"), true},
		{"phrase", dialogue.HasWord("That's it, thanks", "that's it"), true},
		{"no inside a dish name", dialogue.HasWord("spaghetti bolognese", "no"), false},
		{"yes then a no phrase", dialogue.IsAffirmative("yes, no problem"), true},
		{"yes with no changes", dialogue.IsAffirmative("yes that's right, no changes"), true},
		{"no then right", dialogue.IsAffirmative("no, that's right"), false},
		{"isn't correct", dialogue.IsAffirmative("yes wait, that isn't correct"), false},
		{"not sure", dialogue.IsAffirmative("not sure"), false},
		{"don't know", dialogue.IsAffirmative("I don't know, yes"), true},
		{"negative", dialogue.IsNegative("nope"), true},
		{"negated yes", dialogue.IsNegative("that's not right"), true},
		{"yes is not negative", dialogue.IsNegative("yes, no problem"), false},
		{"digit", dialogue.HasDigit("call me at 555 0100"), true},
		{"no digit", dialogue.HasDigit("five five five"), false},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}
