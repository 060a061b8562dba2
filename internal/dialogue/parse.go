package dialogue

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var (
	reDigits    = regexp.MustCompile(`\b(\d+)\b`)
	reISODate   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	reDayNumber = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\b`)
	reWeekday   = regexp.MustCompile(`\b(next\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	reClock     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	reHour      = regexp.MustCompile(`\b(\d{1,2})`)
	// Meridiem must follow a number so that "I am" is not read as AM.
	reMeridiem = regexp.MustCompile(`(?:\d|\b(?:one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|fifteen|thirty|forty-five|o'clock))\s*([ap])m\b`)

	reMonthDay = regexp.MustCompile(`\b([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	reDayMonth = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)\b`)
	reSlash    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
)

// Tokens splits s into lower-cased words. Letters, digits, apostrophes and
// hyphens belong to words; everything else separates them, so "twenty-one"
// and "that's" are single tokens.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

// HasWord reports whether s contains any of words (or multi-word phrases) as
// whole tokens.
func HasWord(s string, words ...string) bool {
	padded := " " + strings.Join(Tokens(s), " ") + " "
	for _, w := range words {
		if strings.Contains(padded, " "+strings.Join(Tokens(w), " ")+" ") {
			return true
		}
	}
	return false
}

var (
	affirmatives = []string{"yes", "yeah", "yep", "yup", "correct", "right", "sure", "confirm", "absolutely"}
	negatives    = []string{"no", "nope", "nah", "wrong", "incorrect"}
	// negators flip the word that follows them: "not right", "isn't correct".
	negators = []string{"not", "isn't", "isnt", "don't", "dont", "never"}
)

// IsAffirmative reports whether s agrees. The first answer word decides, so
// "yes, no problem" is a yes and "no, that's right" is not. A negated
// affirmative anywhere ("that's not right") makes it a no.
func IsAffirmative(s string, extra ...string) bool {
	return answer(s, extra) == answerYes
}

// IsNegative reports whether s declines: a negative word before any
// affirmative one, or a negated affirmative.
func IsNegative(s string) bool {
	return answer(s, nil) == answerNo
}

type answerKind uint8

const (
	answerNone answerKind = iota
	answerYes
	answerNo
)

func answer(s string, extra []string) answerKind {
	yes := append(slices.Clone(extra), affirmatives...)
	tokens := Tokens(s)
	first := answerNone
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case slices.Contains(negators, tok):
			if i+1 < len(tokens) && slices.Contains(yes, tokens[i+1]) {
				return answerNo
			}
			i++
		case slices.Contains(yes, tok):
			if first == answerNone {
				first = answerYes
			}
		case slices.Contains(negatives, tok):
			if first == answerNone {
				first = answerNo
			}
		}
	}
	return first
}

// HasDigit reports whether s contains at least one decimal digit.
func HasDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

// ParseNumber extracts a positive cardinal from s: the first standalone digit
// run, else the first number word from one to twenty.
func ParseNumber(s string) (int, bool) {
	if m := reDigits.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil && n > 0
	}
	for _, tok := range Tokens(s) {
		if n, ok := numberWords[tok]; ok {
			return n, true
		}
	}
	return 0, false
}

// midnight returns the start of t's day in t's location.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// validDate builds a date and reports whether it exists (no Feb 30).
func validDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return t, t.Month() == month && t.Day() == day
}

// ParseDate resolves a spoken date relative to now. The result is midnight in
// now's location.
//
// A bare weekday is the next such day strictly after today. "next" is one
// week after the coming occurrence, counting today, so "next wednesday" said
// on a Wednesday is seven days out. Month-day dates without a year roll over to next year once
// they have passed.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(s)
	today := midnight(now)

	switch {
	case HasWord(lower, "today", "tonight"):
		return today, true
	case HasWord(lower, "day after tomorrow"):
		return today.AddDate(0, 0, 2), true
	case HasWord(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	}

	if m := reWeekday.FindStringSubmatch(lower); m != nil {
		days := (int(weekdays[m[2]]) - int(today.Weekday()) + 7) % 7
		switch {
		case m[1] != "":
			days += 7
		case days == 0:
			days = 7
		}
		return today.AddDate(0, 0, days), true
	}

	if m := reISODate.FindStringSubmatch(lower); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 {
			return time.Time{}, false
		}
		return validDate(y, time.Month(mo), d, now.Location())
	}

	for _, tok := range Tokens(lower) {
		month, ok := months[tok]
		if !ok {
			continue
		}
		m := reDayNumber.FindStringSubmatch(lower)
		if m == nil {
			return time.Time{}, false
		}
		d, _ := strconv.Atoi(m[1])
		t, ok := validDate(today.Year(), month, d, now.Location())
		if !ok {
			return time.Time{}, false
		}
		if t.Before(today) {
			t, ok = validDate(today.Year()+1, month, d, now.Location())
		}
		return t, ok
	}
	return time.Time{}, false
}

// ParseTime resolves a spoken clock time to a 24-hour hour and minute.
//
// Without an explicit AM/PM the time is read as PM for "evening", "night",
// hours below 7, and "afternoon" hours below 12.
func ParseTime(s string) (hour, minute int, ok bool) {
	lower := strings.ToLower(s)
	switch {
	case HasWord(lower, "noon", "midday"):
		return 12, 0, true
	case HasWord(lower, "midnight"):
		return 0, 0, true
	}

	hourFound := false
	if m := reClock.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		hourFound = true
	} else if m := reHour.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		hourFound = true
	} else {
		for _, tok := range Tokens(lower) {
			if n, isNum := numberWords[tok]; isNum && n <= 12 {
				hour, hourFound = n, true
				break
			}
		}
	}
	if !hourFound {
		return 0, 0, false
	}

	if reClock.FindStringIndex(lower) == nil {
		switch {
		case HasWord(lower, "half", "thirty"):
			minute = 30
		case HasWord(lower, "quarter"):
			if HasWord(lower, "quarter to", "quarter till", "quarter of") {
				minute = 45
				hour = (hour + 11) % 12
			} else {
				minute = 15
			}
		}
	}

	pm := false
	if m := reMeridiem.FindStringSubmatch(strings.ReplaceAll(lower, ".", "")); m != nil {
		pm = m[1] == "p"
		if !pm && hour == 12 {
			hour = 0
		}
	} else if HasWord(lower, "evening", "night", "tonight") || hour < 7 {
		pm = true
	} else if HasWord(lower, "afternoon") && hour < 12 {
		pm = true
	}
	if pm && hour < 12 {
		hour += 12
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// FormatTime renders a 24-hour time as "07:30 PM".
func FormatTime(hour, minute int) string {
	return time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Format("03:04 PM")
}

// Date range parse failures.
var (
	// ErrIncompleteRange means fewer than two dates were found.
	ErrIncompleteRange = errors.New("dialogue: need both a start and an end date")
	// ErrInvalidDate means a date was recognized but does not exist.
	ErrInvalidDate = errors.New("dialogue: invalid date")
)

// ParseDateRange extracts a departure and return date from phrases such as
// "June 15 to June 30", "15th June to 30th June", "6/15 - 6/30", "this
// weekend" or "next week". Dates without a year fall in the current year,
// move to next year when already past, and an end before the start wraps
// into the following year.
func ParseDateRange(s string, now time.Time) ([]time.Time, error) {
	lower := strings.ToLower(s)
	today := midnight(now)
	loc := now.Location()

	type monthDay struct {
		month time.Month
		day   int
	}
	var found []monthDay
	collect := func(matches [][]string, monthIdx, dayIdx int) {
		if len(found) >= 2 {
			return
		}
		var cur []monthDay
		for _, m := range matches {
			month, ok := months[m[monthIdx]]
			if !ok {
				continue
			}
			d, _ := strconv.Atoi(m[dayIdx])
			cur = append(cur, monthDay{month, d})
		}
		if len(cur) > len(found) {
			found = cur
		}
	}
	collect(reMonthDay.FindAllStringSubmatch(lower, -1), 1, 2)
	collect(reDayMonth.FindAllStringSubmatch(lower, -1), 2, 1)
	if len(found) < 2 {
		var cur []monthDay
		for _, m := range reSlash.FindAllStringSubmatch(lower, -1) {
			mo, _ := strconv.Atoi(m[1])
			d, _ := strconv.Atoi(m[2])
			if mo < 1 || mo > 12 {
				return nil, fmt.Errorf("%w: %s", ErrInvalidDate, m[0])
			}
			cur = append(cur, monthDay{time.Month(mo), d})
		}
		if len(cur) > len(found) {
			found = cur
		}
	}

	if len(found) >= 2 {
		start, ok := validDate(today.Year(), found[0].month, found[0].day, loc)
		if !ok {
			return nil, fmt.Errorf("%w: %s %d", ErrInvalidDate, found[0].month, found[0].day)
		}
		if start.Before(today) {
			start, _ = validDate(today.Year()+1, found[0].month, found[0].day, loc)
		}
		end, ok := validDate(start.Year(), found[1].month, found[1].day, loc)
		if !ok {
			return nil, fmt.Errorf("%w: %s %d", ErrInvalidDate, found[1].month, found[1].day)
		}
		if end.Before(start) {
			end, _ = validDate(start.Year()+1, found[1].month, found[1].day, loc)
		}
		return []time.Time{start, end}, nil
	}

	switch {
	case HasWord(lower, "weekend"):
		days := (int(time.Saturday) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		start := today.AddDate(0, 0, days)
		return []time.Time{start, start.AddDate(0, 0, 2)}, nil
	case HasWord(lower, "next week"):
		days := (int(time.Monday) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		start := today.AddDate(0, 0, days)
		return []time.Time{start, start.AddDate(0, 0, 6)}, nil
	}
	return nil, ErrIncompleteRange
}
