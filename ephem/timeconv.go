package ephem

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NAIF DELTET constants used to go from TT to TDB.
const (
	deltaTA  = 32.184
	deltetK  = 1.657e-3
	deltetEB = 1.671e-2
	deltetM0 = 6.239996
	deltetM1 = 1.99096871e-7
)

// UTCLayout is the canonical text form produced by ETToUTC.
const UTCLayout = "2006-01-02T15:04:05"

var j2000Calendar = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// LeapSecond records the TAI-UTC offset in effect from a UTC instant on.
type LeapSecond struct {
	Effective time.Time
	DeltaAT   float64
}

// LeapSecondTable is an ordered TAI-UTC history.
type LeapSecondTable struct {
	entries []leapEntry
}

type leapEntry struct {
	cal   float64 // calendar seconds past J2000, leap seconds not counted
	delta float64
}

// NewLeapSecondTable sorts and validates a leap second history.
func NewLeapSecondTable(leaps []LeapSecond) (*LeapSecondTable, error) {
	if len(leaps) == 0 {
		return nil, fmt.Errorf("leap second table is empty")
	}
	entries := make([]leapEntry, 0, len(leaps))
	for _, l := range leaps {
		entries = append(entries, leapEntry{cal: calendarSeconds(l.Effective), delta: l.DeltaAT})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].cal < entries[j].cal })
	return &LeapSecondTable{entries: entries}, nil
}

// Len returns the number of entries in the table.
func (t *LeapSecondTable) Len() int { return len(t.entries) }

// BuiltinLeapSeconds returns the table distributed as naif0012.tls.
func BuiltinLeapSeconds() *LeapSecondTable {
	day := func(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }
	table, _ := NewLeapSecondTable([]LeapSecond{
		{day(1972, time.January), 10}, {day(1972, time.July), 11},
		{day(1973, time.January), 12}, {day(1974, time.January), 13},
		{day(1975, time.January), 14}, {day(1976, time.January), 15},
		{day(1977, time.January), 16}, {day(1978, time.January), 17},
		{day(1979, time.January), 18}, {day(1980, time.January), 19},
		{day(1981, time.July), 20}, {day(1982, time.July), 21},
		{day(1983, time.July), 22}, {day(1985, time.July), 23},
		{day(1988, time.January), 24}, {day(1990, time.January), 25},
		{day(1991, time.January), 26}, {day(1992, time.July), 27},
		{day(1993, time.July), 28}, {day(1994, time.July), 29},
		{day(1996, time.January), 30}, {day(1997, time.July), 31},
		{day(1999, time.January), 32}, {day(2006, time.January), 33},
		{day(2009, time.January), 34}, {day(2012, time.July), 35},
		{day(2015, time.July), 36}, {day(2017, time.January), 37},
	})
	return table
}

// LoadLeapSeconds reads the DELTET/DELTA_AT assignment of a NAIF text
// leapseconds kernel.
func LoadLeapSeconds(path string) (*LeapSecondTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open leapseconds kernel: %w", err)
	}
	defer f.Close()
	return ParseLeapSeconds(f)
}

// ParseLeapSeconds parses leapseconds kernel text.
func ParseLeapSeconds(r io.Reader) (*LeapSecondTable, error) {
	var (
		inData bool
		inList bool
		body   strings.Builder
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, `\begindata`):
			inData = true
			continue
		case strings.HasPrefix(line, `\begintext`):
			inData = false
			continue
		}
		if !inData {
			continue
		}
		if !inList {
			idx := strings.Index(line, "DELTET/DELTA_AT")
			if idx < 0 {
				continue
			}
			eq := strings.Index(line, "=")
			if eq < 0 {
				return nil, fmt.Errorf("malformed DELTA_AT assignment")
			}
			line = line[eq+1:]
			inList = true
		}
		body.WriteString(line)
		body.WriteByte(' ')
		if strings.Contains(line, ")") {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read leapseconds kernel: %w", err)
	}
	if !inList {
		return nil, fmt.Errorf("DELTET/DELTA_AT not found")
	}

	raw := strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(body.String())
	fields := strings.Fields(raw)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("DELTA_AT has %d values, want pairs", len(fields))
	}
	leaps := make([]LeapSecond, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		delta, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("DELTA_AT value %q: %w", fields[i], err)
		}
		when, err := time.Parse("2006-Jan-2", strings.TrimPrefix(fields[i+1], "@"))
		if err != nil {
			return nil, fmt.Errorf("DELTA_AT epoch %q: %w", fields[i+1], err)
		}
		leaps = append(leaps, LeapSecond{Effective: when, DeltaAT: delta})
	}
	return NewLeapSecondTable(leaps)
}

// deltaAt returns TAI-UTC for a calendar instant. Instants before the first
// entry use the first entry's offset.
func (t *LeapSecondTable) deltaAt(cal float64) float64 {
	d := t.entries[0].delta
	for _, e := range t.entries {
		if cal < e.cal {
			break
		}
		d = e.delta
	}
	return d
}

// leapSecondEndsAt reports whether a positive leap second is inserted right
// before the calendar instant cal (a UTC midnight).
func (t *LeapSecondTable) leapSecondEndsAt(cal float64) bool {
	for i := 1; i < len(t.entries); i++ {
		if t.entries[i].cal == cal {
			return t.entries[i].delta > t.entries[i-1].delta
		}
	}
	return false
}

// fromTAI maps TAI seconds past J2000 back to calendar seconds. leap is true
// when the instant falls inside an inserted leap second, in which case cal is
// within the last calendar second of the day.
func (t *LeapSecondTable) fromTAI(tai float64) (cal float64, leap bool) {
	tai = math.Round(tai*1e6) / 1e6
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if tai >= e.cal+e.delta {
			return tai - e.delta, false
		}
		if i > 0 {
			prev := t.entries[i-1].delta
			if e.delta > prev && tai >= e.cal+prev {
				return e.cal - 1 + math.Min(tai-(e.cal+prev), 1-1e-9), true
			}
		}
	}
	return tai - t.entries[0].delta, false
}

// TimeConverter converts between UTC and ephemeris time using one leap
// second table.
type TimeConverter struct {
	leaps *LeapSecondTable
}

// NewTimeConverter returns a converter backed by table, or by the built-in
// table when table is nil.
func NewTimeConverter(table *LeapSecondTable) *TimeConverter {
	if table == nil {
		table = BuiltinLeapSeconds()
	}
	return &TimeConverter{leaps: table}
}

var defaultConverter = NewTimeConverter(nil)

// UTCToET parses text with the built-in leap second table.
func UTCToET(text string) (float64, error) { return defaultConverter.UTCToET(text) }

// ETToUTC formats et with the built-in leap second table.
func ETToUTC(et float64) string { return defaultConverter.ETToUTC(et) }

var leapSecondPattern = regexp.MustCompile(`^(.*\d{1,2}:\d{2}:)60((?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?)$`)

var utcLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006 Jan 02 15:04:05",
	"2006 Jan 2 15:04:05",
	"2006-Jan-02 15:04:05",
	"2006 Jan 02",
	"2006-Jan-02",
}

// UTCToET converts a UTC calendar string to TDB seconds past J2000.
func (c *TimeConverter) UTCToET(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidTimeFormat)
	}

	leap := false
	if m := leapSecondPattern.FindStringSubmatch(s); m != nil {
		s = m[1] + "59" + m[2]
		leap = true
	}

	var (
		parsed time.Time
		err    error
	)
	for _, layout := range utcLayouts {
		parsed, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}

	cal := calendarSeconds(parsed.UTC())
	delta := c.leaps.deltaAt(cal)
	if leap {
		whole := math.Floor(cal)
		if !c.leaps.leapSecondEndsAt(whole + 1) {
			return 0, fmt.Errorf("%w: %q is not a leap second", ErrInvalidTimeFormat, text)
		}
		cal++
	}
	return ttToTDB(cal + delta + deltaTA), nil
}

// ETToUTC formats et as YYYY-MM-DDTHH:MM:SS.sss UTC. Non-finite input yields
// an empty string.
func (c *TimeConverter) ETToUTC(et float64) string {
	if math.IsNaN(et) || math.IsInf(et, 0) {
		return ""
	}
	cal, leap := c.leaps.fromTAI(tdbToTT(et) - deltaTA)

	ms := math.Round(cal * 1000)
	whole := math.Floor(ms / 1000)
	frac := int64(ms - whole*1000)
	if leap && whole > math.Floor(cal) {
		// rounding pushed a leap instant past the inserted second
		whole = math.Floor(cal)
		frac = 999
	} else if !leap && whole > math.Floor(cal) && c.leaps.leapSecondEndsAt(whole) {
		// rounding carried the instant into the inserted second
		whole = math.Floor(cal)
		frac = 0
		leap = true
	}
	t := time.Unix(j2000Calendar.Unix()+int64(whole), 0).UTC()
	text := t.Format(UTCLayout)
	if leap {
		text = text[:len(text)-2] + "60"
	}
	return fmt.Sprintf("%s.%03d", text, frac)
}

// TimeToET converts a wall-clock instant. Zero or out-of-range instants fail
// with ErrInvalidTimeFormat.
func (c *TimeConverter) TimeToET(t time.Time) (float64, error) {
	if t.IsZero() {
		return 0, fmt.Errorf("%w: zero time", ErrInvalidTimeFormat)
	}
	if y := t.UTC().Year(); y < 1000 || y > 3000 {
		return 0, fmt.Errorf("%w: year %d outside supported range", ErrInvalidTimeFormat, y)
	}
	cal := calendarSeconds(t.UTC())
	return ttToTDB(cal + c.leaps.deltaAt(cal) + deltaTA), nil
}

// ETToTime converts ephemeris time to a UTC instant. Leap seconds collapse
// onto the last second of the day.
func (c *TimeConverter) ETToTime(et float64) time.Time {
	cal, _ := c.leaps.fromTAI(tdbToTT(et) - deltaTA)
	sec := math.Floor(cal)
	nsec := int64(math.Round((cal - sec) * 1e9))
	return time.Unix(j2000Calendar.Unix()+int64(sec), nsec).UTC()
}

// utcJulianDate returns the UTC Julian date for et.
func (c *TimeConverter) utcJulianDate(et float64) float64 {
	cal, _ := c.leaps.fromTAI(tdbToTT(et) - deltaTA)
	return J2000JD + cal/SecondsPerDay
}

func calendarSeconds(t time.Time) float64 {
	return float64(t.Unix()-j2000Calendar.Unix()) + float64(t.Nanosecond())/1e9
}

func tdbMinusTT(tt float64) float64 {
	m := deltetM0 + deltetM1*tt
	e := m + deltetEB*math.Sin(m)
	return deltetK * math.Sin(e)
}

func ttToTDB(tt float64) float64 {
	return tt + tdbMinusTT(tt)
}

func tdbToTT(tdb float64) float64 {
	tt := tdb
	for i := 0; i < 3; i++ {
		tt = tdb - tdbMinusTT(tt)
	}
	return tt
}

// JulianEphemerisDate converts et to a TDB Julian date.
func JulianEphemerisDate(et float64) float64 {
	return J2000JD + et/SecondsPerDay
}
