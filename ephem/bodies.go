package ephem

import (
	"fmt"
	"strconv"
	"strings"
)

// BodyID is a NAIF integer body code.
type BodyID int

const (
	SolarSystemBarycenter BodyID = 0
	MercuryBarycenter     BodyID = 1
	VenusBarycenter       BodyID = 2
	EarthMoonBarycenter   BodyID = 3
	MarsBarycenter        BodyID = 4
	JupiterBarycenter     BodyID = 5
	SaturnBarycenter      BodyID = 6
	UranusBarycenter      BodyID = 7
	NeptuneBarycenter     BodyID = 8
	PlutoBarycenter       BodyID = 9
	Sun                   BodyID = 10
	Mercury               BodyID = 199
	Venus                 BodyID = 299
	Earth                 BodyID = 399
	Moon                  BodyID = 301
	Mars                  BodyID = 499
	Jupiter               BodyID = 599
	Saturn                BodyID = 699
	Uranus                BodyID = 799
	Neptune               BodyID = 899
	Pluto                 BodyID = 999
)

var bodyNames = map[BodyID]string{
	SolarSystemBarycenter: "SOLAR SYSTEM BARYCENTER",
	MercuryBarycenter:     "MERCURY BARYCENTER",
	VenusBarycenter:       "VENUS BARYCENTER",
	EarthMoonBarycenter:   "EARTH BARYCENTER",
	MarsBarycenter:        "MARS BARYCENTER",
	JupiterBarycenter:     "JUPITER BARYCENTER",
	SaturnBarycenter:      "SATURN BARYCENTER",
	UranusBarycenter:      "URANUS BARYCENTER",
	NeptuneBarycenter:     "NEPTUNE BARYCENTER",
	PlutoBarycenter:       "PLUTO BARYCENTER",
	Sun:                   "SUN",
	Mercury:               "MERCURY",
	Venus:                 "VENUS",
	Earth:                 "EARTH",
	Moon:                  "MOON",
	Mars:                  "MARS",
	Jupiter:               "JUPITER",
	Saturn:                "SATURN",
	Uranus:                "URANUS",
	Neptune:               "NEPTUNE",
	Pluto:                 "PLUTO",
}

var bodyAliases = map[string]BodyID{
	"SSB":                   SolarSystemBarycenter,
	"EMB":                   EarthMoonBarycenter,
	"EARTH-MOON BARYCENTER": EarthMoonBarycenter,
	"EARTH MOON BARYCENTER": EarthMoonBarycenter,
}

var bodiesByName = func() map[string]BodyID {
	m := make(map[string]BodyID, len(bodyNames)+len(bodyAliases))
	for id, name := range bodyNames {
		m[name] = id
	}
	for alias, id := range bodyAliases {
		m[alias] = id
	}
	return m
}()

// ParseBody resolves a body name or a decimal NAIF code. Names are matched
// case-insensitively with surrounding whitespace ignored.
func ParseBody(name string) (BodyID, error) {
	key := strings.ToUpper(strings.Join(strings.Fields(name), " "))
	if key == "" {
		return 0, fmt.Errorf("%w: empty body name", ErrEphemerisUnavailable)
	}
	if id, ok := bodiesByName[key]; ok {
		return id, nil
	}
	if n, err := strconv.Atoi(key); err == nil {
		return BodyID(n), nil
	}
	return 0, fmt.Errorf("%w: unknown body %q", ErrEphemerisUnavailable, name)
}

// String returns the canonical body name, or the decimal code for ids
// without one.
func (b BodyID) String() string {
	if name, ok := bodyNames[b]; ok {
		return name
	}
	return strconv.Itoa(int(b))
}

// FallbackTable redirects body ids that a dataset may lack to a substitute
// id, usually the body's system barycenter.
type FallbackTable struct {
	Version string
	entries map[BodyID]BodyID
}

// NewFallbackTable builds a table from primary -> substitute pairs.
func NewFallbackTable(version string, entries map[BodyID]BodyID) FallbackTable {
	cp := make(map[BodyID]BodyID, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return FallbackTable{Version: version, entries: cp}
}

// DefaultFallbacks maps each planet to its system barycenter.
func DefaultFallbacks() FallbackTable {
	return NewFallbackTable("2", map[BodyID]BodyID{
		Mercury: MercuryBarycenter,
		Venus:   VenusBarycenter,
		Mars:    MarsBarycenter,
		Jupiter: JupiterBarycenter,
		Saturn:  SaturnBarycenter,
		Uranus:  UranusBarycenter,
		Neptune: NeptuneBarycenter,
		Pluto:   PlutoBarycenter,
	})
}

// Lookup returns the substitute for id, if the table has one.
func (f FallbackTable) Lookup(id BodyID) (BodyID, bool) {
	sub, ok := f.entries[id]
	return sub, ok
}

// Len returns the number of redirects.
func (f FallbackTable) Len() int { return len(f.entries) }
