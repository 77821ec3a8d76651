// Package ephem answers "where is body X relative to body Y, in frame F, at
// time T" on top of a loaded ephemeris dataset, and converts between UTC
// calendar strings and ephemeris time (TDB seconds past J2000).
//
// Every computation inside the simulator uses ephemeris time; UTC text is only
// a boundary format. Frame J2000 (mean equator and equinox of J2000) is the
// canonical frame for spacecraft states.
package ephem

import "errors"

var (
	// ErrInvalidTimeFormat indicates a UTC string could not be parsed by the
	// calendar and leap-second model.
	ErrInvalidTimeFormat = errors.New("invalid time format")
	// ErrEphemerisUnavailable indicates the loaded data does not cover the
	// requested body, frame or time. Callers are expected to degrade rather
	// than abort.
	ErrEphemerisUnavailable = errors.New("ephemeris unavailable")
)

const (
	// J2000JD is the Julian date of the J2000 epoch.
	J2000JD = 2451545.0
	// SecondsPerDay is the length of a day in SI seconds.
	SecondsPerDay = 86400.0
	// AUKm is the IAU 2012 astronomical unit in kilometres.
	AUKm = 149597870.7
	// SpeedOfLight is c in km/s.
	SpeedOfLight = 299792.458
)
