package ephem

// poleModel holds IAU WGCCRE rotational elements. Angles in degrees, rates
// per Julian century (pole) and per day (prime meridian).
type poleModel struct {
	ra0, ra1   float64
	dec0, dec1 float64
	w0, wDot   float64
}

// bodyFixed lists the bodies with an IAU_<NAME> frame. Earth's prime
// meridian comes from GMST rather than w0/wDot.
var bodyFixed = map[string]poleModel{
	"SUN":     {ra0: 286.13, dec0: 63.87, w0: 84.176, wDot: 14.1844000},
	"MERCURY": {ra0: 281.0097, ra1: -0.0328, dec0: 61.4143, dec1: -0.0049, w0: 329.5469, wDot: 6.1385025},
	"VENUS":   {ra0: 272.76, dec0: 67.16, w0: 160.20, wDot: -1.4813688},
	"EARTH":   {ra0: 0, ra1: -0.641, dec0: 90, dec1: -0.557},
	"MARS":    {ra0: 317.68143, ra1: -0.1061, dec0: 52.88650, dec1: -0.0609, w0: 176.630, wDot: 350.89198226},
	"JUPITER": {ra0: 268.056595, ra1: -0.006499, dec0: 64.495303, dec1: 0.002413, w0: 284.95, wDot: 870.5360000},
	"SATURN":  {ra0: 40.589, ra1: -0.036, dec0: 83.537, dec1: -0.004, w0: 38.90, wDot: 810.7939024},
	"URANUS":  {ra0: 257.311, dec0: -15.175, w0: 203.81, wDot: -501.1600928},
	"NEPTUNE": {ra0: 299.36, dec0: 43.46, w0: 253.18, wDot: 536.3128492},
}

// earthRotationRate is the sidereal rotation rate of the Earth in rad/s.
const earthRotationRate = 7.2921158553e-5
