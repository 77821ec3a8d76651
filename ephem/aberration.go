package ephem

import (
	"math"

	"github.com/signalsfoundry/astrogator/model"
)

// stellarAberration rotates the apparent line of sight pos toward the
// observer's velocity by asin(|u x v/c|). The magnitude of pos is kept.
func stellarAberration(pos, observerVel model.Vec3) model.Vec3 {
	n := pos.Norm()
	if n == 0 {
		return pos
	}
	h := pos.Unit().Cross(observerVel.Scale(1 / SpeedOfLight))
	s := h.Norm()
	if s == 0 {
		return pos
	}
	return rotateAbout(pos, h.Scale(1/s), math.Asin(math.Min(s, 1)))
}

// rotateAbout applies Rodrigues' formula: v rotated by angle about unit axis k.
func rotateAbout(v, k model.Vec3, angle float64) model.Vec3 {
	sin, cos := math.Sincos(angle)
	return v.Scale(cos).
		Add(k.Cross(v).Scale(sin)).
		Add(k.Scale(k.Dot(v) * (1 - cos)))
}
