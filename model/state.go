package model

// StateVector is a position/velocity pair expressed in a reference frame
// that is fixed by the caller's contract rather than stored on the value.
// Position is in kilometres, velocity in kilometres per second.
type StateVector struct {
	Position Vec3 `json:"position"`
	Velocity Vec3 `json:"velocity"`
}

// NewStateVector builds a state from its six components.
func NewStateVector(x, y, z, vx, vy, vz float64) StateVector {
	return StateVector{
		Position: Vec3{X: x, Y: y, Z: z},
		Velocity: Vec3{X: vx, Y: vy, Z: vz},
	}
}

// StateFromArray builds a state from an (x, y, z, vx, vy, vz) array.
func StateFromArray(a [6]float64) StateVector {
	return NewStateVector(a[0], a[1], a[2], a[3], a[4], a[5])
}

// Array returns the state as (x, y, z, vx, vy, vz).
func (s StateVector) Array() [6]float64 {
	return [6]float64{
		s.Position.X, s.Position.Y, s.Position.Z,
		s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
	}
}

// Add returns the component-wise sum of two states.
func (s StateVector) Add(other StateVector) StateVector {
	return StateVector{
		Position: s.Position.Add(other.Position),
		Velocity: s.Velocity.Add(other.Velocity),
	}
}

// Sub returns the state of s relative to other.
func (s StateVector) Sub(other StateVector) StateVector {
	return StateVector{
		Position: s.Position.Sub(other.Position),
		Velocity: s.Velocity.Sub(other.Velocity),
	}
}

// Scale multiplies both position and velocity by k.
func (s StateVector) Scale(k float64) StateVector {
	return StateVector{
		Position: s.Position.Scale(k),
		Velocity: s.Velocity.Scale(k),
	}
}

// IsZero reports whether every component is exactly zero.
func (s StateVector) IsZero() bool {
	return s == StateVector{}
}
