package scene

import "math"

// Vec3 is a three-component vector.
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Lerp returns the linear blend from v to o by t.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{v[0] + (o[0]-v[0])*t, v[1] + (o[1]-v[1])*t, v[2] + (o[2]-v[2])*t}
}

// Matrix is a row-major 4x4 affine transform. The zero value is not the
// identity; use [Identity].
type Matrix [16]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// IsZero reports whether m is the zero value (never assigned).
func (m Matrix) IsZero() bool { return m == Matrix{} }

// Mul returns m × n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[r*4+k] * n[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return out
}

// Translation returns the translation part of m.
func (m Matrix) Translation() Vec3 { return Vec3{m[3], m[7], m[11]} }

// WithTranslation returns m with its translation replaced by t.
func (m Matrix) WithTranslation(t Vec3) Matrix {
	m[3], m[7], m[11] = t[0], t[1], t[2]
	return m
}

// ScaleFactors returns the length of each basis column of m.
func (m Matrix) ScaleFactors() Vec3 {
	var s Vec3
	for c := 0; c < 3; c++ {
		s[c] = math.Sqrt(m[c]*m[c] + m[4+c]*m[4+c] + m[8+c]*m[8+c])
	}
	return s
}

// WithScale returns m with each basis column rescaled to the lengths in s.
// Degenerate (zero-length) columns are left untouched.
func (m Matrix) WithScale(s Vec3) Matrix {
	cur := m.ScaleFactors()
	for c := 0; c < 3; c++ {
		if cur[c] == 0 {
			continue
		}
		f := s[c] / cur[c]
		m[c] *= f
		m[4+c] *= f
		m[8+c] *= f
	}
	return m
}

// FromLocRotScale composes translation × rotation(XYZ euler, radians) × scale.
func FromLocRotScale(loc, rot, scale Vec3) Matrix {
	sx, cx := math.Sincos(rot[0])
	sy, cy := math.Sincos(rot[1])
	sz, cz := math.Sincos(rot[2])

	// R = Rz * Ry * Rx
	r := [9]float64{
		cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx,
		sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx,
		-sy, cy * sx, cy * cx,
	}
	return Matrix{
		r[0] * scale[0], r[1] * scale[1], r[2] * scale[2], loc[0],
		r[3] * scale[0], r[4] * scale[1], r[5] * scale[2], loc[1],
		r[6] * scale[0], r[7] * scale[1], r[8] * scale[2], loc[2],
		0, 0, 0, 1,
	}
}
