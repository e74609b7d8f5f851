// Package spatialmath defines the quaternion and pose operations used to move rigid-body poses
// between the motion-capture world frame and the robot base frame.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// UnitQuaternionTolerance is how far the norm of a calibration quaternion may deviate from 1.
const UnitQuaternionTolerance = 1e-6

// NewQuaternion returns a quaternion from components in the (x, y, z, w) order used by ROS
// messages and motion-capture calibrations.
func NewQuaternion(x, y, z, w float64) quat.Number {
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// QuatNorm returns the euclidean norm of all four components of the quaternion.
func QuatNorm(q quat.Number) float64 {
	return quat.Abs(q)
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// IsUnitQuaternion reports whether the norm of q is within tol of 1.
func IsUnitQuaternion(q quat.Number, tol float64) bool {
	return math.Abs(QuatNorm(q)-1) <= tol
}

// Normalize scales q to unit length. A zero quaternion cannot represent a rotation.
func Normalize(q quat.Number) (quat.Number, error) {
	n := QuatNorm(q)
	if n < 1e-12 || math.IsNaN(n) || math.IsInf(n, 0) {
		return quat.Number{}, errors.Errorf("cannot normalize quaternion with norm %v", n)
	}
	return quat.Scale(1/n, q), nil
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuaternionAlmostEqual is an equality test for two quaternions representing the same rotation,
// so q and -q compare equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	same := func(a, b quat.Number) bool {
		return math.Abs(a.Real-b.Real) <= tol &&
			math.Abs(a.Imag-b.Imag) <= tol &&
			math.Abs(a.Jmag-b.Jmag) <= tol &&
			math.Abs(a.Kmag-b.Kmag) <= tol
	}
	return same(a, b) || same(a, Flip(b))
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// EulerAngles are extrinsic x-y-z rotations in radians.
type EulerAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// QuatToEulerXYZ converts a rotation unit quaternion to extrinsic x-y-z euler angles in radians.
// See https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles
// Pitch is clamped at the gimbal-lock singularity instead of returning NaN.
func QuatToEulerXYZ(q quat.Number) EulerAngles {
	w := q.Real
	x := q.Imag
	y := q.Jmag
	z := q.Kmag

	sinPitch := 2 * (w*y - x*z)
	if sinPitch > 1 {
		sinPitch = 1
	} else if sinPitch < -1 {
		sinPitch = -1
	}

	return EulerAngles{
		Roll:  math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		Pitch: math.Asin(sinPitch),
		Yaw:   math.Atan2(2*(w*z+y*x), 1-2*(y*y+z*z)),
	}
}

// RotationMatrix is a 3x3 rotation matrix stored row-major.
type RotationMatrix struct {
	mat [9]float64
}

// QuatToRotationMatrix converts a unit quaternion to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{[9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}}
}

// At returns the entry at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[row*3+col]
}

// Row returns the given row as a vector.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[row*3], Y: rm.mat[row*3+1], Z: rm.mat[row*3+2]}
}

// Col returns the given column as a vector.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[3+col], Z: rm.mat[6+col]}
}

// Mul multiplies the matrix with a column vector.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Row(0).Dot(v), Y: rm.Row(1).Dot(v), Z: rm.Row(2).Dot(v)}
}
