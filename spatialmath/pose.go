package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a translation in meters and a unit quaternion orientation.
type Pose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewPose returns a pose from a point and an orientation. The orientation is expected to be a unit quaternion.
func NewPose(point r3.Vector, orientation quat.Number) Pose {
	return Pose{point: point, orientation: orientation}
}

// NewPoseFromPoint returns a pose with the given translation and no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return Pose{point: point, orientation: quat.Number{Real: 1}}
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return NewPoseFromPoint(r3.Vector{})
}

// Point returns the translation of the pose.
func (p Pose) Point() r3.Vector {
	return p.point
}

// Orientation returns the rotation of the pose.
func (p Pose) Orientation() quat.Number {
	return p.orientation
}

func (p Pose) String() string {
	return fmt.Sprintf("{X:%.6f Y:%.6f Z:%.6f QW:%.6f QX:%.6f QY:%.6f QZ:%.6f}",
		p.point.X, p.point.Y, p.point.Z,
		p.orientation.Real, p.orientation.Imag, p.orientation.Jmag, p.orientation.Kmag)
}

// TransformPoint maps a point expressed in the pose's frame into the parent frame.
func (p Pose) TransformPoint(v r3.Vector) r3.Vector {
	return p.point.Add(RotateVector(p.orientation, v))
}

// Compose returns the transform a∘b, i.e. b expressed in the parent frame of a.
func Compose(a, b Pose) Pose {
	return Pose{
		point:       a.TransformPoint(b.point),
		orientation: quat.Mul(a.orientation, b.orientation),
	}
}

// PoseInverse returns the inverse transform of p.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.orientation)
	return Pose{
		point:       RotateVector(inv, p.point).Mul(-1),
		orientation: inv,
	}
}

// PoseBetween returns the pose of b expressed in the frame of a, i.e. a⁻¹∘b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseAlmostEqual reports whether two poses are equal within a small tolerance.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps reports whether two poses are equal within epsilon on every component.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	d := a.point.Sub(b.point)
	return math.Abs(d.X) <= epsilon && math.Abs(d.Y) <= epsilon && math.Abs(d.Z) <= epsilon &&
		QuaternionAlmostEqual(a.orientation, b.orientation, epsilon)
}
