package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestComposeInverse(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, q45x)
	test.That(t, PoseAlmostEqual(Compose(p, PoseInverse(p)), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(PoseInverse(p), p), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(NewZeroPose(), p), p), test.ShouldBeTrue)
}

func TestPoseBetween(t *testing.T) {
	qz := quat.Number{Real: math.Cos(math.Pi / 4), Kmag: math.Sin(math.Pi / 4)}
	base := NewPose(r3.Vector{X: 1}, qz)
	body := NewPose(r3.Vector{X: 1, Y: 1}, qz)

	rel := PoseBetween(base, body)
	// one meter along world y is one meter along the base x-axis after a 90 degree yaw
	test.That(t, rel.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, rel.Point().Y, test.ShouldAlmostEqual, 0)
	test.That(t, rel.Point().Z, test.ShouldAlmostEqual, 0)
	test.That(t, QuaternionAlmostEqual(rel.Orientation(), quat.Number{Real: 1}, 1e-9), test.ShouldBeTrue)

	test.That(t, PoseAlmostEqual(Compose(base, rel), body), test.ShouldBeTrue)
}

func TestTransformPoint(t *testing.T) {
	p := NewPoseFromPoint(r3.Vector{Z: 0.5})
	test.That(t, p.TransformPoint(r3.Vector{X: 1}), test.ShouldResemble, r3.Vector{X: 1, Z: 0.5})
	test.That(t, p.String(), test.ShouldContainSubstring, "Z:0.500000")
	test.That(t, PoseAlmostEqualEps(p, NewZeroPose(), 0.6), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqualEps(p, NewZeroPose(), 0.4), test.ShouldBeFalse)
}
