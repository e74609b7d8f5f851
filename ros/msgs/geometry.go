package msgs

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/mstoelzle/ros2-hsa/ros/cdr"
	"github.com/mstoelzle/ros2-hsa/spatialmath"
)

// Pose2D is geometry_msgs/Pose2D, a position and heading in the plane.
type Pose2D struct {
	X     float64 `rosmsg:"x:float64"`
	Y     float64 `rosmsg:"y:float64"`
	Theta float64 `rosmsg:"theta:float64"`
}

// TypeName implements cdr.Message.
func (m *Pose2D) TypeName() string { return "geometry_msgs/msg/Pose2D" }

// MarshalCDR implements cdr.Message.
func (m *Pose2D) MarshalCDR(e *cdr.Encoder) {
	e.Float64(m.X)
	e.Float64(m.Y)
	e.Float64(m.Theta)
}

// UnmarshalCDR implements cdr.Message.
func (m *Pose2D) UnmarshalCDR(d *cdr.Decoder) error {
	m.X = d.Float64()
	m.Y = d.Float64()
	m.Theta = d.Float64()
	return d.Err()
}

// Point is geometry_msgs/Point.
type Point struct {
	X float64 `rosmsg:"x:float64"`
	Y float64 `rosmsg:"y:float64"`
	Z float64 `rosmsg:"z:float64"`
}

// PointFromVector converts a vector into a point.
func PointFromVector(v r3.Vector) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// Vector converts the point into a vector.
func (m Point) Vector() r3.Vector {
	return r3.Vector{X: m.X, Y: m.Y, Z: m.Z}
}

// TypeName implements cdr.Message.
func (m *Point) TypeName() string { return "geometry_msgs/msg/Point" }

// MarshalCDR implements cdr.Message.
func (m *Point) MarshalCDR(e *cdr.Encoder) {
	e.Float64(m.X)
	e.Float64(m.Y)
	e.Float64(m.Z)
}

// UnmarshalCDR implements cdr.Message.
func (m *Point) UnmarshalCDR(d *cdr.Decoder) error {
	m.X = d.Float64()
	m.Y = d.Float64()
	m.Z = d.Float64()
	return d.Err()
}

// Quaternion is geometry_msgs/Quaternion. Note that the zero value is not a rotation; use
// IdentityQuaternion.
type Quaternion struct {
	X float64 `rosmsg:"x:float64"`
	Y float64 `rosmsg:"y:float64"`
	Z float64 `rosmsg:"z:float64"`
	W float64 `rosmsg:"w:float64"`
}

// IdentityQuaternion returns the quaternion of no rotation, the declared default of the message.
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// QuaternionFromQuat converts a gonum quaternion.
func QuaternionFromQuat(q quat.Number) Quaternion {
	return Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}

// Quat converts the message into a gonum quaternion.
func (m Quaternion) Quat() quat.Number {
	return spatialmath.NewQuaternion(m.X, m.Y, m.Z, m.W)
}

// TypeName implements cdr.Message.
func (m *Quaternion) TypeName() string { return "geometry_msgs/msg/Quaternion" }

// MarshalCDR implements cdr.Message.
func (m *Quaternion) MarshalCDR(e *cdr.Encoder) {
	e.Float64(m.X)
	e.Float64(m.Y)
	e.Float64(m.Z)
	e.Float64(m.W)
}

// UnmarshalCDR implements cdr.Message.
func (m *Quaternion) UnmarshalCDR(d *cdr.Decoder) error {
	m.X = d.Float64()
	m.Y = d.Float64()
	m.Z = d.Float64()
	m.W = d.Float64()
	return d.Err()
}

// Pose is geometry_msgs/Pose.
type Pose struct {
	Position    Point      `rosmsg:"position:geometry_msgs/Point"`
	Orientation Quaternion `rosmsg:"orientation:geometry_msgs/Quaternion"`
}

// PoseFromSpatial converts a spatialmath pose.
func PoseFromSpatial(p spatialmath.Pose) Pose {
	return Pose{
		Position:    PointFromVector(p.Point()),
		Orientation: QuaternionFromQuat(p.Orientation()),
	}
}

// Spatial converts the message into a spatialmath pose.
func (m Pose) Spatial() spatialmath.Pose {
	return spatialmath.NewPose(m.Position.Vector(), m.Orientation.Quat())
}

// TypeName implements cdr.Message.
func (m *Pose) TypeName() string { return "geometry_msgs/msg/Pose" }

// MarshalCDR implements cdr.Message.
func (m *Pose) MarshalCDR(e *cdr.Encoder) {
	m.Position.MarshalCDR(e)
	m.Orientation.MarshalCDR(e)
}

// UnmarshalCDR implements cdr.Message.
func (m *Pose) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Position.UnmarshalCDR(d); err != nil {
		return err
	}
	return m.Orientation.UnmarshalCDR(d)
}

// PoseStamped is geometry_msgs/PoseStamped.
type PoseStamped struct {
	Header Header `rosmsg:"header:std_msgs/Header"`
	Pose   Pose   `rosmsg:"pose:geometry_msgs/Pose"`
}

// TypeName implements cdr.Message.
func (m *PoseStamped) TypeName() string { return "geometry_msgs/msg/PoseStamped" }

// MarshalCDR implements cdr.Message.
func (m *PoseStamped) MarshalCDR(e *cdr.Encoder) {
	m.Header.MarshalCDR(e)
	m.Pose.MarshalCDR(e)
}

// UnmarshalCDR implements cdr.Message.
func (m *PoseStamped) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.UnmarshalCDR(d); err != nil {
		return err
	}
	return m.Pose.UnmarshalCDR(d)
}
