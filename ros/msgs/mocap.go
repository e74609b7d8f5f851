package msgs

import "github.com/mstoelzle/ros2-hsa/ros/cdr"

// RigidBody is a rigid body tracked by the motion capture system.
type RigidBody struct {
	ID          int32       `rosmsg:"id:int32"`
	Valid       bool        `rosmsg:"valid:bool"`
	MeanError   float32     `rosmsg:"mean_error:float32"`
	PoseStamped PoseStamped `rosmsg:"pose_stamped:geometry_msgs/PoseStamped"`
}

// TypeName implements cdr.Message.
func (m *RigidBody) TypeName() string { return "mocap_optitrack_interfaces/msg/RigidBody" }

// MarshalCDR implements cdr.Message.
func (m *RigidBody) MarshalCDR(e *cdr.Encoder) {
	e.Int32(m.ID)
	e.Bool(m.Valid)
	e.Float32(m.MeanError)
	m.PoseStamped.MarshalCDR(e)
}

// UnmarshalCDR implements cdr.Message.
func (m *RigidBody) UnmarshalCDR(d *cdr.Decoder) error {
	m.ID = d.Int32()
	m.Valid = d.Bool()
	m.MeanError = d.Float32()
	return m.PoseStamped.UnmarshalCDR(d)
}

// RigidBodyArray holds every rigid body of a single motion capture frame.
type RigidBodyArray struct {
	Header      Header      `rosmsg:"header:std_msgs/Header"`
	RigidBodies []RigidBody `rosmsg:"rigid_bodies:mocap_optitrack_interfaces/RigidBody[]"`
}

// Body returns the body with the given ID, if the frame contains it.
func (m *RigidBodyArray) Body(id int32) (RigidBody, bool) {
	for _, rb := range m.RigidBodies {
		if rb.ID == id {
			return rb, true
		}
	}
	return RigidBody{}, false
}

// TypeName implements cdr.Message.
func (m *RigidBodyArray) TypeName() string { return "mocap_optitrack_interfaces/msg/RigidBodyArray" }

// MarshalCDR implements cdr.Message.
func (m *RigidBodyArray) MarshalCDR(e *cdr.Encoder) {
	m.Header.MarshalCDR(e)
	e.SequenceLength(len(m.RigidBodies))
	for i := range m.RigidBodies {
		m.RigidBodies[i].MarshalCDR(e)
	}
}

// UnmarshalCDR implements cdr.Message.
func (m *RigidBodyArray) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.UnmarshalCDR(d); err != nil {
		return err
	}
	// id, valid and mean_error alone take 12 bytes
	m.RigidBodies = make([]RigidBody, d.SequenceLength(12))
	for i := range m.RigidBodies {
		if err := m.RigidBodies[i].UnmarshalCDR(d); err != nil {
			return err
		}
	}
	return d.Err()
}

// PlanarCsConfiguration is the configuration of a planar constant strain segment.
type PlanarCsConfiguration struct {
	Header  Header  `rosmsg:"header:std_msgs/Header"`
	KappaB  float64 `rosmsg:"kappa_b:float64"`
	SigmaSh float64 `rosmsg:"sigma_sh:float64"`
	SigmaA  float64 `rosmsg:"sigma_a:float64"`
}

// Vector returns the configuration as (kappa_b, sigma_sh, sigma_a).
func (m *PlanarCsConfiguration) Vector() []float64 {
	return []float64{m.KappaB, m.SigmaSh, m.SigmaA}
}

// TypeName implements cdr.Message.
func (m *PlanarCsConfiguration) TypeName() string {
	return "mocap_optitrack_interfaces/msg/PlanarCsConfiguration"
}

// MarshalCDR implements cdr.Message.
func (m *PlanarCsConfiguration) MarshalCDR(e *cdr.Encoder) {
	m.Header.MarshalCDR(e)
	e.Float64(m.KappaB)
	e.Float64(m.SigmaSh)
	e.Float64(m.SigmaA)
}

// UnmarshalCDR implements cdr.Message.
func (m *PlanarCsConfiguration) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.UnmarshalCDR(d); err != nil {
		return err
	}
	m.KappaB = d.Float64()
	m.SigmaSh = d.Float64()
	m.SigmaA = d.Float64()
	return d.Err()
}
