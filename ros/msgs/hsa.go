package msgs

import "github.com/mstoelzle/ros2-hsa/ros/cdr"

// PlanarSetpoint is the setpoint of a planar HSA robot.
type PlanarSetpoint struct {
	Header   Header    `rosmsg:"header:std_msgs/Header"`
	// ChieeDes is the desired end-effector pose.
	ChieeDes Pose2D    `rosmsg:"chiee_des:geometry_msgs/Pose2D"`
	// QDes is the desired configuration.
	QDes     []float64 `rosmsg:"q_des:float64[]"`
	// PhiSs is the steady-state actuation.
	PhiSs    []float64 `rosmsg:"phi_ss:float64[]"`
}

// TypeName implements cdr.Message.
func (m *PlanarSetpoint) TypeName() string { return "hsa_control_interfaces/msg/PlanarSetpoint" }

// MarshalCDR implements cdr.Message.
func (m *PlanarSetpoint) MarshalCDR(e *cdr.Encoder) {
	m.Header.MarshalCDR(e)
	m.ChieeDes.MarshalCDR(e)
	e.Float64Seq(m.QDes)
	e.Float64Seq(m.PhiSs)
}

// UnmarshalCDR implements cdr.Message.
func (m *PlanarSetpoint) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.UnmarshalCDR(d); err != nil {
		return err
	}
	if err := m.ChieeDes.UnmarshalCDR(d); err != nil {
		return err
	}
	m.QDes = d.Float64Seq()
	m.PhiSs = d.Float64Seq()
	return d.Err()
}

// Pose2DStamped is a planar pose with reference frame and stamp.
type Pose2DStamped struct {
	Header Header `rosmsg:"header:std_msgs/Header"`
	Pose   Pose2D `rosmsg:"pose:geometry_msgs/Pose2D"`
}

// TypeName implements cdr.Message.
func (m *Pose2DStamped) TypeName() string { return "hsa_control_interfaces/msg/Pose2DStamped" }

// MarshalCDR implements cdr.Message.
func (m *Pose2DStamped) MarshalCDR(e *cdr.Encoder) {
	m.Header.MarshalCDR(e)
	m.Pose.MarshalCDR(e)
}

// UnmarshalCDR implements cdr.Message.
func (m *Pose2DStamped) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.UnmarshalCDR(d); err != nil {
		return err
	}
	return m.Pose.UnmarshalCDR(d)
}

// PlanarSetpointControllerInfo is the diagnostic record a planar setpoint controller publishes
// once per control cycle. Sequences left empty were not reported by the controller.
type PlanarSetpointControllerInfo struct {
	Header         Header         `rosmsg:"header:std_msgs/Header"`
	PlanarSetpoint PlanarSetpoint `rosmsg:"planar_setpoint:hsa_control_interfaces/PlanarSetpoint"`

	Chiee     Pose2DStamped `rosmsg:"chiee:hsa_control_interfaces/Pose2DStamped"`
	ChieeDes  Pose2DStamped `rosmsg:"chiee_des:hsa_control_interfaces/Pose2DStamped"`
	ChieeD    Pose2D        `rosmsg:"chiee_d:geometry_msgs/Pose2D"`
	ChieeDDes Pose2D        `rosmsg:"chiee_d_des:geometry_msgs/Pose2D"`

	Configuration PlanarCsConfiguration `rosmsg:"configuration:mocap_optitrack_interfaces/PlanarCsConfiguration"`

	QDes []float64 `rosmsg:"q_des:float64[]"`
	Q    []float64 `rosmsg:"q:float64[]"`
	QD   []float64 `rosmsg:"q_d:float64[]"`

	EInt []float64 `rosmsg:"e_int:float64[]"`
	F    []float64 `rosmsg:"f:float64[]"`
	Tau  []float64 `rosmsg:"tau:float64[]"`

	VarphiDes []float64 `rosmsg:"varphi_des:float64[]"`
	Varphi    []float64 `rosmsg:"varphi:float64[]"`
	U         []float64 `rosmsg:"u:float64[]"`
	USat      []float64 `rosmsg:"u_sat:float64[]"`
	PhiDesSat []float64 `rosmsg:"phi_des_sat:float64[]"`

	ActuationOptimalityError float64 `rosmsg:"actuation_optimality_error:float64"`
}

// TypeName implements cdr.Message.
func (m *PlanarSetpointControllerInfo) TypeName() string {
	return "hsa_control_interfaces/msg/PlanarSetpointControllerInfo"
}

// MarshalCDR implements cdr.Message.
func (m *PlanarSetpointControllerInfo) MarshalCDR(e *cdr.Encoder) {
	m.Header.MarshalCDR(e)
	m.PlanarSetpoint.MarshalCDR(e)
	m.Chiee.MarshalCDR(e)
	m.ChieeDes.MarshalCDR(e)
	m.ChieeD.MarshalCDR(e)
	m.ChieeDDes.MarshalCDR(e)
	m.Configuration.MarshalCDR(e)
	for _, seq := range [][]float64{
		m.QDes, m.Q, m.QD,
		m.EInt, m.F, m.Tau,
		m.VarphiDes, m.Varphi, m.U, m.USat, m.PhiDesSat,
	} {
		e.Float64Seq(seq)
	}
	e.Float64(m.ActuationOptimalityError)
}

// UnmarshalCDR implements cdr.Message.
func (m *PlanarSetpointControllerInfo) UnmarshalCDR(d *cdr.Decoder) error {
	for _, nested := range []cdr.Message{
		&m.Header, &m.PlanarSetpoint,
		&m.Chiee, &m.ChieeDes, &m.ChieeD, &m.ChieeDDes,
		&m.Configuration,
	} {
		if err := nested.UnmarshalCDR(d); err != nil {
			return err
		}
	}
	for _, seq := range []*[]float64{
		&m.QDes, &m.Q, &m.QD,
		&m.EInt, &m.F, &m.Tau,
		&m.VarphiDes, &m.Varphi, &m.U, &m.USat, &m.PhiDesSat,
	} {
		*seq = d.Float64Seq()
	}
	m.ActuationOptimalityError = d.Float64()
	return d.Err()
}
