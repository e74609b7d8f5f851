package msgs

import "github.com/mstoelzle/ros2-hsa/ros/cdr"

// Joy is sensor_msgs/Joy, the state of a joystick's axes and buttons.
type Joy struct {
	Header  Header    `rosmsg:"header:std_msgs/Header"`
	Axes    []float32 `rosmsg:"axes:float32[]"`
	Buttons []int32   `rosmsg:"buttons:int32[]"`
}

// TypeName implements cdr.Message.
func (m *Joy) TypeName() string { return "sensor_msgs/msg/Joy" }

// MarshalCDR implements cdr.Message.
func (m *Joy) MarshalCDR(e *cdr.Encoder) {
	m.Header.MarshalCDR(e)
	e.Float32Seq(m.Axes)
	e.Int32Seq(m.Buttons)
}

// UnmarshalCDR implements cdr.Message.
func (m *Joy) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.UnmarshalCDR(d); err != nil {
		return err
	}
	m.Axes = d.Float32Seq()
	m.Buttons = d.Int32Seq()
	return d.Err()
}
