package msgs

import (
	"time"

	"github.com/mstoelzle/ros2-hsa/ros/cdr"
)

// Time is builtin_interfaces/Time, a point in time as seconds and nanoseconds since the clock's epoch.
type Time struct {
	Sec     int32  `rosmsg:"sec:int32"`
	Nanosec uint32 `rosmsg:"nanosec:uint32"`
}

// TimeFromGo converts a time.Time into a stamp. Times outside the int32 second range saturate.
func TimeFromGo(t time.Time) Time {
	ns := t.UnixNano()
	sec := ns / int64(time.Second)
	nsec := ns % int64(time.Second)
	if nsec < 0 {
		sec--
		nsec += int64(time.Second)
	}
	switch {
	case sec > maxInt32:
		return Time{Sec: maxInt32, Nanosec: uint32(time.Second - 1)}
	case sec < minInt32:
		return Time{Sec: minInt32}
	}
	return Time{Sec: int32(sec), Nanosec: uint32(nsec)}
}

const (
	maxInt32 = 1<<31 - 1
	minInt32 = -1 << 31
)

// Go converts the stamp into a UTC time.Time.
func (t Time) Go() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nanosec)).UTC()
}

// IsZero reports whether the stamp is unset.
func (t Time) IsZero() bool {
	return t.Sec == 0 && t.Nanosec == 0
}

// Before reports whether t is earlier than other.
func (t Time) Before(other Time) bool {
	return t.Sec < other.Sec || (t.Sec == other.Sec && t.Nanosec < other.Nanosec)
}

// TypeName implements cdr.Message.
func (t *Time) TypeName() string { return "builtin_interfaces/msg/Time" }

// MarshalCDR implements cdr.Message.
func (t *Time) MarshalCDR(e *cdr.Encoder) {
	e.Int32(t.Sec)
	e.Uint32(t.Nanosec)
}

// UnmarshalCDR implements cdr.Message.
func (t *Time) UnmarshalCDR(d *cdr.Decoder) error {
	t.Sec = d.Int32()
	t.Nanosec = d.Uint32()
	return d.Err()
}

// Header is std_msgs/Header, the stamp and coordinate frame of stamped data.
type Header struct {
	Stamp   Time   `rosmsg:"stamp:builtin_interfaces/Time"`
	FrameID string `rosmsg:"frame_id:string"`
}

// TypeName implements cdr.Message.
func (m *Header) TypeName() string { return "std_msgs/msg/Header" }

// MarshalCDR implements cdr.Message.
func (m *Header) MarshalCDR(e *cdr.Encoder) {
	m.Stamp.MarshalCDR(e)
	e.String(m.FrameID)
}

// UnmarshalCDR implements cdr.Message.
func (m *Header) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Stamp.UnmarshalCDR(d); err != nil {
		return err
	}
	m.FrameID = d.String()
	return d.Err()
}
