package msgs

import "github.com/mstoelzle/ros2-hsa/ros/cdr"

// HeaderOf returns the header of a stamped message.
func HeaderOf(m cdr.Message) (Header, bool) {
	switch m := m.(type) {
	case *Header:
		return *m, true
	case *PoseStamped:
		return m.Header, true
	case *Joy:
		return m.Header, true
	case *RigidBodyArray:
		return m.Header, true
	case *PlanarCsConfiguration:
		return m.Header, true
	case *PlanarSetpoint:
		return m.Header, true
	case *Pose2DStamped:
		return m.Header, true
	case *PlanarSetpointControllerInfo:
		return m.Header, true
	default:
		return Header{}, false
	}
}
