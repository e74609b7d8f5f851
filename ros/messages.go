package ros

import "github.com/mstoelzle/ros2-hsa/ros/msgs"

// BagStamp is a ROS 1 time as gobag renders it.
type BagStamp struct {
	Secs  int64
	Nsecs int64
}

// ToMsg converts the stamp into a ROS 2 time.
func (s BagStamp) ToMsg() msgs.Time {
	return msgs.Time{Sec: int32(s.Secs), Nanosec: uint32(s.Nsecs)}
}

// BagHeader is a ROS 1 std_msgs/Header. The sequence number has no ROS 2 counterpart.
type BagHeader struct {
	Seq     int
	Stamp   BagStamp
	FrameID string   `json:"frame_id"`
}

// ToMsg converts the header into a ROS 2 header.
func (h BagHeader) ToMsg() msgs.Header {
	return msgs.Header{Stamp: h.Stamp.ToMsg(), FrameID: h.FrameID}
}

// RigidBodyArrayMessage is a mocap_optitrack RigidBodyArray line of a bag parsed to JSON.
type RigidBodyArrayMessage struct {
	Meta struct {
		Secs  int
		Nsecs int
	}
	Data struct {
		Header      BagHeader
		RigidBodies []struct {
			ID          int32
			Valid       bool
			MeanError   float32 `json:"mean_error"`
			PoseStamped struct {
				Header BagHeader
				Pose   struct {
					Position struct {
						X float64
						Y float64
						Z float64
					}
					Orientation struct {
						X float64
						Y float64
						Z float64
						W float64
					}
				}
			} `json:"pose_stamped"`
		} `json:"rigid_bodies"`
	}
}

// ToMsg converts the bag message into the ROS 2 message the nodes consume.
func (m *RigidBodyArrayMessage) ToMsg() *msgs.RigidBodyArray {
	out := &msgs.RigidBodyArray{
		Header:      m.Data.Header.ToMsg(),
		RigidBodies: make([]msgs.RigidBody, 0, len(m.Data.RigidBodies)),
	}
	for _, rb := range m.Data.RigidBodies {
		pose := rb.PoseStamped.Pose
		out.RigidBodies = append(out.RigidBodies, msgs.RigidBody{
			ID:        rb.ID,
			Valid:     rb.Valid,
			MeanError: rb.MeanError,
			PoseStamped: msgs.PoseStamped{
				Header: rb.PoseStamped.Header.ToMsg(),
				Pose: msgs.Pose{
					Position: msgs.Point{X: pose.Position.X, Y: pose.Position.Y, Z: pose.Position.Z},
					Orientation: msgs.Quaternion{
						X: pose.Orientation.X,
						Y: pose.Orientation.Y,
						Z: pose.Orientation.Z,
						W: pose.Orientation.W,
					},
				},
			},
		})
	}
	return out
}
