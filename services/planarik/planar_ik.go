// Package planarik estimates the planar end-effector pose of an HSA robot from the motion capture
// platform body and, given an inverse kinematics model, its configuration.
package planarik

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mstoelzle/ros2-hsa/config"
	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
	"github.com/mstoelzle/ros2-hsa/services"
	"github.com/mstoelzle/ros2-hsa/spatialmath"
)

// MarkerOffset is the distance in meters between the centroid of the pivot marker of the platform
// rigid body and the surface of the end-effector, along the platform z-axis.
const MarkerOffset = 0.007

// InverseKinematics maps an end-effector pose to the configuration of the robot.
type InverseKinematics interface {
	EndEffector(ctx context.Context, chiee msgs.Pose2D) (msgs.PlanarCsConfiguration, error)
}

// InverseKinematicsFunc adapts a function to InverseKinematics.
type InverseKinematicsFunc func(ctx context.Context, chiee msgs.Pose2D) (msgs.PlanarCsConfiguration, error)

// EndEffector implements InverseKinematics.
func (f InverseKinematicsFunc) EndEffector(ctx context.Context, chiee msgs.Pose2D) (msgs.PlanarCsConfiguration, error) {
	return f(ctx, chiee)
}

// EndEffectorPose returns the SE(2) pose of the end-effector for a platform body given in the base
// frame. The y-axis of the base frame is the negative x-axis of the end-effector plane, the z-axis is
// its y-axis, and a rotation about the base x-axis is a rotation about the negative plane normal.
func EndEffectorPose(platform msgs.RigidBody) msgs.Pose2D {
	pose := platform.PoseStamped.Pose.Spatial()
	position := pose.Point().Sub(spatialmath.RotateVector(pose.Orientation(), r3.Vector{Z: MarkerOffset}))
	euler := spatialmath.QuatToEulerXYZ(pose.Orientation())
	return msgs.Pose2D{
		X:     -position.Y,
		Y:     position.Z,
		Theta: -euler.Roll,
	}
}

// Option configures a Node.
type Option func(*Node)

// WithInverseKinematics makes the node publish the configuration solved by ik for every pose.
func WithInverseKinematics(ik InverseKinematics) Option {
	return func(n *Node) {
		n.ik = ik
	}
}

// Node publishes the end-effector pose, and optionally the configuration, for every base frame sample
// holding the platform body.
type Node struct {
	conf   config.PlanarIK
	bus    *ros.Bus
	ik     InverseKinematics
	logger logging.Logger

	sub               *ros.Subscription
	cancelFn          context.CancelFunc
	backgroundWorkers sync.WaitGroup
}

// New starts a planar inverse kinematics node on bus.
func New(ctx context.Context, bus *ros.Bus, conf *config.PlanarIK, logger logging.Logger, opts ...Option) (*Node, error) {
	sub, err := bus.Subscribe(conf.BaseframeRigidBodiesTopic, ros.DefaultQueueDepth)
	if err != nil {
		return nil, err
	}
	cancelCtx, cancelFn := context.WithCancel(context.Background())
	n := &Node{
		conf:     *conf,
		bus:      bus,
		logger:   logger,
		sub:      sub,
		cancelFn: cancelFn,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.ik == nil {
		n.logger.Infow("no inverse kinematics model, publishing end-effector poses only",
			"end_effector_pose_topic", conf.EndEffectorPoseTopic)
	}

	n.backgroundWorkers.Add(1)
	go func() {
		defer n.backgroundWorkers.Done()
		services.Spin(cancelCtx, sub, n.logger, n.listenerCallback)
	}()
	return n, nil
}

// Name implements services.Node.
func (n *Node) Name() string {
	return config.PlanarIKNodeName
}

func (n *Node) listenerCallback(ctx context.Context, msg *msgs.RigidBodyArray) error {
	for _, body := range msg.RigidBodies {
		if int(body.ID) != n.conf.MocapPlatformID {
			continue
		}
		if !body.Valid {
			n.logger.Debugw("platform body not tracked in this frame", "id", body.ID)
			continue
		}
		if err := n.processPlatform(ctx, body); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) processPlatform(ctx context.Context, platform msgs.RigidBody) error {
	header := platform.PoseStamped.Header
	chiee := EndEffectorPose(platform)
	if err := n.bus.Publish(ctx, n.conf.EndEffectorPoseTopic, &msgs.Pose2DStamped{Header: header, Pose: chiee}); err != nil {
		return err
	}
	if n.ik == nil {
		return nil
	}

	q, err := n.ik.EndEffector(ctx, chiee)
	if err != nil {
		return errors.Wrapf(err, "inverse kinematics failed for end-effector pose %+v", chiee)
	}
	q.Header = header
	return n.bus.Publish(ctx, n.conf.ConfigurationTopic, &q)
}

// Close stops the node.
func (n *Node) Close(ctx context.Context) error {
	n.cancelFn()
	n.sub.Close()
	n.backgroundWorkers.Wait()
	return nil
}
