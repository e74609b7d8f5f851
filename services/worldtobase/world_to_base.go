// Package worldtobase re-expresses motion capture rigid bodies in the frame of the robot base.
//
// The motion capture system reports every rigid body in its own world frame. The robot base is itself
// tracked as a rigid body; the first time it is seen its pose, corrected by the calibrated offset of
// the tracked frame, fixes the base frame for the lifetime of the node.
package worldtobase

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/mstoelzle/ros2-hsa/config"
	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
	"github.com/mstoelzle/ros2-hsa/services"
	"github.com/mstoelzle/ros2-hsa/spatialmath"
)

// Transformer maps rigid body arrays from the world frame into the base frame. It is not safe for
// concurrent use.
type Transformer struct {
	baseID      int32
	orientation quat.Number
	offset      r3.Vector

	base    spatialmath.Pose
	latched bool
}

// NewTransformer returns a transformer for the given calibration. The base frame is latched by the
// first frame passed to Transform that holds a valid base body.
func NewTransformer(conf *config.WorldToBase) *Transformer {
	return &Transformer{
		baseID:      int32(conf.BaseID),
		orientation: conf.BaseOrientation(),
		offset:      conf.InitialOffset(),
	}
}

// Base returns the pose of the base frame in the world frame once it has been latched.
func (t *Transformer) Base() (spatialmath.Pose, bool) {
	return t.base, t.latched
}

// latch fixes the base frame from the world pose of the tracked base body. The tracked frame sits at
// the calibrated offset from the base origin, expressed in base frame axes.
func (t *Transformer) latch(body msgs.RigidBody) {
	tracked := body.PoseStamped.Pose.Position.Vector()
	origin := tracked.Sub(spatialmath.RotateVector(t.orientation, t.offset))
	t.base = spatialmath.NewPose(origin, t.orientation)
	t.latched = true
}

// Transform returns a copy of in with the pose of every valid body expressed in the base frame.
// Invalid bodies are copied unchanged. It reports false, and returns nil, while the base frame has
// not been latched and in does not hold a valid base body either.
func (t *Transformer) Transform(in *msgs.RigidBodyArray) (*msgs.RigidBodyArray, bool) {
	if !t.latched {
		body, ok := in.Body(t.baseID)
		if !ok || !body.Valid {
			return nil, false
		}
		t.latch(body)
	}

	out := &msgs.RigidBodyArray{
		Header:      in.Header,
		RigidBodies: make([]msgs.RigidBody, len(in.RigidBodies)),
	}
	for i, body := range in.RigidBodies {
		out.RigidBodies[i] = body
		if !body.Valid {
			continue
		}
		inBase := spatialmath.PoseBetween(t.base, body.PoseStamped.Pose.Spatial())
		out.RigidBodies[i].PoseStamped.Pose = msgs.PoseFromSpatial(inBase)
	}
	return out, true
}

// Node subscribes to raw rigid bodies and publishes them re-expressed in the base frame.
type Node struct {
	conf   config.WorldToBase
	bus    *ros.Bus
	logger logging.Logger

	mu          sync.Mutex
	transformer *Transformer

	sub               *ros.Subscription
	cancelFn          context.CancelFunc
	backgroundWorkers sync.WaitGroup
}

// New starts a world-to-base node on bus.
func New(ctx context.Context, bus *ros.Bus, conf *config.WorldToBase, logger logging.Logger) (*Node, error) {
	sub, err := bus.Subscribe(conf.SubTopic, ros.DefaultQueueDepth)
	if err != nil {
		return nil, err
	}
	cancelCtx, cancelFn := context.WithCancel(context.Background())
	n := &Node{
		conf:        *conf,
		bus:         bus,
		logger:      logger,
		transformer: NewTransformer(conf),
		sub:         sub,
		cancelFn:    cancelFn,
	}
	n.logger.Infow("waiting for base rigid body", "base_id", conf.BaseID, "sub_topic", conf.SubTopic, "pub_topic", conf.PubTopic)

	n.backgroundWorkers.Add(1)
	go func() {
		defer n.backgroundWorkers.Done()
		services.Spin(cancelCtx, sub, n.logger, n.listenerCallback)
	}()
	return n, nil
}

// Name implements services.Node.
func (n *Node) Name() string {
	return config.WorldToBaseNodeName
}

// Base returns the latched pose of the base frame in the world frame.
func (n *Node) Base() (spatialmath.Pose, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transformer.Base()
}

func (n *Node) listenerCallback(ctx context.Context, msg *msgs.RigidBodyArray) error {
	n.mu.Lock()
	wasLatched := n.transformer.latched
	out, ok := n.transformer.Transform(msg)
	base := n.transformer.base
	n.mu.Unlock()

	if !ok {
		n.logger.Debugw("base rigid body not seen yet, dropping frame", "base_id", n.conf.BaseID)
		return nil
	}
	if !wasLatched {
		n.logger.Infow("latched base frame", "base", base.String())
	}
	return n.bus.Publish(ctx, n.conf.PubTopic, out)
}

// Close stops the node.
func (n *Node) Close(ctx context.Context) error {
	n.cancelFn()
	n.sub.Close()
	n.backgroundWorkers.Wait()
	return nil
}
