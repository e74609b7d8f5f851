// Package joycontrol implements a cartesian joystick control for the end-effector of a planar HSA
// robot. Every joystick sample moves an attractor in the plane, which is published as setpoint.
package joycontrol

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"

	"github.com/mstoelzle/ros2-hsa/config"
	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
	"github.com/mstoelzle/ros2-hsa/services"
)

// Attractor integrates joystick axes into an end-effector position desired by the user.
type Attractor struct {
	delta  float64
	invert bool
	pos    r2.Point
}

// NewAttractor returns an attractor at (0, pee_y0).
func NewAttractor(conf *config.JoyControl) *Attractor {
	return &Attractor{
		delta:  conf.CartesianDelta,
		invert: conf.InvertJoySignals,
		pos:    r2.Point{Y: conf.PeeY0},
	}
}

// Position returns the current attractor position in meters.
func (a *Attractor) Position() r2.Point {
	return a.pos
}

// Update moves the attractor by the first two joystick axes. When the robot is mounted platform-down
// its coordinates are inverted and so are the joystick signals. It reports false, leaving the
// attractor in place, if fewer than two axes are given.
func (a *Attractor) Update(axes []float32) (r2.Point, bool) {
	if len(axes) < 2 {
		return a.pos, false
	}
	step := r2.Point{X: float64(axes[0]), Y: float64(axes[1])}.Mul(a.delta)
	if a.invert {
		a.pos = a.pos.Sub(step)
	} else {
		a.pos = a.pos.Add(step)
	}
	return a.pos, true
}

// Option configures a Node.
type Option func(*Node)

// WithClock sets the clock setpoints are stamped with.
func WithClock(clk clock.Clock) Option {
	return func(n *Node) {
		n.clock = clk
	}
}

// Node turns joystick samples into attractor setpoints.
type Node struct {
	conf   config.JoyControl
	bus    *ros.Bus
	clock  clock.Clock
	logger logging.Logger

	mu        sync.Mutex
	attractor *Attractor

	sub               *ros.Subscription
	cancelFn          context.CancelFunc
	backgroundWorkers sync.WaitGroup
}

// New starts a joystick control node on bus.
func New(ctx context.Context, bus *ros.Bus, conf *config.JoyControl, logger logging.Logger, opts ...Option) (*Node, error) {
	sub, err := bus.Subscribe(conf.JoySignalTopic, ros.DefaultQueueDepth)
	if err != nil {
		return nil, err
	}
	cancelCtx, cancelFn := context.WithCancel(context.Background())
	n := &Node{
		conf:      *conf,
		bus:       bus,
		clock:     clock.New(),
		logger:    logger,
		attractor: NewAttractor(conf),
		sub:       sub,
		cancelFn:  cancelFn,
	}
	for _, opt := range opts {
		opt(n)
	}

	n.backgroundWorkers.Add(1)
	go func() {
		defer n.backgroundWorkers.Done()
		services.Spin(cancelCtx, sub, n.logger, n.joySignalCallback)
	}()
	return n, nil
}

// Name implements services.Node.
func (n *Node) Name() string {
	return config.JoyControlNodeName
}

// Attractor returns the current attractor position.
func (n *Node) Attractor() r2.Point {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attractor.Position()
}

func (n *Node) joySignalCallback(ctx context.Context, msg *msgs.Joy) error {
	n.logger.Debugw("received joy signal", "axes", msg.Axes)

	n.mu.Lock()
	pos, ok := n.attractor.Update(msg.Axes)
	n.mu.Unlock()
	if !ok {
		n.logger.Warnw("ignoring joy signal with fewer than two axes", "axes", len(msg.Axes))
		return nil
	}

	// the orientation of the end-effector is not controlled
	setpoint := &msgs.PlanarSetpoint{
		Header:   msgs.Header{Stamp: msgs.TimeFromGo(n.clock.Now())},
		ChieeDes: msgs.Pose2D{X: pos.X, Y: pos.Y},
	}
	return n.bus.Publish(ctx, n.conf.AttractorTopic, setpoint)
}

// Close out of all joystick control related systems.
func (n *Node) Close(ctx context.Context) error {
	n.cancelFn()
	n.sub.Close()
	n.backgroundWorkers.Wait()
	return nil
}
