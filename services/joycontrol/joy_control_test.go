package joycontrol

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/mstoelzle/ros2-hsa/config"
	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
)

func TestAttractor(t *testing.T) {
	conf := config.DefaultJoyControl()
	conf.PeeY0 = 0.1

	t.Run("inverted", func(t *testing.T) {
		a := NewAttractor(&conf)
		test.That(t, a.Position(), test.ShouldResemble, r2.Point{Y: 0.1})

		pos, ok := a.Update([]float32{1, -0.5})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, pos.X, test.ShouldAlmostEqual, -1e-4, 1e-12)
		test.That(t, pos.Y, test.ShouldAlmostEqual, 0.1+0.5e-4, 1e-12)
		test.That(t, a.Position(), test.ShouldResemble, pos)
	})

	t.Run("not inverted", func(t *testing.T) {
		conf := conf
		conf.InvertJoySignals = false
		conf.CartesianDelta = 1e-3
		a := NewAttractor(&conf)
		for i := 0; i < 10; i++ {
			_, ok := a.Update([]float32{0.5, 1, 1, 1})
			test.That(t, ok, test.ShouldBeTrue)
		}
		test.That(t, a.Position().X, test.ShouldAlmostEqual, 5e-3, 1e-12)
		test.That(t, a.Position().Y, test.ShouldAlmostEqual, 0.11, 1e-12)
	})

	t.Run("too few axes", func(t *testing.T) {
		a := NewAttractor(&conf)
		for _, axes := range [][]float32{nil, {1}} {
			pos, ok := a.Update(axes)
			test.That(t, ok, test.ShouldBeFalse)
			test.That(t, pos, test.ShouldResemble, r2.Point{Y: 0.1})
		}
	})
}

func TestNode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 500))

	logger, logs := logging.NewObservedTestLogger(t)
	bus := ros.NewBus(logger)
	defer bus.Close()

	conf := config.DefaultJoyControl()
	setpoints, err := bus.Subscribe(conf.AttractorTopic, 0)
	test.That(t, err, test.ShouldBeNil)

	node, err := New(ctx, bus, &conf, logger, WithClock(clk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.Name(), test.ShouldEqual, "planar_hsa_cartesian_joy_control_node")

	for _, axes := range [][]float32{{1, 0}, {0.5}, {0, 1}} {
		test.That(t, bus.Publish(ctx, conf.JoySignalTopic, &msgs.Joy{Axes: axes}), test.ShouldBeNil)
	}

	first, err := ros.Receive[*msgs.PlanarSetpoint](ctx, setpoints)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.Header.Stamp, test.ShouldResemble, msgs.Time{Sec: 1700000000, Nanosec: 500})
	test.That(t, first.ChieeDes, test.ShouldResemble, msgs.Pose2D{X: -1e-4})
	test.That(t, first.QDes, test.ShouldBeEmpty)
	test.That(t, first.PhiSs, test.ShouldBeEmpty)

	second, err := ros.Receive[*msgs.PlanarSetpoint](ctx, setpoints)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.ChieeDes.X, test.ShouldAlmostEqual, -1e-4, 1e-12)
	test.That(t, second.ChieeDes.Y, test.ShouldAlmostEqual, -1e-4, 1e-12)

	test.That(t, node.Close(ctx), test.ShouldBeNil)
	test.That(t, node.Attractor(), test.ShouldResemble, r2.Point{X: second.ChieeDes.X, Y: second.ChieeDes.Y})
	test.That(t, setpoints.C(), test.ShouldBeEmpty)
	test.That(t, logs.FilterMessage("ignoring joy signal with fewer than two axes").Len(), test.ShouldEqual, 1)
}
