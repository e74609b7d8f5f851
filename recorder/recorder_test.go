package recorder

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.viam.com/test"

	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/cdr"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
)

func openRecorder(t *testing.T, clk clock.Clock) *Recorder {
	t.Helper()
	return openRecorderWithLogger(t, clk, logging.NewTestLogger(t))
}

func openRecorderWithLogger(t *testing.T, clk clock.Clock, logger logging.Logger) *Recorder {
	t.Helper()
	r, err := Open(context.Background(), filepath.Join(t.TempDir(), "hsa.db"), logger, WithClock(clk))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, r.Close(), test.ShouldBeNil)
	})
	return r
}

func controllerInfo(sec int32, x, errNorm float64) *msgs.PlanarSetpointControllerInfo {
	header := msgs.Header{Stamp: msgs.Time{Sec: sec}, FrameID: "base"}
	return &msgs.PlanarSetpointControllerInfo{
		Header: header,
		PlanarSetpoint: msgs.PlanarSetpoint{
			Header:   header,
			ChieeDes: msgs.Pose2D{X: 0.01, Y: 0.12},
		},
		Chiee:                    msgs.Pose2DStamped{Header: header, Pose: msgs.Pose2D{X: x, Y: 0.11, Theta: 0.1}},
		ChieeDes:                 msgs.Pose2DStamped{Header: header, Pose: msgs.Pose2D{X: 0.01, Y: 0.12}},
		Q:                        []float64{1, 2, 3},
		ActuationOptimalityError: errNorm,
	}
}

func TestMigrations(t *testing.T) {
	r := openRecorder(t, clock.NewMock())
	version, dirty, err := r.MigrateVersion()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dirty, test.ShouldBeFalse)
	test.That(t, version, test.ShouldEqual, 3)

	// migrating an up to date database is a no-op
	test.That(t, r.MigrateUp(), test.ShouldBeNil)
}

func TestRecordWithoutSession(t *testing.T) {
	r := openRecorder(t, clock.NewMock())
	_, ok := r.CurrentSession()
	test.That(t, ok, test.ShouldBeFalse)
	err := r.Record(context.Background(), "/joy", &msgs.Joy{Axes: []float32{1, 0}})
	test.That(t, err, test.ShouldEqual, ErrNoSession)
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	r := openRecorder(t, clk)

	session, err := r.StartSession(ctx, "step response")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, session.ID, test.ShouldNotEqual, uuid.Nil)
	test.That(t, session.Started, test.ShouldEqual, time.Unix(1700000000, 0).UTC())

	setpoint := &msgs.PlanarSetpoint{
		Header:   msgs.Header{Stamp: msgs.Time{Sec: 3, Nanosec: 4}, FrameID: "base"},
		ChieeDes: msgs.Pose2D{X: 0.02, Y: 0.13},
		QDes:     []float64{0.5},
		PhiSs:    []float64{},
	}
	test.That(t, r.Record(ctx, "/attractor", setpoint), test.ShouldBeNil)
	clk.Add(time.Second)
	test.That(t, r.Record(ctx, "/attractor", &msgs.PlanarSetpoint{ChieeDes: msgs.Pose2D{Y: 0.1}}), test.ShouldBeNil)
	// unstamped messages are recorded too
	test.That(t, r.Record(ctx, "/chiee", &msgs.Pose2D{X: 1}), test.ShouldBeNil)

	recorded, err := r.Messages(ctx, session.ID, "/attractor")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recorded, test.ShouldHaveLength, 2)
	test.That(t, recorded[0].TypeName, test.ShouldEqual, "hsa_control_interfaces/msg/PlanarSetpoint")
	test.That(t, recorded[0].Header, test.ShouldResemble, setpoint.Header)
	test.That(t, recorded[0].Received, test.ShouldEqual, time.Unix(1700000000, 0).UTC())
	test.That(t, recorded[0].Msg, test.ShouldResemble, setpoint)
	test.That(t, recorded[1].Received, test.ShouldEqual, time.Unix(1700000001, 0).UTC())

	topics, err := r.Topics(ctx, session.ID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, topics, test.ShouldResemble, map[string]int{"/attractor": 2, "/chiee": 1})

	other, err := r.StartSession(ctx, "")
	test.That(t, err, test.ShouldBeNil)
	recorded, err = r.Messages(ctx, other.ID, "/attractor")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recorded, test.ShouldBeEmpty)

	sessions, err := r.Sessions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sessions, test.ShouldHaveLength, 2)
	test.That(t, sessions[0].ID, test.ShouldEqual, session.ID)
	test.That(t, sessions[0].Notes, test.ShouldEqual, "step response")
	test.That(t, sessions[0].Messages, test.ShouldEqual, 3)
	test.That(t, sessions[1].Messages, test.ShouldEqual, 0)
}

func TestControllerTrace(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t, clock.NewMock())
	session, err := r.StartSession(ctx, "")
	test.That(t, err, test.ShouldBeNil)

	// recorded out of stamp order
	test.That(t, r.Record(ctx, "/controller_info", controllerInfo(2, 0.005, 0.2)), test.ShouldBeNil)
	test.That(t, r.Record(ctx, "/controller_info", controllerInfo(1, 0.0, 0.3)), test.ShouldBeNil)

	trace, err := r.ControllerTrace(ctx, session.ID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, trace, test.ShouldHaveLength, 2)
	test.That(t, trace[0].Stamp, test.ShouldEqual, time.Unix(1, 0).UTC())
	test.That(t, trace[0].ActuationOptimalityError, test.ShouldEqual, 0.3)
	test.That(t, trace[1].Chiee, test.ShouldResemble, msgs.Pose2D{X: 0.005, Y: 0.11, Theta: 0.1})
	test.That(t, trace[1].ChieeDes, test.ShouldResemble, msgs.Pose2D{X: 0.01, Y: 0.12})
	test.That(t, trace[1].Setpoint, test.ShouldResemble, msgs.Pose2D{X: 0.01, Y: 0.12})

	recorded, err := r.Messages(ctx, session.ID, "/controller_info")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recorded, test.ShouldHaveLength, 2)
	// empty sequences come back as empty slices
	want, err := msgs.Decode(recorded[0].TypeName, cdr.Marshal(controllerInfo(2, 0.005, 0.2)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recorded[0].Msg, test.ShouldResemble, want)
}

func TestControllerTraceNonFinite(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t, clock.NewMock())
	session, err := r.StartSession(ctx, "")
	test.That(t, err, test.ShouldBeNil)

	nan := controllerInfo(1, math.NaN(), math.NaN())
	nan.PlanarSetpoint.ChieeDes.Theta = math.NaN()
	test.That(t, r.Record(ctx, "/controller_info", nan), test.ShouldBeNil)
	test.That(t, r.Record(ctx, "/controller_info", controllerInfo(2, 0.01, math.Inf(1))), test.ShouldBeNil)

	trace, err := r.ControllerTrace(ctx, session.ID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, trace, test.ShouldHaveLength, 2)
	test.That(t, math.IsNaN(trace[0].Chiee.X), test.ShouldBeTrue)
	test.That(t, trace[0].Chiee.Y, test.ShouldEqual, 0.11)
	test.That(t, math.IsNaN(trace[0].Setpoint.Theta), test.ShouldBeTrue)
	test.That(t, math.IsNaN(trace[0].ActuationOptimalityError), test.ShouldBeTrue)
	test.That(t, math.IsInf(trace[1].ActuationOptimalityError, 1), test.ShouldBeTrue)

	recorded, err := r.Messages(ctx, session.ID, "/controller_info")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recorded, test.ShouldHaveLength, 2)
	info, ok := recorded[0].Msg.(*msgs.PlanarSetpointControllerInfo)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, math.IsNaN(info.ActuationOptimalityError), test.ShouldBeTrue)
}

func TestAttachSkipsFailedSamples(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger, logs := logging.NewObservedTestLogger(t)
	bus := ros.NewBus(logger)
	defer bus.Close()
	r := openRecorderWithLogger(t, clock.NewMock(), logger)

	attachCtx, stop := context.WithCancel(ctx)
	wait, err := r.Attach(attachCtx, bus, "/attractor")
	test.That(t, err, test.ShouldBeNil)

	// no session yet, so this sample cannot be recorded
	test.That(t, bus.Publish(ctx, "/attractor", &msgs.PlanarSetpoint{}), test.ShouldBeNil)
	for logs.FilterMessage("failed to record sample, skipping it").Len() == 0 && ctx.Err() == nil {
		time.Sleep(5 * time.Millisecond)
	}
	test.That(t, logs.FilterMessage("failed to record sample, skipping it").Len(), test.ShouldEqual, 1)

	session, err := r.StartSession(ctx, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bus.Publish(ctx, "/attractor", &msgs.PlanarSetpoint{ChieeDes: msgs.Pose2D{X: 1}}), test.ShouldBeNil)
	var recorded []Message
	for len(recorded) == 0 && ctx.Err() == nil {
		recorded, err = r.Messages(ctx, session.ID, "/attractor")
		test.That(t, err, test.ShouldBeNil)
		time.Sleep(5 * time.Millisecond)
	}
	test.That(t, recorded, test.ShouldHaveLength, 1)

	stop()
	test.That(t, wait(), test.ShouldBeNil)
}

func TestAttach(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := logging.NewTestLogger(t)
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	bus := ros.NewBus(logger, ros.WithBusClock(clk))
	defer bus.Close()

	r := openRecorder(t, clock.NewMock())
	session, err := r.StartSession(ctx, "")
	test.That(t, err, test.ShouldBeNil)

	attachCtx, stop := context.WithCancel(ctx)
	wait, err := r.Attach(attachCtx, bus, "/end_effector_pose", "/attractor")
	test.That(t, err, test.ShouldBeNil)

	pose := &msgs.Pose2DStamped{Header: msgs.Header{Stamp: msgs.Time{Sec: 1}}, Pose: msgs.Pose2D{Y: 0.1}}
	test.That(t, bus.Publish(ctx, "/end_effector_pose", pose), test.ShouldBeNil)
	test.That(t, bus.Publish(ctx, "/attractor", &msgs.PlanarSetpoint{}), test.ShouldBeNil)
	// not subscribed
	test.That(t, bus.Publish(ctx, "/joy", &msgs.Joy{}), test.ShouldBeNil)

	waitForMessages := func(topic string) []Message {
		for {
			recorded, err := r.Messages(ctx, session.ID, topic)
			test.That(t, err, test.ShouldBeNil)
			if len(recorded) > 0 || ctx.Err() != nil {
				return recorded
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	poses := waitForMessages("/end_effector_pose")
	test.That(t, poses, test.ShouldHaveLength, 1)
	test.That(t, poses[0].Msg, test.ShouldResemble, pose)
	test.That(t, poses[0].Received, test.ShouldEqual, time.Unix(1700000000, 0).UTC())
	test.That(t, waitForMessages("/attractor"), test.ShouldHaveLength, 1)

	stop()
	test.That(t, wait(), test.ShouldBeNil)
	topics, err := r.Topics(ctx, session.ID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, topics, test.ShouldNotContainKey, "/joy")
}
