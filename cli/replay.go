package cli

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/mstoelzle/ros2-hsa/config"
	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/recorder"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
	"github.com/mstoelzle/ros2-hsa/services"
	"github.com/mstoelzle/ros2-hsa/services/planarik"
	"github.com/mstoelzle/ros2-hsa/services/worldtobase"
)

const (
	defaultSettle = 250 * time.Millisecond
	quietPoll     = 10 * time.Millisecond
)

// replayOptions configures a replay.
type replayOptions struct {
	Notes  string
	// Rate is the number of frames published per second. Zero or less publishes without pacing.
	Rate   float64
	// Settle is how long the bus must stay quiet after the last frame before the nodes are stopped.
	Settle time.Duration
	// Clock paces the settle wait. It defaults to the wall clock.
	Clock clock.Clock
}

// replayResult summarizes a replay.
type replayResult struct {
	Session     recorder.Session
	Frames      int
	Published   uint64
	// Dropped counts samples evicted from full subscription queues.
	Dropped     uint64
	BaseID      int
	// BaseLatched reports whether the world-to-base node saw the robot base.
	BaseLatched bool
}

// replayFrames publishes frames as world frame rigid bodies through the world-to-base and planar IK
// nodes configured in pf, recording every topic they touch into a new session of rec. Every queue is
// deep enough to hold all frames, so an unpaced replay loses nothing.
func replayFrames(
	ctx context.Context,
	logger logging.Logger,
	pf *config.ParameterFile,
	rec *recorder.Recorder,
	frames []*msgs.RigidBodyArray,
	opts replayOptions,
) (result replayResult, err error) {
	wtbConf, err := pf.WorldToBase(config.WorldToBaseNodeName)
	if err != nil {
		return result, err
	}
	ikConf, err := pf.PlanarIK(config.PlanarIKNodeName)
	if err != nil {
		return result, err
	}
	if ikConf.BaseframeRigidBodiesTopic != wtbConf.PubTopic {
		logger.Warnw("planar IK node does not listen to the world-to-base output",
			"pub_topic", wtbConf.PubTopic, "baseframe_rigid_bodies_topic", ikConf.BaseframeRigidBodiesTopic)
	}

	result.BaseID = wtbConf.BaseID

	if result.Session, err = rec.StartSession(ctx, opts.Notes); err != nil {
		return result, err
	}

	bus := ros.NewBus(logger.Sublogger("bus"), ros.WithMinQueueDepth(len(frames)))
	defer bus.Close()

	wait, err := rec.Attach(ctx, bus,
		wtbConf.SubTopic, wtbConf.PubTopic, ikConf.EndEffectorPoseTopic, ikConf.ConfigurationTopic)
	if err != nil {
		return result, err
	}
	defer func() {
		// closing the bus lets the recorder drain what is queued
		bus.Close()
		err = multierr.Combine(err, wait())
	}()

	wtbNode, err := worldtobase.New(ctx, bus, wtbConf, logger.Sublogger("worldtobase"))
	if err != nil {
		return result, err
	}
	ikNode, err := planarik.New(ctx, bus, ikConf, logger.Sublogger("planarik"))
	if err != nil {
		return result, multierr.Combine(err, wtbNode.Close(ctx))
	}
	nodes := []services.Node{wtbNode, ikNode}
	defer func() {
		for _, n := range nodes {
			if closeErr := n.Close(ctx); closeErr != nil {
				err = multierr.Combine(err, errors.Wrapf(closeErr, "failed to close %s", n.Name()))
			}
		}
	}()

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)
	for _, frame := range frames {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}
		if err := bus.Publish(ctx, wtbConf.SubTopic, frame); err != nil {
			return result, err
		}
		result.Frames++
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	if err := waitQuiet(ctx, clk, bus, opts.Settle); err != nil {
		return result, err
	}
	_, result.BaseLatched = wtbNode.Base()
	result.Published = bus.Published()
	result.Dropped = bus.Dropped()
	if result.Dropped > 0 {
		logger.Warnw("samples were dropped from full queues", "dropped", result.Dropped)
	}
	logger.Infow("replay done", "session", result.Session.ID.String(), "frames", result.Frames, "published", result.Published)
	return result, nil
}

// waitQuiet returns once nothing was published on bus for settle, as measured by clk.
func waitQuiet(ctx context.Context, clk clock.Clock, bus *ros.Bus, settle time.Duration) error {
	if settle <= 0 {
		settle = defaultSettle
	}
	ticker := clk.Ticker(quietPoll)
	defer ticker.Stop()

	last := bus.Published()
	quietSince := clk.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if published := bus.Published(); published != last {
				last = published
				quietSince = now
				continue
			}
			if now.Sub(quietSince) >= settle {
				return nil
			}
		}
	}
}

// ReplayAction is the corresponding action for 'replay'.
func ReplayAction(c *cli.Context) error {
	logger, closeLogger := newLogger(c, "hsa.replay")
	defer func() {
		if err := closeLogger(); err != nil {
			logger.Warnw("failed to close log file", "error", err)
		}
	}()

	pf, err := config.ReadParameterFile(c.Path(replayFlagConfig))
	if err != nil {
		return err
	}
	topic := c.String(replayFlagTopic)
	if topic == "" {
		wtbConf, err := pf.WorldToBase(config.WorldToBaseNodeName)
		if err != nil {
			return err
		}
		topic = wtbConf.SubTopic
	}

	rb, err := ros.ReadBag(c.Path(replayFlagBag))
	if err != nil {
		return err
	}
	frames, err := ros.RigidBodyArraysFromBag(rb, topic)
	if err != nil {
		return err
	}
	logger.Infow("read bag", "topic", topic, "frames", len(frames))

	rec, err := recorder.Open(c.Context, c.Path(sessionFlagDB), logger.Sublogger("recorder"))
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Warnw("failed to close recording database", "error", err)
		}
	}()

	result, err := replayFrames(c.Context, logger, pf, rec, frames, replayOptions{
		Notes:  c.String(replayFlagNotes),
		Rate:   c.Float64(replayFlagRate),
		Settle: c.Duration(replayFlagSettle),
	})
	if err != nil {
		return err
	}
	if !result.BaseLatched {
		logger.Warnw("the robot base was never tracked, nothing was transformed", "base_id", result.BaseID)
	}
	printf(c.App.Writer, "recorded session %s: %d frames, %d messages, %d dropped",
		result.Session.ID, result.Frames, result.Published, result.Dropped)
	return nil
}
