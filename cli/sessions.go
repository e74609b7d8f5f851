package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/mstoelzle/ros2-hsa/config"
	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/recorder"
	"github.com/mstoelzle/ros2-hsa/telemetry"
)

const histogramWidth = 40

// resolveSession parses id, or picks the latest session of rec when id is empty.
func resolveSession(ctx context.Context, rec *recorder.Recorder, id string) (recorder.Session, error) {
	sessions, err := rec.Sessions(ctx)
	if err != nil {
		return recorder.Session{}, err
	}
	if len(sessions) == 0 {
		return recorder.Session{}, errors.New("the database holds no sessions")
	}
	if id == "" {
		return sessions[len(sessions)-1], nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return recorder.Session{}, errors.Wrapf(err, "invalid session id %q", id)
	}
	for _, s := range sessions {
		if s.ID == parsed {
			return s, nil
		}
	}
	return recorder.Session{}, errors.Errorf("no session %s", id)
}

// withRecorder opens the database named by the db flag for the duration of fn.
func withRecorder(c *cli.Context, name string, fn func(logging.Logger, *recorder.Recorder) error) (err error) {
	logger, closeLogger := newLogger(c, name)
	defer func() {
		if err := closeLogger(); err != nil {
			logger.Warnw("failed to close log file", "error", err)
		}
	}()

	rec, err := recorder.Open(c.Context, c.Path(sessionFlagDB), logger.Sublogger("recorder"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rec.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(logger, rec)
}

func printSessions(ctx context.Context, w io.Writer, rec *recorder.Recorder) error {
	sessions, err := rec.Sessions(ctx)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Session", "Started", "Messages", "Notes"})
	for _, s := range sessions {
		t.AppendRow(table.Row{s.ID.String(), s.Started.Format(time.RFC3339), s.Messages, s.Notes})
	}
	t.Render()
	return nil
}

// ListSessionsAction is the corresponding action for 'sessions list'.
func ListSessionsAction(c *cli.Context) error {
	return withRecorder(c, "hsa.sessions", func(_ logging.Logger, rec *recorder.Recorder) error {
		return printSessions(c.Context, c.App.Writer, rec)
	})
}

// printSessionStats summarizes the controller trace of session, or, if no controller ran, lists the
// recorded topics.
func printSessionStats(ctx context.Context, w io.Writer, rec *recorder.Recorder, session recorder.Session, bins int) error {
	trace, err := rec.ControllerTrace(ctx, session.ID)
	if err != nil {
		return err
	}
	printf(w, "session %s started %s", session.ID, session.Started.Format(time.RFC3339))
	if len(trace) == 0 {
		topics, err := rec.Topics(ctx, session.ID)
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Topic", "Messages"})
		for topic, count := range topics {
			t.AppendRow(table.Row{topic, count})
		}
		t.SortBy([]table.SortBy{{Name: "Topic", Mode: table.Asc}})
		t.Render()
		return nil
	}

	for _, series := range []struct {
		name   string
		values []float64
	}{
		{"position error (m)", telemetry.PositionErrors(trace)},
		{"actuation optimality error", telemetry.ActuationOptimalityErrors(trace)},
	} {
		summary, err := telemetry.Summarize(series.values)
		if err != nil {
			return errors.Wrap(err, series.name)
		}
		printf(w, "%s: %s", series.name, summary)
		if err := telemetry.FprintHistogram(w, series.values, bins, histogramWidth); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// SessionStatsAction is the corresponding action for 'sessions stats'.
func SessionStatsAction(c *cli.Context) error {
	return withRecorder(c, "hsa.sessions", func(_ logging.Logger, rec *recorder.Recorder) error {
		session, err := resolveSession(c.Context, rec, c.String(sessionFlagSession))
		if err != nil {
			return err
		}
		return printSessionStats(c.Context, c.App.Writer, rec, session, c.Int(statsFlagBins))
	})
}

// plotSession plots the trajectories of session to out. A session with controller samples plots the
// measured against the desired end-effector pose; otherwise the poses recorded on topics are plotted.
func plotSession(
	ctx context.Context,
	logger logging.Logger,
	rec *recorder.Recorder,
	session recorder.Session,
	out string,
	topics []string,
) error {
	title := fmt.Sprintf("session %s", session.ID)
	trace, err := rec.ControllerTrace(ctx, session.ID)
	if err != nil {
		return err
	}
	if len(trace) > 0 && len(topics) == 0 {
		measured, desired := telemetry.TrajectoriesFromTrace(trace)
		return telemetry.PlotTrajectories(out, title, measured, desired)
	}

	if len(topics) == 0 {
		topics = []string{config.DefaultPlanarIK().EndEffectorPoseTopic, config.DefaultJoyControl().AttractorTopic}
	}
	var trajectories []telemetry.Trajectory
	for _, topic := range topics {
		recorded, err := rec.Messages(ctx, session.ID, topic)
		if err != nil {
			return err
		}
		traj := telemetry.TrajectoryFromMessages(topic, recorded)
		if traj.Len() == 0 {
			logger.Infow("nothing to plot on topic", "topic", topic)
			continue
		}
		trajectories = append(trajectories, traj)
	}
	if len(trajectories) == 0 {
		return errors.Errorf("session %s has no planar poses on %q", session.ID, topics)
	}
	return telemetry.PlotTrajectories(out, title, trajectories...)
}

// PlotSessionAction is the corresponding action for 'sessions plot'.
func PlotSessionAction(c *cli.Context) error {
	return withRecorder(c, "hsa.sessions", func(logger logging.Logger, rec *recorder.Recorder) error {
		session, err := resolveSession(c.Context, rec, c.String(sessionFlagSession))
		if err != nil {
			return err
		}
		out := c.Path(plotFlagOut)
		if err := plotSession(c.Context, logger, rec, session, out, c.StringSlice(plotFlagTopic)); err != nil {
			return err
		}
		printf(c.App.Writer, "wrote %s", out)
		return nil
	})
}
