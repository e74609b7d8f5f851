// Package recorder stores the messages exchanged by the HSA nodes in a SQLite database, grouped into
// recording sessions, and reads them back for analysis.
package recorder

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	// registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/cdr"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
)

// ErrNoSession is returned when recording before a session was started.
var ErrNoSession = errors.New("no recording session started")

// Session is a single recording run.
type Session struct {
	ID       uuid.UUID
	Started  time.Time
	Notes    string
	// Messages is the number of messages recorded in the session.
	Messages int
}

// Message is a recorded message decoded back into its type.
type Message struct {
	ID       int64
	Topic    string
	TypeName string
	// Header is the header of stamped messages, and zero otherwise.
	Header   msgs.Header
	Received time.Time
	Msg      cdr.Message
}

// ControllerRow is the part of a PlanarSetpointControllerInfo sample kept in a queryable form.
type ControllerRow struct {
	Stamp                    time.Time
	Chiee                    msgs.Pose2D
	ChieeDes                 msgs.Pose2D
	// Setpoint is the desired end-effector pose of the setpoint the controller was tracking.
	Setpoint                 msgs.Pose2D
	ActuationOptimalityError float64
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the clock used for session start and receive times.
func WithClock(clk clock.Clock) Option {
	return func(r *Recorder) {
		r.clock = clk
	}
}

// Recorder writes messages to a SQLite database.
type Recorder struct {
	db     *sql.DB
	clock  clock.Clock
	logger logging.Logger

	mu      sync.Mutex
	session uuid.UUID
}

// Open opens or creates the database at path and migrates it to the latest schema.
func Open(ctx context.Context, path string, logger logging.Logger, opts ...Option) (*Recorder, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %q", path)
	}
	// a single connection serializes writers, which SQLite requires anyway
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "failed to open database %q", path), db.Close())
	}

	r := &Recorder{
		db:     db,
		clock:  clock.New(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.MigrateUp(); err != nil {
		return nil, multierr.Combine(err, db.Close())
	}
	return r, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// StartSession starts a new session that later messages are recorded into.
func (r *Recorder) StartSession(ctx context.Context, notes string) (Session, error) {
	s := Session{ID: uuid.New(), Started: r.clock.Now().UTC(), Notes: notes}
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (session_id, started_ns, notes) VALUES (?, ?, ?)",
		s.ID.String(), s.Started.UnixNano(), s.Notes,
	); err != nil {
		return Session{}, errors.Wrap(err, "failed to start session")
	}

	r.mu.Lock()
	r.session = s.ID
	r.mu.Unlock()
	r.logger.Infow("started recording session", "session", s.ID.String())
	return s, nil
}

// CurrentSession returns the session messages are recorded into.
func (r *Recorder) CurrentSession() (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.session != uuid.Nil
}

// Sessions returns every session, oldest first.
func (r *Recorder) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.session_id, s.started_ns, s.notes, COUNT(m.message_id)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_ns, s.session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s         Session
			id        string
			startedNs int64
		)
		if err := rows.Scan(&id, &startedNs, &s.Notes, &s.Messages); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "invalid session id %q", id)
		}
		s.Started = time.Unix(0, startedNs).UTC()
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Record stores msg as published on topic, received now.
func (r *Recorder) Record(ctx context.Context, topic string, msg cdr.Message) error {
	return r.record(ctx, topic, msg, cdr.Marshal(msg), r.clock.Now())
}

// RecordSample stores a sample taken off the bus.
func (r *Recorder) RecordSample(ctx context.Context, sample ros.Sample) error {
	msg, err := msgs.Decode(sample.TypeName, sample.Data)
	if err != nil {
		return errors.Wrapf(err, "cannot record sample on %q", sample.Topic)
	}
	received := sample.Received
	if received.IsZero() {
		received = r.clock.Now()
	}
	return r.record(ctx, sample.Topic, msg, sample.Data, received)
}

func (r *Recorder) record(ctx context.Context, topic string, msg cdr.Message, payload []byte, received time.Time) (err error) {
	session, ok := r.CurrentSession()
	if !ok {
		return ErrNoSession
	}

	var stampSec, stampNanosec, frameID interface{}
	header, stamped := msgs.HeaderOf(msg)
	if stamped {
		stampSec, stampNanosec, frameID = header.Stamp.Sec, header.Stamp.Nanosec, header.FrameID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, tx.Rollback())
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, topic, type_name, stamp_sec, stamp_nanosec, frame_id, received_ns, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.String(), topic, msg.TypeName(), stampSec, stampNanosec, frameID, received.UnixNano(), payload,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record message on %q", topic)
	}

	if info, ok := msg.(*msgs.PlanarSetpointControllerInfo); ok {
		messageID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertControllerInfo(ctx, tx, session, messageID, info); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertControllerInfo(ctx context.Context, tx *sql.Tx, session uuid.UUID, messageID int64, info *msgs.PlanarSetpointControllerInfo) error {
	chiee, chieeDes, setpoint := info.Chiee.Pose, info.ChieeDes.Pose, info.PlanarSetpoint.ChieeDes
	_, err := tx.ExecContext(ctx, `
		INSERT INTO controller_info (
			message_id, session_id, stamp_ns,
			chiee_x, chiee_y, chiee_theta,
			chiee_des_x, chiee_des_y, chiee_des_theta,
			setpoint_x, setpoint_y, setpoint_theta,
			actuation_optimality_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		messageID, session.String(), info.Header.Stamp.Go().UnixNano(),
		chiee.X, chiee.Y, chiee.Theta,
		chieeDes.X, chieeDes.Y, chieeDes.Theta,
		setpoint.X, setpoint.Y, setpoint.Theta,
		info.ActuationOptimalityError,
	)
	return errors.Wrap(err, "failed to record controller info")
}

// Messages returns the messages recorded on topic during session, in the order they were recorded.
func (r *Recorder) Messages(ctx context.Context, session uuid.UUID, topic string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, type_name, stamp_sec, stamp_nanosec, frame_id, received_ns, payload
		FROM messages WHERE session_id = ? AND topic = ?
		ORDER BY message_id`,
		session.String(), topic,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m            = Message{Topic: topic}
			stampSec     sql.NullInt32
			stampNanosec sql.NullInt64
			frameID      sql.NullString
			receivedNs   int64
			payload      []byte
		)
		if err := rows.Scan(&m.ID, &m.TypeName, &stampSec, &stampNanosec, &frameID, &receivedNs, &payload); err != nil {
			return nil, err
		}
		m.Header = msgs.Header{
			Stamp:   msgs.Time{Sec: stampSec.Int32, Nanosec: uint32(stampNanosec.Int64)},
			FrameID: frameID.String,
		}
		m.Received = time.Unix(0, receivedNs).UTC()
		if m.Msg, err = msgs.Decode(m.TypeName, payload); err != nil {
			return nil, errors.Wrapf(err, "corrupt message %d", m.ID)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Topics returns the topics recorded during session with their message counts.
func (r *Recorder) Topics(ctx context.Context, session uuid.UUID) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT topic, COUNT(*) FROM messages WHERE session_id = ? GROUP BY topic", session.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := map[string]int{}
	for rows.Next() {
		var (
			topic string
			count int
		)
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, err
		}
		topics[topic] = count
	}
	return topics, rows.Err()
}

// ControllerTrace returns the controller samples of session in stamp order.
func (r *Recorder) ControllerTrace(ctx context.Context, session uuid.UUID) ([]ControllerRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stamp_ns,
			chiee_x, chiee_y, chiee_theta,
			chiee_des_x, chiee_des_y, chiee_des_theta,
			setpoint_x, setpoint_y, setpoint_theta,
			actuation_optimality_error
		FROM controller_info WHERE session_id = ?
		ORDER BY stamp_ns, message_id`,
		session.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trace []ControllerRow
	for rows.Next() {
		var (
			row     ControllerRow
			stampNs int64
		)
		// SQLite stores NaN as NULL
		values := make([]sql.NullFloat64, 10)
		dest := []interface{}{&stampNs}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, v := range []*float64{
			&row.Chiee.X, &row.Chiee.Y, &row.Chiee.Theta,
			&row.ChieeDes.X, &row.ChieeDes.Y, &row.ChieeDes.Theta,
			&row.Setpoint.X, &row.Setpoint.Y, &row.Setpoint.Theta,
			&row.ActuationOptimalityError,
		} {
			*v = math.NaN()
			if values[i].Valid {
				*v = values[i].Float64
			}
		}
		row.Stamp = time.Unix(0, stampNs).UTC()
		trace = append(trace, row)
	}
	return trace, rows.Err()
}

// Attach records every sample published on topics until ctx is done or the bus is closed. The
// subscriptions are in place when Attach returns; the returned function waits for recording to stop
// and returns the first subscription error. Samples that cannot be recorded are logged and skipped.
func (r *Recorder) Attach(ctx context.Context, bus *ros.Bus, topics ...string) (wait func() error, err error) {
	subs := make([]*ros.Subscription, 0, len(topics))
	for _, topic := range topics {
		sub, err := bus.Subscribe(topic, ros.DefaultQueueDepth)
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			defer sub.Close()
			for {
				sample, err := sub.Next(gctx)
				switch {
				case errors.Is(err, ros.ErrSubscriptionClosed):
					return nil
				case err != nil:
					if ctx.Err() != nil {
						// the caller is done recording
						return nil
					}
					return err
				}
				if err := r.RecordSample(gctx, sample); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					r.logger.Warnw("failed to record sample, skipping it", "topic", sample.Topic, "error", err)
				}
			}
		})
	}
	return g.Wait, nil
}
