// Package cli contains the hsa command line tool: checking parameter files, replaying motion-capture
// bags through the HSA nodes and inspecting recorded sessions.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/mstoelzle/ros2-hsa/logging"
)

const (
	// Flags.
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	configFlagWatch = "watch"

	replayFlagConfig = "config"
	replayFlagBag    = "bag"
	replayFlagDB     = "db"
	replayFlagTopic  = "topic"
	replayFlagRate   = "rate"
	replayFlagNotes  = "notes"
	replayFlagSettle = "settle"

	bagFlagDestination = "destination"
	bagFlagTopics      = "topics"
	bagFlagStart       = "start"
	bagFlagEnd         = "end"

	sessionFlagDB      = "db"
	sessionFlagSession = "session"
	plotFlagOut        = "out"
	plotFlagTopic      = "topic"
	statsFlagBins      = "bins"
)

var dbFlag = &cli.PathFlag{
	Name:     sessionFlagDB,
	Required: true,
	Usage:    "recording database `FILE`",
}

var sessionFlag = &cli.StringFlag{
	Name:  sessionFlagSession,
	Usage: "session id, defaults to the latest session",
}

var app = &cli.App{
	Name:            "hsa",
	Usage:           "check, replay and inspect planar HSA robot data",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  generalFlagLogFile,
			Usage: "also write JSON logs to `FILE`, rotating it when it grows large",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "check-config",
			Usage:     "validate the node parameters of ROS 2 parameter files",
			ArgsUsage: "<file> [file...]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  configFlagWatch,
					Usage: "check again whenever a file changes",
				},
			},
			Action: CheckConfigAction,
		},
		{
			Name:      "param-schema",
			Usage:     "print the JSON schema of a node's parameters",
			ArgsUsage: "<node>",
			Action:    ParamSchemaAction,
		},
		{
			Name:      "schema",
			Usage:     "print message definitions",
			ArgsUsage: "[type]",
			Action:    SchemaAction,
		},
		{
			Name:  "replay",
			Usage: "run recorded motion-capture samples through the world-to-base and planar IK nodes",
			UsageText: fmt.Sprintf("hsa replay --%s <file> --%s <file> --%s <file> [other options]",
				replayFlagConfig, replayFlagBag, replayFlagDB),
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     replayFlagConfig,
					Required: true,
					Usage:    "parameter `FILE` configuring the nodes",
				},
				&cli.PathFlag{
					Name:     replayFlagBag,
					Required: true,
					Usage:    "ROS 1 bag `FILE` holding mocap_optitrack_interfaces/RigidBodyArray samples",
				},
				dbFlag,
				&cli.StringFlag{
					Name:  replayFlagTopic,
					Usage: "bag topic of the rigid bodies, defaults to the world-to-base sub_topic",
				},
				&cli.Float64Flag{
					Name:  replayFlagRate,
					Value: 200,
					Usage: "frames published per second, 0 publishes as fast as possible",
				},
				&cli.StringFlag{
					Name:  replayFlagNotes,
					Usage: "notes stored with the recording session",
				},
				&cli.DurationFlag{
					Name:  replayFlagSettle,
					Value: defaultSettle,
					Usage: "how long the bus has to be quiet before the replay is considered done",
				},
			},
			Action: ReplayAction,
		},
		{
			Name:  "bag-export",
			Usage: "export bag topics to JSON lines files",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     replayFlagBag,
					Required: true,
					Usage:    "bag `FILE` to export",
				},
				&cli.PathFlag{
					Name:  bagFlagDestination,
					Value: ".",
					Usage: "output directory",
				},
				&cli.StringSliceFlag{
					Name:  bagFlagTopics,
					Usage: "topics to export, defaults to all",
				},
				&cli.Int64Flag{
					Name:  bagFlagStart,
					Usage: "skip messages before this unix time in nanoseconds",
				},
				&cli.Int64Flag{
					Name:  bagFlagEnd,
					Usage: "skip messages after this unix time in nanoseconds",
				},
			},
			Action: BagExportAction,
		},
		{
			Name:            "sessions",
			Usage:           "work with recording sessions",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "list the sessions of a recording database",
					Flags:  []cli.Flag{dbFlag},
					Action: ListSessionsAction,
				},
				{
					Name:  "stats",
					Usage: "summarize the tracking and actuation errors of a session",
					Flags: []cli.Flag{
						dbFlag,
						sessionFlag,
						&cli.IntFlag{
							Name:  statsFlagBins,
							Value: 10,
							Usage: "histogram buckets",
						},
					},
					Action: SessionStatsAction,
				},
				{
					Name:  "plot",
					Usage: "plot the end-effector trajectories of a session",
					Flags: []cli.Flag{
						dbFlag,
						sessionFlag,
						&cli.PathFlag{
							Name:     plotFlagOut,
							Required: true,
							Usage:    "image `FILE`, the format follows the extension (png, svg, pdf)",
						},
						&cli.StringSliceFlag{
							Name:  plotFlagTopic,
							Usage: "topics to plot, defaults to the end-effector pose and the attractor",
						},
					},
					Action: PlotSessionAction,
				},
			},
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// newLogger returns the logger of a command. The returned function closes the log file, if any.
func newLogger(c *cli.Context, name string) (logging.Logger, func() error) {
	var logger logging.Logger
	if c.Bool(generalFlagDebug) {
		logger = logging.NewDebugLogger(name)
	} else {
		logger = logging.NewLogger(name)
	}
	logFile := c.Path(generalFlagLogFile)
	if logFile == "" {
		return logger, func() error { return nil }
	}
	appender := logging.NewFileAppender(logFile)
	logger.AddAppender(appender)
	return logger, appender.Close
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, format+"\n", a...)
}
