package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/invopop/jsonschema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/mstoelzle/ros2-hsa/config"
	"github.com/mstoelzle/ros2-hsa/logging"
)

// ErrConfigInvalid is returned when a checked parameter file has invalid node parameters.
var ErrConfigInvalid = errors.New("invalid node parameters")

const watchDebounce = 200 * time.Millisecond

var (
	statusOK   = color.New(color.FgGreen, color.Bold).SprintFunc()
	statusFail = color.New(color.FgRed, color.Bold).SprintFunc()
	statusSkip = color.New(color.FgYellow).SprintFunc()
)

// nodeCheck is the outcome of decoding and validating the parameters of one node.
type nodeCheck struct {
	Node    string
	Summary string
	Err     error
	Skipped bool
}

// checkParameterFile checks every hsa node configured in the parameter file at path.
func checkParameterFile(path string) ([]nodeCheck, error) {
	pf, err := config.ReadParameterFile(path)
	if err != nil {
		return nil, err
	}
	return lo.Map(pf.Nodes(), func(node string, _ int) nodeCheck {
		return checkNode(pf, node)
	}), nil
}

func checkNode(pf *config.ParameterFile, node string) nodeCheck {
	check := nodeCheck{Node: node}
	switch node {
	case config.WorldToBaseNodeName:
		conf, err := pf.WorldToBase(node)
		if err != nil {
			check.Err = err
			break
		}
		check.Summary = fmt.Sprintf("base_id=%d |q|=%.6f %s -> %s",
			conf.BaseID, conf.QuaternionNorm(), conf.SubTopic, conf.PubTopic)
	case config.PlanarIKNodeName:
		conf, err := pf.PlanarIK(node)
		if err != nil {
			check.Err = err
			break
		}
		check.Summary = fmt.Sprintf("platform=%d material=%s %s -> %s",
			conf.MocapPlatformID, conf.HSAMaterial, conf.BaseframeRigidBodiesTopic, conf.EndEffectorPoseTopic)
	case config.JoyControlNodeName:
		conf, err := pf.JoyControl(node)
		if err != nil {
			check.Err = err
			break
		}
		check.Summary = fmt.Sprintf("delta=%g inverted=%t %s -> %s",
			conf.CartesianDelta, conf.InvertJoySignals, conf.JoySignalTopic, conf.AttractorTopic)
	default:
		check.Skipped = true
		check.Summary = "not an hsa node"
	}
	return check
}

// printChecks renders the checks of a file as a table and reports whether all of them passed.
func printChecks(w io.Writer, path string, checks []nodeCheck) bool {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(path)
	t.AppendHeader(table.Row{"Node", "Status", "Details"})
	ok := true
	for _, check := range checks {
		switch {
		case check.Err != nil:
			ok = false
			t.AppendRow(table.Row{check.Node, statusFail("FAIL"), check.Err.Error()})
		case check.Skipped:
			t.AppendRow(table.Row{check.Node, statusSkip("SKIP"), check.Summary})
		default:
			t.AppendRow(table.Row{check.Node, statusOK("OK"), check.Summary})
		}
	}
	t.Render()
	return ok
}

// checkFiles checks and prints every file, returning ErrConfigInvalid if any of them is invalid.
func checkFiles(w io.Writer, paths []string) error {
	valid := true
	for _, path := range paths {
		checks, err := checkParameterFile(path)
		if err != nil {
			valid = false
			fmt.Fprintf(w, "%s %s: %v\n", statusFail("FAIL"), path, err)
			continue
		}
		if !printChecks(w, path, checks) {
			valid = false
		}
	}
	if !valid {
		return ErrConfigInvalid
	}
	return nil
}

// CheckConfigAction is the corresponding action for 'check-config'.
func CheckConfigAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no parameter file given")
	}
	paths := c.Args().Slice()
	err := checkFiles(c.App.Writer, paths)
	if !c.Bool(configFlagWatch) {
		return err
	}

	logger, closeLogger := newLogger(c, "hsa.check-config")
	defer func() {
		if err := closeLogger(); err != nil {
			logger.Warnw("failed to close log file", "error", err)
		}
	}()
	return watchFiles(c.Context, logger, paths, func() {
		if err := checkFiles(c.App.Writer, paths); err != nil {
			logger.Debugw("parameter file still invalid", "error", err)
		}
	})
}

// watchFiles calls onChange after any of paths was written, created or renamed, until ctx is done.
// Bursts of events, as editors produce when saving, result in a single call. The parent directories
// are watched as editors often replace files instead of writing them in place.
func watchFiles(ctx context.Context, logger logging.Logger, paths []string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnw("failed to close file watcher", "error", err)
		}
	}()

	watched := map[string]bool{}
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return errors.Wrapf(err, "cannot watch %q", path)
		}
	}
	debounced := debounce.New(watchDebounce)

	logger.Infow("watching parameter files", "files", paths)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[event.Name] || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.Debugw("parameter file changed", "file", event.Name, "op", event.Op.String())
			debounced(onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("file watcher error", "error", err)
		}
	}
}

// ParameterSchema returns the JSON schema of the parameters of an hsa node.
func ParameterSchema(node string) (*jsonschema.Schema, error) {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	switch node {
	case config.WorldToBaseNodeName:
		return r.Reflect(&config.WorldToBase{}), nil
	case config.PlanarIKNodeName:
		return r.Reflect(&config.PlanarIK{}), nil
	case config.JoyControlNodeName:
		return r.Reflect(&config.JoyControl{}), nil
	default:
		return nil, errors.Errorf("unknown node %q, expected one of %q", node, []string{
			config.WorldToBaseNodeName, config.PlanarIKNodeName, config.JoyControlNodeName,
		})
	}
}

// ParamSchemaAction is the corresponding action for 'param-schema'.
func ParamSchemaAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one node name")
	}
	schema, err := ParameterSchema(c.Args().First())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}
