package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/mstoelzle/ros2-hsa/ros/msgs"
)

const definitionSeparator = "================================================================================"

// FullDefinition returns the definition of typeName followed by the definitions of every message type
// it depends on, each introduced by a "MSG: <type>" line, in the layout ROS uses to embed message
// definitions in bags.
func FullDefinition(typeName string) (string, error) {
	text, err := msgs.Definition(typeName)
	if err != nil {
		return "", err
	}
	root, err := msgs.ParseDefinition(typeName)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(text, "\n") + "\n")
	seen := map[string]bool{root.FullName(): true}
	queue := root.Dependencies()
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if seen[dep] {
			continue
		}
		seen[dep] = true

		depText, err := msgs.Definition(dep)
		if err != nil {
			return "", errors.Wrapf(err, "dependency of %s", typeName)
		}
		spec, err := msgs.ParseDefinition(dep)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "%s\nMSG: %s\n%s\n", definitionSeparator, dep, strings.TrimRight(depText, "\n"))
		queue = append(queue, spec.Dependencies()...)
	}
	return sb.String(), nil
}

func printDefinedTypes(w io.Writer) error {
	names, err := msgs.DefinedTypes()
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Fields", "Depends on"})
	for _, name := range names {
		spec, err := msgs.ParseDefinition(name)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{name, len(spec.Fields), strings.Join(spec.Dependencies(), ", ")})
	}
	t.Render()
	return nil
}

// SchemaAction is the corresponding action for 'schema'.
func SchemaAction(c *cli.Context) error {
	switch c.NArg() {
	case 0:
		return printDefinedTypes(c.App.Writer)
	case 1:
		text, err := FullDefinition(c.Args().First())
		if err != nil {
			return err
		}
		fmt.Fprint(c.App.Writer, text)
		return nil
	default:
		return errors.New("expected at most one message type")
	}
}
