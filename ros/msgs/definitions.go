package msgs

import (
	"embed"
	"path"
	"sort"

	"github.com/pkg/errors"

	"github.com/mstoelzle/ros2-hsa/ros/msgdef"
)

//go:embed definitions
var definitions embed.FS

// Definition returns the .msg text declaring the named type. Both "pkg/Name" and "pkg/msg/Name"
// are accepted.
func Definition(typeName string) (string, error) {
	pkg, name, err := msgdef.SplitTypeName(typeName)
	if err != nil {
		return "", err
	}
	data, err := definitions.ReadFile(path.Join("definitions", pkg, name+".msg"))
	if err != nil {
		return "", errors.Errorf("no definition for message type %q", typeName)
	}
	return string(data), nil
}

// ParseDefinition returns the parsed definition of the named type.
func ParseDefinition(typeName string) (*msgdef.Spec, error) {
	text, err := Definition(typeName)
	if err != nil {
		return nil, err
	}
	return msgdef.Parse(typeName, text)
}

// DefinedTypes returns the sorted "pkg/Name" names of every embedded definition.
func DefinedTypes() ([]string, error) {
	pkgs, err := definitions.ReadDir("definitions")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, pkg := range pkgs {
		files, err := definitions.ReadDir(path.Join("definitions", pkg.Name()))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if ext := path.Ext(f.Name()); ext == ".msg" {
				names = append(names, pkg.Name()+"/"+f.Name()[:len(f.Name())-len(ext)])
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
