// Package config reads ROS 2 parameter files and decodes the parameters of each hsa node.
package config

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/mstoelzle/ros2-hsa/utils"
)

const (
	// ParametersKey is the key nesting the parameters of a node in a ROS 2 parameter file.
	ParametersKey = "ros__parameters"
	// WildcardNode holds parameters applied to every node of the file.
	WildcardNode = "/**"
)

// ParameterFile is a parsed ROS 2 parameter file. The zero value holds no nodes.
type ParameterFile struct {
	Path  string
	nodes map[string]map[string]interface{}
}

// ReadParameterFile reads a parameter file from disk, substituting environment variables
// (e.g: ${MOCAP_BASE_ID}) before parsing.
func ReadParameterFile(filePath string) (*ParameterFile, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read parameter file %q", filePath)
	}

	return ParameterFileFromReader(filePath, bytes.NewReader(buf))
}

// ParameterFileFromReader reads a parameter file from the given reader and specifies where, if
// applicable, the file the reader originated from.
func ParameterFileFromReader(originalPath string, r io.Reader) (*ParameterFile, error) {
	var doc map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "failed to decode parameter file %q from yaml", originalPath)
	}

	pf := &ParameterFile{Path: originalPath, nodes: map[string]map[string]interface{}{}}
	var errs error
	for node, section := range doc {
		sectionMap, ok := section.(map[string]interface{})
		if !ok {
			errs = multierr.Append(errs, utils.NewConfigValidationError(node,
				errors.Errorf("expected a mapping but got %T", section)))
			continue
		}
		paramsRaw, ok := sectionMap[ParametersKey]
		if !ok {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(node, ParametersKey))
			continue
		}
		if paramsRaw == nil {
			paramsRaw = map[string]interface{}{}
		}
		params, ok := paramsRaw.(map[string]interface{})
		if !ok {
			errs = multierr.Append(errs, utils.NewConfigValidationError(node+"."+ParametersKey,
				errors.Errorf("expected a mapping but got %T", paramsRaw)))
			continue
		}
		pf.nodes[normalizeNodeName(node)] = params
	}
	if errs != nil {
		return nil, errs
	}

	return pf, nil
}

// normalizeNodeName strips the leading slash ROS allows on fully qualified node names in the
// root namespace, keeping the wildcard intact.
func normalizeNodeName(name string) string {
	if name == WildcardNode {
		return name
	}
	return strings.TrimPrefix(name, "/")
}

// Nodes returns the sorted names of the nodes configured in the file, excluding the wildcard.
func (pf *ParameterFile) Nodes() []string {
	names := make([]string, 0, len(pf.nodes))
	for name := range pf.nodes {
		if name != WildcardNode {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HasNode reports whether the file carries a section for the node.
func (pf *ParameterFile) HasNode(node string) bool {
	_, ok := pf.nodes[normalizeNodeName(node)]
	return ok
}

// Parameters returns a copy of the parameters of a node, with wildcard parameters merged in
// underneath the node's own.
func (pf *ParameterFile) Parameters(node string) map[string]interface{} {
	merged := map[string]interface{}{}
	for k, v := range pf.nodes[WildcardNode] {
		merged[k] = v
	}
	for k, v := range pf.nodes[normalizeNodeName(node)] {
		merged[k] = v
	}
	return merged
}

// decodeParameters decodes the parameters of node into out, which must be a pointer to a struct
// with json tags that already holds the node's defaults. Keys in the node's own section that out
// does not declare are an error; unused wildcard keys are not.
func (pf *ParameterFile) decodeParameters(node string, out interface{}) (*mapstructure.Metadata, error) {
	path := node + "." + ParametersKey
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   out,
		Metadata: &md,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(pf.Parameters(node)); err != nil {
		return nil, utils.NewConfigValidationError(path, err)
	}

	own := pf.nodes[normalizeNodeName(node)]
	var unknown []string
	for _, key := range md.Unused {
		if _, ok := own[key]; ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, utils.NewConfigValidationError(path, errors.Errorf("unknown parameters %q", unknown))
	}

	return &md, nil
}
