package config

import (
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/num/quat"

	"github.com/mstoelzle/ros2-hsa/spatialmath"
	"github.com/mstoelzle/ros2-hsa/utils"
)

// WorldToBaseNodeName is the node namespace keying the world-to-base calibration.
const WorldToBaseNodeName = "world_to_base"

var worldToBaseRequired = []string{
	"base_qx", "base_qy", "base_qz", "base_qw",
	"initial_offset_x", "initial_offset_y", "initial_offset_z",
	"base_id", "sub_topic", "pub_topic",
}

// WorldToBase is the calibration of the robot base frame against the motion-capture world frame.
// It is read once at startup and never changes afterwards.
type WorldToBase struct {
	// Unit quaternion orienting the robot base frame relative to the motion-capture world frame.
	BaseQX float64 `json:"base_qx"`
	BaseQY float64 `json:"base_qy"`
	BaseQZ float64 `json:"base_qz"`
	BaseQW float64 `json:"base_qw"`

	// Offset in meters of the tracked rigid body's frame relative to the true robot base frame.
	InitialOffsetX float64 `json:"initial_offset_x"`
	InitialOffsetY float64 `json:"initial_offset_y"`
	InitialOffsetZ float64 `json:"initial_offset_z"`

	// BaseID is the motion-capture rigid body ID of the robot base.
	BaseID int `json:"base_id"`

	SubTopic string `json:"sub_topic"`
	PubTopic string `json:"pub_topic"`
}

// ReadWorldToBase reads and validates the world-to-base calibration from a parameter file.
func ReadWorldToBase(filePath string) (*WorldToBase, error) {
	pf, err := ReadParameterFile(filePath)
	if err != nil {
		return nil, err
	}
	return pf.WorldToBase(WorldToBaseNodeName)
}

// WorldToBaseFromReader reads and validates the world-to-base calibration from a reader.
func WorldToBaseFromReader(originalPath string, r io.Reader) (*WorldToBase, error) {
	pf, err := ParameterFileFromReader(originalPath, r)
	if err != nil {
		return nil, err
	}
	return pf.WorldToBase(WorldToBaseNodeName)
}

// WorldToBase decodes and validates the calibration of the given node. Every field is required.
func (pf *ParameterFile) WorldToBase(node string) (*WorldToBase, error) {
	path := node + "." + ParametersKey
	if !pf.HasNode(node) {
		return nil, errors.Errorf("parameter file %q has no %q node", pf.Path, node)
	}

	params := pf.Parameters(node)
	var errs error
	for _, field := range worldToBaseRequired {
		if v, ok := params[field]; !ok || v == nil {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, field))
		}
	}
	if errs != nil {
		return nil, errs
	}
	if !isIntegral(params["base_id"]) {
		return nil, utils.NewConfigValidationError(path,
			errors.Errorf("%q must be an integer but got %v", "base_id", params["base_id"]))
	}

	var conf WorldToBase
	if _, err := pf.decodeParameters(node, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(path); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate ensures the calibration is physically meaningful.
func (conf *WorldToBase) Validate(path string) error {
	var errs error
	if !utils.IsFinite(conf.BaseQX, conf.BaseQY, conf.BaseQZ, conf.BaseQW) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("base quaternion must be finite")))
	} else if norm := spatialmath.QuatNorm(conf.rawOrientation()); math.Abs(norm-1) > spatialmath.UnitQuaternionTolerance {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("base quaternion must have unit norm but has norm %v", norm)))
	}
	if !utils.IsFinite(conf.InitialOffsetX, conf.InitialOffsetY, conf.InitialOffsetZ) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("initial offset must be finite")))
	}
	if conf.BaseID < 0 || conf.BaseID > math.MaxInt32 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("%q must be within [0, %d] but is %d", "base_id", math.MaxInt32, conf.BaseID)))
	}
	if err := ValidateTopicName(conf.SubTopic); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, "sub_topic"), err))
	}
	if err := ValidateTopicName(conf.PubTopic); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, "pub_topic"), err))
	}
	if errs == nil && conf.SubTopic == conf.PubTopic {
		errs = utils.NewConfigValidationError(path,
			errors.Errorf("sub_topic and pub_topic must differ but both are %q", conf.SubTopic))
	}
	return errs
}

func (conf *WorldToBase) rawOrientation() quat.Number {
	return spatialmath.NewQuaternion(conf.BaseQX, conf.BaseQY, conf.BaseQZ, conf.BaseQW)
}

// BaseOrientation returns the base frame orientation, renormalized to remove the rounding left in
// the calibration file.
func (conf *WorldToBase) BaseOrientation() quat.Number {
	q, err := spatialmath.Normalize(conf.rawOrientation())
	if err != nil {
		// Validate rejects calibrations this far from unit norm.
		return quat.Number{Real: 1}
	}
	return q
}

// QuaternionNorm returns the norm of the calibration quaternion as written in the file.
func (conf *WorldToBase) QuaternionNorm() float64 {
	return spatialmath.QuatNorm(conf.rawOrientation())
}

// InitialOffset returns the offset of the tracked rigid body frame relative to the base frame, in meters.
func (conf *WorldToBase) InitialOffset() r3.Vector {
	return r3.Vector{X: conf.InitialOffsetX, Y: conf.InitialOffsetY, Z: conf.InitialOffsetZ}
}

func isIntegral(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
