package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/mstoelzle/ros2-hsa/utils"
)

const (
	// PlanarIKNodeName is the node name of the planar inverse kinematics node.
	PlanarIKNodeName = "planar_cs_ik_node"
	// JoyControlNodeName is the node name of the cartesian joystick control node.
	JoyControlNodeName = "planar_hsa_cartesian_joy_control_node"
)

// HSA materials with known control parameters.
const (
	MaterialFPU = "fpu"
	MaterialEPU = "epu"
)

// PlanarIK holds the parameters of the planar inverse kinematics node.
type PlanarIK struct {
	BaseframeRigidBodiesTopic string `json:"baseframe_rigid_bodies_topic"`
	MocapPlatformID           int    `json:"mocap_platform_id"`
	EndEffectorPoseTopic      string `json:"end_effector_pose_topic"`
	ConfigurationTopic        string `json:"configuration_topic"`

	HSAMaterial string    `json:"hsa_material"`
	// rest strains
	KappaBEq    float64   `json:"kappa_b_eq"`
	SigmaShEq   float64   `json:"sigma_sh_eq"`
	SigmaAEq    []float64 `json:"sigma_a_eq"`
	// pose offset of the end-effector relative to the top surface of the platform
	ChieeOff    []float64 `json:"chiee_off"`
}

// DefaultPlanarIK returns the parameters the node uses when none are configured.
func DefaultPlanarIK() PlanarIK {
	return PlanarIK{
		BaseframeRigidBodiesTopic: "baseframe_rigid_bodies",
		MocapPlatformID:           4,
		EndEffectorPoseTopic:      "end_effector_pose",
		ConfigurationTopic:        "configuration",
		HSAMaterial:               MaterialFPU,
		KappaBEq:                  0,
		SigmaShEq:                 0,
		SigmaAEq:                  []float64{1, 1},
		ChieeOff:                  []float64{0, 0, 0},
	}
}

// PlanarIK decodes the parameters of the planar inverse kinematics node on top of its defaults.
// A missing node section yields the defaults.
func (pf *ParameterFile) PlanarIK(node string) (*PlanarIK, error) {
	conf := DefaultPlanarIK()
	// slices are replaced, not merged into
	conf.SigmaAEq = nil
	conf.ChieeOff = nil
	if _, err := pf.decodeParameters(node, &conf); err != nil {
		return nil, err
	}
	defaults := DefaultPlanarIK()
	if conf.SigmaAEq == nil {
		conf.SigmaAEq = defaults.SigmaAEq
	}
	if conf.ChieeOff == nil {
		conf.ChieeOff = defaults.ChieeOff
	}
	if err := conf.Validate(node + "." + ParametersKey); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate ensures all parts of the config are valid.
func (conf *PlanarIK) Validate(path string) error {
	var errs error
	for field, topic := range map[string]string{
		"baseframe_rigid_bodies_topic": conf.BaseframeRigidBodiesTopic,
		"end_effector_pose_topic":      conf.EndEffectorPoseTopic,
		"configuration_topic":          conf.ConfigurationTopic,
	} {
		if err := ValidateTopicName(topic); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, field), err))
		}
	}
	if conf.MocapPlatformID < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("%q must not be negative", "mocap_platform_id")))
	}
	if conf.HSAMaterial != MaterialFPU && conf.HSAMaterial != MaterialEPU {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("unknown HSA material: %q", conf.HSAMaterial)))
	}
	if len(conf.SigmaAEq) != 2 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("%q must hold one axial rest strain per rod (2) but has %d", "sigma_a_eq", len(conf.SigmaAEq))))
	}
	if len(conf.ChieeOff) != 3 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("%q must be a planar pose (x, y, theta) but has %d entries", "chiee_off", len(conf.ChieeOff))))
	}
	values := append([]float64{conf.KappaBEq, conf.SigmaShEq}, conf.SigmaAEq...)
	values = append(values, conf.ChieeOff...)
	if !utils.IsFinite(values...) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("rest strains and offsets must be finite")))
	}
	return errs
}

// JoyControl holds the parameters of the cartesian joystick control node. CartesianDelta is the
// change of the attractor position per joystick sample in meters. InvertJoySignals is set when the
// robot is mounted platform-down, which inverts its coordinates.
type JoyControl struct {
	CartesianDelta   float64 `json:"cartesian_delta"`
	AttractorTopic   string  `json:"attractor_topic"`
	InvertJoySignals bool    `json:"invert_joy_signals"`
	PeeY0            float64 `json:"pee_y0"`
	JoySignalTopic   string  `json:"joy_signal_topic"`
}

// DefaultJoyControl returns the parameters the node uses when none are configured.
func DefaultJoyControl() JoyControl {
	return JoyControl{
		CartesianDelta:   1e-4,
		AttractorTopic:   "attractor",
		InvertJoySignals: true,
		PeeY0:            0,
		JoySignalTopic:   "joy_signal",
	}
}

// JoyControl decodes the parameters of the joystick control node on top of its defaults.
func (pf *ParameterFile) JoyControl(node string) (*JoyControl, error) {
	conf := DefaultJoyControl()
	if _, err := pf.decodeParameters(node, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(node + "." + ParametersKey); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate ensures all parts of the config are valid.
func (conf *JoyControl) Validate(path string) error {
	var errs error
	if !utils.IsFinite(conf.CartesianDelta, conf.PeeY0) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("cartesian_delta and pee_y0 must be finite")))
	} else if conf.CartesianDelta <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("%q must be positive but is %v", "cartesian_delta", conf.CartesianDelta)))
	}
	if err := ValidateTopicName(conf.AttractorTopic); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".attractor_topic", err))
	}
	if err := ValidateTopicName(conf.JoySignalTopic); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".joy_signal_topic", err))
	}
	return errs
}
