package config

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/mstoelzle/ros2-hsa/spatialmath"
)

const exampleWorldToBase = `
world_to_base:
  ros__parameters:
    base_qx: -0.7071068
    base_qy: 0.0
    base_qz: 0.0
    base_qw: 0.7071068
    initial_offset_x: 0.01
    initial_offset_y: -0.02
    initial_offset_z: 0.03
    base_id: 3
    sub_topic: "mocap_rigid_bodies"
    pub_topic: "baseframe_rigid_bodies"
`

func TestReadWorldToBaseExample(t *testing.T) {
	conf, err := ReadWorldToBase(filepath.Join("testdata", "world_to_base.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.QuaternionNorm(), test.ShouldAlmostEqual, 1.0, 1e-6)
	test.That(t, conf.SubTopic, test.ShouldEqual, "mocap_rigid_bodies")
	test.That(t, conf.PubTopic, test.ShouldEqual, "baseframe_rigid_bodies")
	test.That(t, conf.BaseID, test.ShouldEqual, 3)
	test.That(t, conf.BaseQX, test.ShouldEqual, -0.7071068)
	test.That(t, conf.BaseQW, test.ShouldEqual, 0.7071068)
	test.That(t, conf.InitialOffset(), test.ShouldResemble, r3.Vector{})

	q := conf.BaseOrientation()
	test.That(t, spatialmath.QuatNorm(q), test.ShouldAlmostEqual, 1.0, 1e-12)
	test.That(t, q.Real, test.ShouldAlmostEqual, math.Sqrt2/2)
	test.That(t, q.Imag, test.ShouldAlmostEqual, -math.Sqrt2/2)
}

func TestWorldToBaseFromReader(t *testing.T) {
	conf, err := WorldToBaseFromReader("somepath", strings.NewReader(exampleWorldToBase))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &WorldToBase{
		BaseQX:         -0.7071068,
		BaseQW:         0.7071068,
		InitialOffsetX: 0.01,
		InitialOffsetY: -0.02,
		InitialOffsetZ: 0.03,
		BaseID:         3,
		SubTopic:       "mocap_rigid_bodies",
		PubTopic:       "baseframe_rigid_bodies",
	})
	test.That(t, conf.InitialOffset(), test.ShouldResemble, r3.Vector{X: 0.01, Y: -0.02, Z: 0.03})
}

func TestWorldToBaseRejects(t *testing.T) {
	replace := func(old, replacement string) string {
		return strings.Replace(exampleWorldToBase, old, replacement, 1)
	}

	for _, tc := range []struct {
		name   string
		doc    string
		errStr []string
	}{
		{"empty", "", []string{"EOF"}},
		{"not yaml", "world_to_base: [", []string{"yaml"}},
		{"no node", "other:\n  ros__parameters: {}\n", []string{`no "world_to_base" node`}},
		{"no parameters", "world_to_base:\n  foo: 1\n", []string{`"ros__parameters" is required`}},
		{"missing base_id", replace("    base_id: 3\n", ""), []string{`"base_id" is required`}},
		{
			"missing several",
			exampleWorldToBase[:strings.Index(exampleWorldToBase, "    base_qw")],
			[]string{`"base_qw" is required`, `"sub_topic" is required`, `"pub_topic" is required`},
		},
		{"empty value", replace("initial_offset_x: 0.01", "initial_offset_x:"), []string{`"initial_offset_x" is required`}},
		{"null value", replace("base_qy: 0.0", "base_qy: ~"), []string{`"base_qy" is required`}},
		{"non unit quaternion", replace("base_qw: 0.7071068", "base_qw: 0.8"), []string{"unit norm"}},
		{
			"zero quaternion",
			strings.NewReplacer("base_qx: -0.7071068", "base_qx: 0.0", "base_qw: 0.7071068", "base_qw: 0.0").Replace(exampleWorldToBase),
			[]string{"unit norm"},
		},
		{"nan offset", replace("initial_offset_y: -0.02", "initial_offset_y: .nan"), []string{"finite"}},
		{"negative base_id", replace("base_id: 3", "base_id: -1"), []string{`"base_id" must be within`}},
		{"huge base_id", replace("base_id: 3", "base_id: 4294967296"), []string{`"base_id" must be within`}},
		{"fractional base_id", replace("base_id: 3", "base_id: 3.5"), []string{`"base_id" must be an integer`}},
		{"string base_id", replace("base_id: 3", `base_id: "three"`), []string{`"base_id" must be an integer`}},
		{"empty topic", replace(`sub_topic: "mocap_rigid_bodies"`, `sub_topic: ""`), []string{"sub_topic", "must not be empty"}},
		{"bad topic", replace(`pub_topic: "baseframe_rigid_bodies"`, `pub_topic: "2fast"`), []string{"pub_topic", "invalid token"}},
		{"same topics", replace(`pub_topic: "baseframe_rigid_bodies"`, `pub_topic: "mocap_rigid_bodies"`), []string{"must differ"}},
		{"unknown key", replace("base_id: 3", "base_id: 3\n    base_name: platform"), []string{"unknown parameters", "base_name"}},
		{"wrong type", replace(`sub_topic: "mocap_rigid_bodies"`, "sub_topic: [a, b]"), []string{"sub_topic"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := WorldToBaseFromReader("somepath", strings.NewReader(tc.doc))
			test.That(t, err, test.ShouldNotBeNil)
			for _, s := range tc.errStr {
				test.That(t, err.Error(), test.ShouldContainSubstring, s)
			}
		})
	}
}

func TestParameterFile(t *testing.T) {
	t.Setenv("MOCAP_BASE_ID", "7")
	pf, err := ReadParameterFile(filepath.Join("testdata", "hsa_planar.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pf.Nodes(), test.ShouldResemble, []string{
		PlanarIKNodeName, JoyControlNodeName, WorldToBaseNodeName,
	})
	test.That(t, pf.HasNode("/world_to_base"), test.ShouldBeTrue)
	test.That(t, pf.HasNode("planar_sim_node"), test.ShouldBeFalse)

	params := pf.Parameters(WorldToBaseNodeName)
	test.That(t, params["use_sim_time"], test.ShouldEqual, false)
	test.That(t, params["base_id"], test.ShouldEqual, 7)

	// wildcard keys a node does not declare are not errors
	conf, err := pf.WorldToBase(WorldToBaseNodeName)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.BaseID, test.ShouldEqual, 7)

	// the returned maps are copies
	params["base_id"] = 9
	test.That(t, pf.Parameters(WorldToBaseNodeName)["base_id"], test.ShouldEqual, 7)
}

func TestParameterFileEnvDefault(t *testing.T) {
	t.Setenv("MOCAP_BASE_ID", "")
	conf, err := ReadWorldToBase(filepath.Join("testdata", "hsa_planar.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.BaseID, test.ShouldEqual, 3)

	_, err = ReadParameterFile(filepath.Join("testdata", "does_not_exist.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to read parameter file")
}

func TestParameterFileFromReaderErrors(t *testing.T) {
	_, err := ParameterFileFromReader("somepath", strings.NewReader("world_to_base: 3\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected a mapping")

	_, err = ParameterFileFromReader("somepath", strings.NewReader("world_to_base:\n  ros__parameters: [1]\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "world_to_base.ros__parameters")

	pf, err := ParameterFileFromReader("somepath", strings.NewReader("planar_cs_ik_node:\n  ros__parameters:\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pf.Parameters(PlanarIKNodeName), test.ShouldBeEmpty)
}
