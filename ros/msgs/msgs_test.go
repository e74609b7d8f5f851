package msgs

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.viam.com/test"

	"github.com/mstoelzle/ros2-hsa/ros/cdr"
)

func stamp(sec int32, nsec uint32, frame string) Header {
	return Header{Stamp: Time{Sec: sec, Nanosec: nsec}, FrameID: frame}
}

func fullControllerInfo() *PlanarSetpointControllerInfo {
	return &PlanarSetpointControllerInfo{
		Header: stamp(1700000000, 5, "base"),
		PlanarSetpoint: PlanarSetpoint{
			Header:   stamp(1699999999, 999999999, "base"),
			ChieeDes: Pose2D{X: 0.01, Y: 0.12, Theta: 0},
			QDes:     []float64{1.1, 0.01, 0.2},
			PhiSs:    []float64{math.Pi / 2, -math.Pi / 2},
		},
		Chiee:         Pose2DStamped{Header: stamp(1, 2, "ee"), Pose: Pose2D{X: 0.011, Y: 0.119, Theta: 0.05}},
		ChieeDes:      Pose2DStamped{Header: stamp(1, 2, "ee"), Pose: Pose2D{X: 0.01, Y: 0.12}},
		ChieeD:        Pose2D{X: -1e-3, Y: 2e-3, Theta: 0.1},
		ChieeDDes:     Pose2D{},
		Configuration: PlanarCsConfiguration{Header: stamp(1, 2, ""), KappaB: 1.1, SigmaSh: 0.01, SigmaA: 0.2},
		QDes:          []float64{1.1, 0.01, 0.2},
		Q:             []float64{1.0, 0.02, 0.19},
		QD:            []float64{0.1, -0.01, 0.01},
		EInt:          []float64{1e-4, -2e-4, 0},
		F:             []float64{0.5, -0.25, 0},
		Tau:           []float64{0.2, 0.3, -0.1},
		VarphiDes:     []float64{1.5, 1.6},
		Varphi:        []float64{1.4, 1.7},
		U:             []float64{3.5, -0.3},
		USat:          []float64{3.14, 0},
		PhiDesSat:     []float64{3.14, 0},

		ActuationOptimalityError: 1e-9,
	}
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		msg  cdr.Message
	}{
		{"time", &Time{Sec: -5, Nanosec: 7}},
		{"header", &Header{Stamp: Time{Sec: 3}, FrameID: "world"}},
		{"pose2d", &Pose2D{X: 1, Y: -2, Theta: math.Pi}},
		{"point", &Point{X: 1, Y: 2, Z: 3}},
		{"quaternion", &Quaternion{X: -0.7071068, W: 0.7071068}},
		{"pose", &Pose{Position: Point{Z: 1}, Orientation: IdentityQuaternion()}},
		{"pose stamped", &PoseStamped{Header: stamp(1, 2, "mocap"), Pose: Pose{Orientation: Quaternion{Z: 1}}}},
		{"joy empty", &Joy{Axes: []float32{}, Buttons: []int32{}}},
		{"joy", &Joy{Header: stamp(4, 0, "joy"), Axes: []float32{0.5, -1, 0}, Buttons: []int32{0, 1}}},
		{"rigid body array empty", &RigidBodyArray{Header: stamp(1, 1, "world"), RigidBodies: []RigidBody{}}},
		{"rigid body array", &RigidBodyArray{
			Header: stamp(1, 1, "world"),
			RigidBodies: []RigidBody{
				{ID: 3, Valid: true, MeanError: 1e-4, PoseStamped: PoseStamped{
					Header: stamp(1, 1, "world"),
					Pose:   Pose{Position: Point{X: 0.1, Y: 0.2, Z: 0.3}, Orientation: Quaternion{X: -0.7071068, W: 0.7071068}},
				}},
				{ID: 4, Valid: false, PoseStamped: PoseStamped{Header: stamp(1, 1, "world")}},
			},
		}},
		{"configuration", &PlanarCsConfiguration{Header: stamp(9, 9, "base"), KappaB: 3, SigmaSh: -0.1, SigmaA: 0.25}},
		{"setpoint empty", &PlanarSetpoint{QDes: []float64{}, PhiSs: []float64{}}},
		{"setpoint", &PlanarSetpoint{ChieeDes: Pose2D{X: 1e-4, Y: 0.1}, QDes: []float64{1}, PhiSs: []float64{2, 3}}},
		{"pose2d stamped", &Pose2DStamped{Header: stamp(2, 0, "ee"), Pose: Pose2D{X: -0.01, Y: 0.12, Theta: -0.3}}},
		{"controller info", fullControllerInfo()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := cdr.Marshal(tc.msg)
			out, err := Decode(tc.msg.TypeName(), data)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, cmp.Diff(tc.msg, out), test.ShouldBeEmpty)
		})
	}
}

func TestControllerInfoEmptySequences(t *testing.T) {
	// nil and empty sequences share an encoding and decode as empty
	in := &PlanarSetpointControllerInfo{Header: stamp(1, 0, "base"), ActuationOptimalityError: 0.5}
	var out PlanarSetpointControllerInfo
	test.That(t, cdr.Unmarshal(cdr.Marshal(in), &out), test.ShouldBeNil)
	test.That(t, cmp.Diff(in, &out, cmpopts.EquateEmpty()), test.ShouldBeEmpty)
	test.That(t, out.Tau, test.ShouldNotBeNil)
	test.That(t, out.Tau, test.ShouldHaveLength, 0)
	test.That(t, out.ActuationOptimalityError, test.ShouldEqual, 0.5)

	// re-encoding the decoded record reproduces the payload
	full := fullControllerInfo()
	data := cdr.Marshal(full)
	test.That(t, cdr.Unmarshal(data, &out), test.ShouldBeNil)
	test.That(t, cdr.Marshal(&out), test.ShouldResemble, data)
}

func TestDecodeTruncated(t *testing.T) {
	data := cdr.Marshal(fullControllerInfo())
	for _, n := range []int{3, 4, 20, len(data) / 3, len(data) - 8} {
		_, err := Decode("hsa_control_interfaces/PlanarSetpointControllerInfo", data[:n])
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestDefinitionsMatchTypes(t *testing.T) {
	defined, err := DefinedTypes()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, defined, test.ShouldHaveLength, len(RegisteredTypes()))

	for _, typeName := range RegisteredTypes() {
		t.Run(typeName, func(t *testing.T) {
			spec, err := ParseDefinition(typeName)
			test.That(t, err, test.ShouldBeNil)

			m, err := New(typeName)
			test.That(t, err, test.ShouldBeNil)
			rt := reflect.TypeOf(m).Elem()
			var tags []string
			for i := 0; i < rt.NumField(); i++ {
				tags = append(tags, rt.Field(i).Tag.Get("rosmsg"))
			}
			var declared []string
			for _, f := range spec.Fields {
				declared = append(declared, f.Name+":"+f.TypeString())
			}
			test.That(t, tags, test.ShouldResemble, declared)

			// every referenced message type is defined as well
			for _, dep := range spec.Dependencies() {
				_, err := Definition(dep)
				test.That(t, err, test.ShouldBeNil)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	m, err := New("geometry_msgs/Quaternion")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldResemble, &Quaternion{W: 1})

	m, err = New("geometry_msgs/msg/PoseStamped")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.(*PoseStamped).Pose.Orientation, test.ShouldResemble, IdentityQuaternion())

	_, err = New("geometry_msgs/msg/Twist")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown message type")

	_, err = Definition("geometry_msgs/Twist")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, func() { Register(func() cdr.Message { return &Pose2D{} }) }, test.ShouldPanic)
}

func TestTime(t *testing.T) {
	now := time.Date(2023, 5, 1, 12, 0, 0, 123456789, time.UTC)
	ts := TimeFromGo(now)
	test.That(t, ts, test.ShouldResemble, Time{Sec: int32(now.Unix()), Nanosec: 123456789})
	test.That(t, ts.Go().Equal(now), test.ShouldBeTrue)
	test.That(t, ts.IsZero(), test.ShouldBeFalse)
	test.That(t, Time{}.IsZero(), test.ShouldBeTrue)

	before := TimeFromGo(now.Add(-time.Nanosecond))
	test.That(t, before.Before(ts), test.ShouldBeTrue)
	test.That(t, ts.Before(before), test.ShouldBeFalse)
	test.That(t, ts.Before(ts), test.ShouldBeFalse)

	neg := TimeFromGo(time.Unix(-2, 500))
	test.That(t, neg, test.ShouldResemble, Time{Sec: -2, Nanosec: 500})
	neg = TimeFromGo(time.Unix(0, -1))
	test.That(t, neg, test.ShouldResemble, Time{Sec: -1, Nanosec: 999999999})

	far := TimeFromGo(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	test.That(t, far.Sec, test.ShouldEqual, math.MaxInt32)
}

func TestControllerInfoValidate(t *testing.T) {
	test.That(t, fullControllerInfo().Validate(), test.ShouldBeNil)
	test.That(t, (&PlanarSetpointControllerInfo{}).Validate(), test.ShouldBeNil)

	// unreported sequences are not flagged
	partial := fullControllerInfo()
	partial.USat = nil
	partial.Tau = []float64{}
	partial.PlanarSetpoint.QDes = nil
	test.That(t, partial.Validate(), test.ShouldBeNil)

	for _, tc := range []struct {
		name   string
		modify func(m *PlanarSetpointControllerInfo)
		errStr []string
	}{
		{
			"varphi",
			func(m *PlanarSetpointControllerInfo) { m.Varphi = []float64{1, 2, 3} },
			[]string{"inconsistent actuation vectors", "varphi has 3 entries but varphi_des has 2"},
		},
		{
			"phi_des_sat",
			func(m *PlanarSetpointControllerInfo) { m.PhiDesSat = []float64{1} },
			[]string{"phi_des_sat has 1 entries"},
		},
		{
			"setpoint phi_ss",
			func(m *PlanarSetpointControllerInfo) { m.PlanarSetpoint.PhiSs = []float64{1, 2, 3, 4} },
			[]string{"planar_setpoint.phi_ss"},
		},
		{
			"tau",
			func(m *PlanarSetpointControllerInfo) { m.Tau = []float64{1} },
			[]string{"inconsistent configuration vectors", "tau"},
		},
		{
			"operational",
			func(m *PlanarSetpointControllerInfo) { m.F = []float64{1, 2} },
			[]string{"inconsistent operational vectors", "f has 2 entries but e_int has 3"},
		},
		{
			"several spaces",
			func(m *PlanarSetpointControllerInfo) {
				m.U = nil
				m.VarphiDes = []float64{1}
				m.QD = []float64{}
				m.Q = []float64{0}
			},
			[]string{"actuation", "configuration"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := fullControllerInfo()
			tc.modify(m)
			err := m.Validate()
			test.That(t, err, test.ShouldNotBeNil)
			for _, s := range tc.errStr {
				test.That(t, err.Error(), test.ShouldContainSubstring, s)
			}
			// the codec does not enforce the lengths
			_, err = Decode(m.TypeName(), cdr.Marshal(m))
			test.That(t, err, test.ShouldBeNil)
		})
	}
}

func TestConversions(t *testing.T) {
	p := Pose{Position: Point{X: 1, Y: 2, Z: 3}, Orientation: Quaternion{X: -0.7071068, W: 0.7071068}}
	test.That(t, PoseFromSpatial(p.Spatial()), test.ShouldResemble, p)
	test.That(t, p.Position.Vector().Z, test.ShouldEqual, 3)
	test.That(t, p.Orientation.Quat().Imag, test.ShouldEqual, -0.7071068)

	arr := &RigidBodyArray{RigidBodies: []RigidBody{{ID: 3}, {ID: 4, Valid: true}}}
	rb, ok := arr.Body(4)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, rb.Valid, test.ShouldBeTrue)
	_, ok = arr.Body(5)
	test.That(t, ok, test.ShouldBeFalse)

	conf := &PlanarCsConfiguration{KappaB: 1, SigmaSh: 2, SigmaA: 3}
	test.That(t, conf.Vector(), test.ShouldResemble, []float64{1, 2, 3})
}

func TestHeaderOf(t *testing.T) {
	h := stamp(3, 4, "base")
	for _, m := range []cdr.Message{
		&h,
		&PoseStamped{Header: h},
		&Joy{Header: h},
		&RigidBodyArray{Header: h},
		&PlanarCsConfiguration{Header: h},
		&PlanarSetpoint{Header: h},
		&Pose2DStamped{Header: h},
		&PlanarSetpointControllerInfo{Header: h},
	} {
		got, ok := HeaderOf(m)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldResemble, h)
	}
	for _, m := range []cdr.Message{&Pose2D{}, &Time{Sec: 1}, &RigidBody{}} {
		_, ok := HeaderOf(m)
		test.That(t, ok, test.ShouldBeFalse)
	}
}
