package msgs

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mstoelzle/ros2-hsa/ros/cdr"
	"github.com/mstoelzle/ros2-hsa/ros/msgdef"
)

var registry = map[string]func() cdr.Message{}

func init() {
	for _, ctor := range []func() cdr.Message{
		func() cdr.Message { return &Time{} },
		func() cdr.Message { return &Header{} },
		func() cdr.Message { return &Pose2D{} },
		func() cdr.Message { return &Point{} },
		func() cdr.Message { return &Quaternion{W: 1} },
		func() cdr.Message { return &Pose{Orientation: IdentityQuaternion()} },
		func() cdr.Message { return &PoseStamped{Pose: Pose{Orientation: IdentityQuaternion()}} },
		func() cdr.Message { return &Joy{} },
		func() cdr.Message { return &RigidBody{} },
		func() cdr.Message { return &RigidBodyArray{} },
		func() cdr.Message { return &PlanarCsConfiguration{} },
		func() cdr.Message { return &PlanarSetpoint{} },
		func() cdr.Message { return &Pose2DStamped{} },
		func() cdr.Message { return &PlanarSetpointControllerInfo{} },
	} {
		Register(ctor)
	}
}

// Register makes a message type available to New under its type name. Registering the same
// name twice panics.
func Register(ctor func() cdr.Message) {
	name := canonicalTypeName(ctor().TypeName())
	if _, ok := registry[name]; ok {
		panic(errors.Errorf("message type %q registered twice", name))
	}
	registry[name] = ctor
}

// New returns a new message of the named type, holding the declared defaults.
func New(typeName string) (cdr.Message, error) {
	ctor, ok := registry[canonicalTypeName(typeName)]
	if !ok {
		return nil, errors.Errorf("unknown message type %q", typeName)
	}
	return ctor(), nil
}

// Decode decodes a CDR payload of the named type.
func Decode(typeName string, data []byte) (cdr.Message, error) {
	m, err := New(typeName)
	if err != nil {
		return nil, err
	}
	if err := cdr.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisteredTypes returns the sorted "pkg/msg/Name" names of every registered type.
func RegisteredTypes() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

func canonicalTypeName(typeName string) string {
	pkg, name, err := msgdef.SplitTypeName(typeName)
	if err != nil {
		return typeName
	}
	return pkg + "/msg/" + name
}
