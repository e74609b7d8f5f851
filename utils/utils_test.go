package utils

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestUnexpectedTypeError(t *testing.T) {
	err := NewUnexpectedTypeError[string](1)
	test.That(t, err.Error(), test.ShouldEqual, "expected string but got int")
}

func TestConfigValidationErrors(t *testing.T) {
	err := NewConfigValidationFieldRequiredError("world_to_base.ros__parameters", "base_id")
	test.That(t, err.Error(), test.ShouldEqual,
		`error validating "world_to_base.ros__parameters": "base_id" is required`)

	cause := errors.New("quaternion norm 2 is not 1")
	err = NewConfigValidationError("path", cause)
	test.That(t, errors.Cause(err), test.ShouldEqual, cause)
}

func TestMath(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90.0)
	test.That(t, Float64AlmostEqual(1, 1+1e-9, 1e-6), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-6), test.ShouldBeFalse)
	test.That(t, IsFinite(1, 2, 3), test.ShouldBeTrue)
	test.That(t, IsFinite(1, math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}
