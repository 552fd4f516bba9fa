package config

import (
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/urdfsim/geometry"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/scene"
	"go.viam.com/urdfsim/spatialmath"
)

func TestReadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("URDFSIM_TEST_ROBOT", "robots/arm.urdf")
	cfg, err := Read("testdata/sim.json", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cfg.Robot, test.ShouldEqual, "robots/arm.urdf")
	test.That(t, cfg.RobotPath(), test.ShouldEqual, filepath.Join("testdata", "robots", "arm.urdf"))
	test.That(t, cfg.Joints, test.ShouldResemble, map[string]float64{"j": 0.5})
	test.That(t, cfg.LogLevel(), test.ShouldEqual, logging.DEBUG)
	test.That(t, cfg.Physics.Floor.IsEnabled(), test.ShouldBeFalse)
	// defaults fill what the file leaves out
	test.That(t, cfg.Physics.DefaultAngularDamping, test.ShouldEqual, physics.DefaultAngularDamping)
	test.That(t, cfg.Physics.Floor.Radius, test.ShouldEqual, DefaultFloorRadius)

	opts, err := cfg.SceneOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Mode, test.ShouldEqual, scene.PhysicsMode)
	test.That(t, opts.CylinderConvention, test.ShouldEqual, geometry.HalfLength)
	test.That(t, opts.RootBodyType, test.ShouldEqual, physics.Kinematic)
	test.That(t, opts.ContactThreshold, test.ShouldEqual, 0.02)
	expected := spatialmath.NewPose(r3.Vector{Y: 0.5}, &spatialmath.R4AA{Theta: -math.Pi / 2, RX: 1})
	test.That(t, spatialmath.PoseAlmostEqual(opts.Base, expected), test.ShouldBeTrue)

	wc := cfg.WorldConfig()
	test.That(t, wc.Substeps, test.ShouldEqual, 50)
	test.That(t, wc.Gravity, test.ShouldResemble, physics.DefaultGravity)
}

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig("robot.urdf")
	test.That(t, cfg.Validate("config"), test.ShouldBeNil)
	test.That(t, cfg.RobotPath(), test.ShouldEqual, "robot.urdf")
	test.That(t, cfg.Physics.Floor.IsEnabled(), test.ShouldBeTrue)
	test.That(t, cfg.Render.FPS, test.ShouldEqual, DefaultFPS)

	opts, err := cfg.SceneOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Mode, test.ShouldEqual, scene.RenderMode)
	test.That(t, spatialmath.PoseAlmostEqual(opts.Base, scene.DefaultBase()), test.ShouldBeTrue)
	test.That(t, opts.ContactThreshold, test.ShouldEqual, physics.DefaultContactThreshold)
	test.That(t, cfg.WorldConfig().Substeps, test.ShouldEqual, physics.DefaultSubsteps)
}

func TestValidateCombinesErrors(t *testing.T) {
	_, err := Read("testdata/invalid.json", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	errs := multierr.Errors(err)
	test.That(t, errs, test.ShouldHaveLength, 5)
	msg := err.Error()
	for _, field := range []string{"robot", "physics.substeps", "physics.root_body", "render.cylinder_convention", "log.level"} {
		test.That(t, msg, test.ShouldContainSubstring, field)
	}
}

func TestFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := FromReader("inline", strings.NewReader(`{"robot": "a.urdf", "colour": "red"}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "colour")

	_, err = Read("testdata/missing.json", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.json")
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	test.That(t, err, test.ShouldBeNil)
	var schema map[string]interface{}
	test.That(t, json.Unmarshal(data, &schema), test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "cylinder_convention")
	test.That(t, string(data), test.ShouldContainSubstring, "contact_threshold")
}
