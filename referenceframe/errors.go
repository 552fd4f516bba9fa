package referenceframe

import (
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/urdf"
)

// ErrZeroAxis is returned for a moving joint whose axis is the zero vector.
var ErrZeroAxis = errors.New("cannot use zero vector as joint axis")

// NewUnsupportedJointTypeError returns an error indicating that a given joint type is not supported.
func NewUnsupportedJointTypeError(jointType urdf.JointType) error {
	return errors.Errorf("unsupported joint type detected: %q", jointType)
}

// NewLinkNotFoundError returns an error indicating that a link with the given name does not exist.
func NewLinkNotFoundError(name string) error {
	return errors.Errorf("link %q not found in robot", name)
}
