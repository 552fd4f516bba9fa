package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// EulerAngles are three angles (in radians) used to represent the rotation of an object in 3D
// Euclidean space. The rotations are intrinsic and applied in X, Y, Z order: roll about the body X
// axis, then pitch about the new Y axis, then yaw about the newest Z axis, so R = Rx·Ry·Rz.
type EulerAngles struct {
	Roll  float64 `json:"roll"`  // phi, X
	Pitch float64 `json:"pitch"` // theta, Y
	Yaw   float64 `json:"yaw"`   // psi, Z
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{}
}

// EulerAngles returns orientation in Euler angle representation.
func (ea *EulerAngles) EulerAngles() *EulerAngles {
	return ea
}

// Quaternion returns orientation in quaternion representation.
func (ea *EulerAngles) Quaternion() quat.Number {
	qx := quat.Number{Real: math.Cos(ea.Roll / 2), Imag: math.Sin(ea.Roll / 2)}
	qy := quat.Number{Real: math.Cos(ea.Pitch / 2), Jmag: math.Sin(ea.Pitch / 2)}
	qz := quat.Number{Real: math.Cos(ea.Yaw / 2), Kmag: math.Sin(ea.Yaw / 2)}
	return quat.Mul(quat.Mul(qx, qy), qz)
}

// AxisAngles returns the orientation in axis angle representation.
func (ea *EulerAngles) AxisAngles() *R4AA {
	aa := QuatToR4AA(ea.Quaternion())
	return &aa
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (ea *EulerAngles) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(ea.Quaternion())
}

// QuatToEulerAngles converts a quaternion to the intrinsic X,Y,Z euler angles used by EulerAngles.
// Near pitch = ±pi/2 the yaw is folded into roll.
func QuatToEulerAngles(q quat.Number) *EulerAngles {
	rm := QuatToRotationMatrix(q)
	sinPitch := rm.At(0, 2)
	if sinPitch >= 1-1e-9 || sinPitch <= -1+1e-9 {
		return &EulerAngles{
			Roll:  math.Atan2(rm.At(2, 1), rm.At(1, 1)),
			Pitch: math.Copysign(math.Pi/2, sinPitch),
			Yaw:   0,
		}
	}
	return &EulerAngles{
		Roll:  math.Atan2(-rm.At(1, 2), rm.At(2, 2)),
		Pitch: math.Asin(sinPitch),
		Yaw:   math.Atan2(-rm.At(0, 1), rm.At(0, 0)),
	}
}
