package component

// Vec2 is a 2D vector.
type Vec2 struct{ X, Y float32 }

// Vec3 is a 3D vector.
type Vec3 struct{ X, Y, Z float32 }

// Vec4 is a 4D vector.
type Vec4 struct{ X, Y, Z, W float32 }

// Quat is a rotation quaternion.
type Quat struct{ X, Y, Z, W float32 }

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{W: 1}

// Pose is a position, rotation and scale.
type Pose struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}
