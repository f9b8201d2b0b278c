// Package transform provides a composable position/rotation/scale value
// used for scene node placement and hierarchy composition.
package transform

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform holds a position, a unit rotation quaternion and a non-uniform
// scale, composed into a 4x4 matrix on demand.
type Transform struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
}

// Identity returns the neutral transform: zero position, identity rotation,
// unit scale.
func Identity() Transform {
	return Transform{
		position: mgl32.Vec3{0, 0, 0},
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
	}
}

// New creates a transform from explicit components.
func New(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) Transform {
	return Transform{position: position, rotation: rotation, scale: scale}
}

// Position returns the translation component.
func (t Transform) Position() mgl32.Vec3 { return t.position }

// Rotation returns the rotation component.
func (t Transform) Rotation() mgl32.Quat { return t.rotation }

// Scale returns the scale component.
func (t Transform) Scale() mgl32.Vec3 { return t.scale }

// SetPosition replaces the translation component, leaving rotation and scale
// untouched.
func (t *Transform) SetPosition(position mgl32.Vec3) { t.position = position }

// SetRotation replaces the rotation component, leaving position and scale
// untouched.
func (t *Transform) SetRotation(rotation mgl32.Quat) { t.rotation = rotation }

// SetScale replaces the scale component, leaving position and rotation
// untouched.
func (t *Transform) SetScale(scale mgl32.Vec3) { t.scale = scale }

// Mul composes two transforms. The result applies o first, then t: o is
// interpreted in t's local space, which makes Mul the parent-child fold for
// hierarchy traversal. Composition is associative and Identity is neutral.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		position: t.position.Add(t.rotation.Rotate(mulElem(t.scale, o.position))),
		rotation: t.rotation.Mul(o.rotation),
		scale:    mulElem(t.scale, o.scale),
	}
}

// TransformPoint applies the full scale-rotate-translate chain to a point.
func (t Transform) TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return t.position.Add(t.rotation.Rotate(mulElem(t.scale, p)))
}

// Mat4 builds the equivalent column-major 4x4 matrix.
func (t Transform) Mat4() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z())
	scale := mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z())
	return translate.Mul4(t.rotation.Mat4()).Mul4(scale)
}

// MaxScale returns the largest axis scale factor, used for bounding sphere
// radii under non-uniform scaling.
func (t Transform) MaxScale() float32 {
	m := t.scale.X()
	if t.scale.Y() > m {
		m = t.scale.Y()
	}
	if t.scale.Z() > m {
		m = t.scale.Z()
	}
	return m
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

// Builder constructs a Transform starting from Identity, overriding only the
// components that are set.
type Builder struct {
	t Transform
}

// NewBuilder returns a builder initialized to the identity transform.
func NewBuilder() *Builder {
	return &Builder{t: Identity()}
}

// Position sets the translation component.
func (b *Builder) Position(position mgl32.Vec3) *Builder {
	b.t.position = position
	return b
}

// Rotation sets the rotation component.
func (b *Builder) Rotation(rotation mgl32.Quat) *Builder {
	b.t.rotation = rotation
	return b
}

// Scale sets the scale component.
func (b *Builder) Scale(scale mgl32.Vec3) *Builder {
	b.t.scale = scale
	return b
}

// Build returns the accumulated transform.
func (b *Builder) Build() Transform {
	return b.t
}
