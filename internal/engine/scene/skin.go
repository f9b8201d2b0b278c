package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/yggdrasil/internal/engine/transform"
)

// Skin is a set of bones deforming one mesh. The three bone arrays are
// parallel: entry i describes bone i. Bounding box transforms each move a
// 2x2x2 box centered at the origin so that it surrounds the bone's vertices
// in bone space; they are derived once at load time and never updated.
type Skin struct {
	NodeID                    NodeID
	BoneNodeIDs               []NodeID
	BoneInverseBindMatrices   []mgl32.Mat4
	BoneBoundingBoxTransforms []transform.Transform
}

// IndexedSkin is the loader-facing skin description: bones are flat node
// list indices.
type IndexedSkin struct {
	BoneNodeIndices           []int
	BoneInverseBindMatrices   []mgl32.Mat4
	BoneBoundingBoxTransforms []transform.Transform
}
