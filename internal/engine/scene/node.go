package scene

import (
	"github.com/Faultbox/yggdrasil/internal/engine/transform"
)

// NodeID is a generation-checked handle to a node in the scene arena. An ID
// stays valid only while the slot it points at keeps the generation it was
// issued with, so handles to removed nodes are detected instead of silently
// reading reused slots.
type NodeID struct {
	index      uint32
	generation uint32
}

// Index returns the raw arena slot index. Generation checking is bypassed by
// anything built on top of this, so it is for diagnostics and renderer-side
// instance indexing only.
func (id NodeID) Index() int { return int(id.index) }

// Generation returns the generation the handle was issued with.
func (id NodeID) Generation() uint32 { return id.generation }

// Node is an entry in the scene graph: a local transform plus optional
// parent, skin and visual references.
type Node struct {
	Transform transform.Transform
	SkinIndex int // -1 when the node has no skin
	Visual    *Visual
	Name      string
	Parent    *NodeID // nil for root nodes

	id NodeID
}

// ID returns the node's handle.
func (n *Node) ID() NodeID { return n.id }

// Visual references the mesh and material a node draws with.
type Visual struct {
	MeshIndex     int
	MaterialIndex int // -1 for the default material
	Cullable      bool
}

// NodeDesc describes a node to be added to a scene. Parent and skin
// references use NodeID/-1 absence conventions matching Node.
type NodeDesc struct {
	Transform transform.Transform
	SkinIndex int
	Visual    *Visual
	Name      string
	Parent    *NodeID
}

// NewNodeDesc returns a descriptor with an identity transform and no
// parent, skin or visual.
func NewNodeDesc() NodeDesc {
	return NodeDesc{
		Transform: transform.Identity(),
		SkinIndex: -1,
	}
}

// IndexedNodeDesc is the loader-facing node description: references are flat
// list indices instead of live handles.
type IndexedNodeDesc struct {
	Transform   transform.Transform
	ParentIndex *int
	SkinIndex   int // -1 when none
	Visual      *Visual
	Name        string
}

