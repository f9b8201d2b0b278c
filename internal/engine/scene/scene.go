// Package scene implements the runtime scene graph: a generational node
// arena with stable handles, hierarchy-aware world transform resolution,
// per-tick bounding sphere caches and the skeletal animation driver that
// feeds sampled keyframe values back into node transforms.
package scene

import (
	"fmt"

	"github.com/Faultbox/yggdrasil/internal/engine/collision"
	"github.com/Faultbox/yggdrasil/internal/engine/transform"
)

// MaxHierarchyDepth is the hard cap on parent chain length. It allows the
// per-frame ancestor walk to use a fixed-size stack buffer instead of a heap
// allocation. Content deeper than this is malformed.
const MaxHierarchyDepth = 32

// MeshBoundsFunc resolves a mesh index to its local-space bounding box.
// Returns ok=false for meshes without geometry.
type MeshBoundsFunc func(meshIndex int) (collision.AABB, bool)

type nodeSlot struct {
	node       *Node // nil means the slot is free
	generation uint32
}

// Scene owns the node arena plus the skins and animations loaded with it.
// It is single-threaded: one tick (StepAnimations then RecomputeAll) runs to
// completion before the renderer reads the cached results.
type Scene struct {
	nodes       []nodeSlot
	freeIndices []uint32

	globalTransforms []transform.Transform
	boundingSpheres  []collision.Sphere

	Skins      []Skin
	Animations []Animation

	// skin root slot index -> (bone slot index -> parent slot index),
	// restricted to each skin's bone set
	skeletonParentMaps map[uint32]map[uint32]uint32
}

// New builds a scene from the flat descriptor lists produced by the asset
// loader. Node references inside skins and animation channels are resolved
// to generation-0 handles matching the initial arena layout. Malformed
// cross-references are the only checked failures this package surfaces.
func New(nodes []IndexedNodeDesc, skins []IndexedSkin, animations []IndexedAnimation) (*Scene, error) {
	s := &Scene{
		skeletonParentMaps: make(map[uint32]map[uint32]uint32),
	}

	for i, desc := range nodes {
		if desc.ParentIndex != nil && (*desc.ParentIndex < 0 || *desc.ParentIndex >= len(nodes)) {
			return nil, fmt.Errorf("node %d: parent index %d out of range", i, *desc.ParentIndex)
		}
		if desc.SkinIndex >= len(skins) {
			return nil, fmt.Errorf("node %d: skin index %d out of range", i, desc.SkinIndex)
		}
		var parent *NodeID
		if desc.ParentIndex != nil {
			id := NodeID{index: uint32(*desc.ParentIndex)}
			parent = &id
		}
		s.AddNode(NodeDesc{
			Transform: desc.Transform,
			SkinIndex: desc.SkinIndex,
			Visual:    desc.Visual,
			Name:      desc.Name,
			Parent:    parent,
		})
	}

	s.Skins = make([]Skin, 0, len(skins))
	for skinIndex, indexed := range skins {
		if len(indexed.BoneNodeIndices) != len(indexed.BoneInverseBindMatrices) ||
			len(indexed.BoneNodeIndices) != len(indexed.BoneBoundingBoxTransforms) {
			return nil, fmt.Errorf("skin %d: bone arrays have mismatched lengths (%d nodes, %d matrices, %d boxes)",
				skinIndex, len(indexed.BoneNodeIndices), len(indexed.BoneInverseBindMatrices), len(indexed.BoneBoundingBoxTransforms))
		}
		owner, ok := s.findSkinOwner(skinIndex)
		if !ok {
			return nil, fmt.Errorf("skin %d: no node references it", skinIndex)
		}
		boneIDs := make([]NodeID, len(indexed.BoneNodeIndices))
		for i, boneIndex := range indexed.BoneNodeIndices {
			if boneIndex < 0 || boneIndex >= len(nodes) {
				return nil, fmt.Errorf("skin %d: bone %d references node %d out of range", skinIndex, i, boneIndex)
			}
			boneIDs[i] = NodeID{index: uint32(boneIndex)}
		}
		s.Skins = append(s.Skins, Skin{
			NodeID:                    owner,
			BoneNodeIDs:               boneIDs,
			BoneInverseBindMatrices:   indexed.BoneInverseBindMatrices,
			BoneBoundingBoxTransforms: indexed.BoneBoundingBoxTransforms,
		})
	}

	s.Animations = make([]Animation, 0, len(animations))
	for animIndex, indexed := range animations {
		channels := make([]Channel, 0, len(indexed.Channels))
		for channelIndex, ch := range indexed.Channels {
			if ch.NodeIndex < 0 || ch.NodeIndex >= len(nodes) {
				return nil, fmt.Errorf("animation %d: channel %d targets node %d out of range",
					animIndex, channelIndex, ch.NodeIndex)
			}
			channels = append(channels, Channel{
				NodeID:         NodeID{index: uint32(ch.NodeIndex)},
				Property:       ch.Property,
				Interpolation:  ch.Interpolation,
				KeyframeTimes:  ch.KeyframeTimes,
				KeyframeValues: ch.KeyframeValues,
			})
		}
		s.Animations = append(s.Animations, Animation{
			Name:          indexed.Name,
			LengthSeconds: indexed.LengthSeconds,
			Speed:         1.0,
			Channels:      channels,
		})
	}

	s.rebuildSkeletonParentMaps()

	return s, nil
}

func (s *Scene) findSkinOwner(skinIndex int) (NodeID, bool) {
	for i := range s.nodes {
		if node := s.nodes[i].node; node != nil && node.SkinIndex == skinIndex {
			return node.id, true
		}
	}
	return NodeID{}, false
}

// AddNode inserts a node, reusing a tombstoned slot when one is available.
// Slot reuse bumps the slot's generation so handles to the previous occupant
// go stale.
func (s *Scene) AddNode(desc NodeDesc) NodeID {
	node := &Node{
		Transform: desc.Transform,
		SkinIndex: desc.SkinIndex,
		Visual:    desc.Visual,
		Name:      desc.Name,
		Parent:    desc.Parent,
	}

	if n := len(s.freeIndices); n > 0 {
		index := s.freeIndices[n-1]
		s.freeIndices = s.freeIndices[:n-1]
		generation := s.nodes[index].generation + 1
		node.id = NodeID{index: index, generation: generation}
		s.nodes[index] = nodeSlot{node: node, generation: generation}
		return node.id
	}

	node.id = NodeID{index: uint32(len(s.nodes))}
	s.nodes = append(s.nodes, nodeSlot{node: node})
	return node.id
}

// GetNode resolves a handle. It returns ok=false when the handle is stale:
// the slot was freed, or freed and reused, since the handle was issued.
func (s *Scene) GetNode(id NodeID) (*Node, bool) {
	if int(id.index) >= len(s.nodes) {
		return nil, false
	}
	slot := &s.nodes[id.index]
	if slot.generation != id.generation || slot.node == nil {
		return nil, false
	}
	return slot.node, true
}

// RemoveNode frees the node's slot, keeping the slot generation so existing
// handles read as stale. Children are not cascaded: they become orphans whose
// ancestry walk stops at the missing parent. No-ops on stale handles.
func (s *Scene) RemoveNode(id NodeID) {
	node, ok := s.GetNode(id)
	if !ok {
		return
	}
	index := node.id.index
	s.nodes[index].node = nil
	s.freeIndices = append(s.freeIndices, index)

	// Keeps bone ancestry correct when skeleton nodes are despawned.
	s.rebuildSkeletonParentMaps()
}

// NodeCount returns the number of live nodes.
func (s *Scene) NodeCount() int {
	count := 0
	for i := range s.nodes {
		if s.nodes[i].node != nil {
			count++
		}
	}
	return count
}

// SlotCount returns the arena length including tombstoned slots. The cached
// transform and sphere arrays always match this length after RecomputeAll.
func (s *Scene) SlotCount() int {
	return len(s.nodes)
}

// EachNode calls fn for every live node in slot order. Used by the renderer
// to populate instance buffers.
func (s *Scene) EachNode(fn func(*Node)) {
	for i := range s.nodes {
		if node := s.nodes[i].node; node != nil {
			fn(node)
		}
	}
}

// GlobalTransform resolves the node's world transform by walking the parent
// chain and folding local transforms from the root downward. A stale handle
// yields the identity transform. Panics when the ancestry exceeds
// MaxHierarchyDepth, which indicates malformed content rather than a
// recoverable runtime state.
func (s *Scene) GlobalTransform(id NodeID) transform.Transform {
	var ancestry [MaxHierarchyDepth]uint32
	count := s.collectAncestry(id, &ancestry)
	if count == 0 {
		return transform.Identity()
	}

	acc := s.nodes[ancestry[count-1]].node.Transform
	for i := count - 2; i >= 0; i-- {
		acc = acc.Mul(s.nodes[ancestry[i]].node.Transform)
	}
	return acc
}

// collectAncestry writes the slot indices from id up to its root into buf and
// returns how many were written. The walk stops at the first missing or stale
// parent.
func (s *Scene) collectAncestry(id NodeID, buf *[MaxHierarchyDepth]uint32) int {
	count := 0
	current := id
	for {
		node, ok := s.GetNode(current)
		if !ok {
			return count
		}
		if count == MaxHierarchyDepth {
			panic(fmt.Sprintf("scene: node %d ancestry exceeds max hierarchy depth %d", id.index, MaxHierarchyDepth))
		}
		buf[count] = current.index
		count++
		if node.Parent == nil {
			return count
		}
		current = *node.Parent
	}
}

// RecomputeAll refreshes the cached world transform and bounding sphere for
// every arena slot. The caches are parallel arrays sized to the arena, so
// they are truncated or grown first, then rewritten wholesale; nothing is
// updated incrementally. meshBounds supplies the local bounding box for a
// node's mesh.
func (s *Scene) RecomputeAll(meshBounds MeshBoundsFunc) {
	if len(s.nodes) <= len(s.globalTransforms) {
		s.globalTransforms = s.globalTransforms[:len(s.nodes)]
		s.boundingSpheres = s.boundingSpheres[:len(s.nodes)]
	}

	for i := range s.nodes {
		node := s.nodes[i].node

		worldTransform := transform.Identity()
		if node != nil {
			worldTransform = s.GlobalTransform(node.id)
		}

		var sphere collision.Sphere
		if node != nil && node.Visual != nil && meshBounds != nil {
			if box, ok := meshBounds(node.Visual.MeshIndex); ok {
				sphere = boundingSphere(worldTransform, box)
			}
		}

		if i < len(s.globalTransforms) {
			s.globalTransforms[i] = worldTransform
			s.boundingSpheres[i] = sphere
		} else {
			s.globalTransforms = append(s.globalTransforms, worldTransform)
			s.boundingSpheres = append(s.boundingSpheres, sphere)
		}
	}
}

// boundingSphere derives a world-space sphere from a local box: the center is
// the transformed box center, the radius the box half-diagonal scaled by the
// largest axis scale factor.
func boundingSphere(worldTransform transform.Transform, box collision.AABB) collision.Sphere {
	return collision.Sphere{
		Center: worldTransform.TransformPoint(box.Center()),
		Radius: worldTransform.MaxScale() * box.HalfExtents().Len(),
	}
}

// CachedGlobalTransform reads the per-tick world transform cache by raw slot
// index. Callers must only pass handles whose slot index is within the arena;
// the generation is deliberately not checked on this hot path.
func (s *Scene) CachedGlobalTransform(id NodeID) transform.Transform {
	return s.globalTransforms[id.index]
}

// CachedBoundingSphere reads the per-tick bounding sphere cache by raw slot
// index, under the same contract as CachedGlobalTransform.
func (s *Scene) CachedBoundingSphere(id NodeID) collision.Sphere {
	return s.boundingSpheres[id.index]
}

// BoundingSphere computes the node's bounding sphere directly, bypassing the
// cache. Returns ok=false for stale handles and nodes without a visual.
func (s *Scene) BoundingSphere(id NodeID, meshBounds MeshBoundsFunc) (collision.Sphere, bool) {
	node, ok := s.GetNode(id)
	if !ok || node.Visual == nil || meshBounds == nil {
		return collision.Sphere{}, false
	}
	box, ok := meshBounds(node.Visual.MeshIndex)
	if !ok {
		return collision.Sphere{}, false
	}
	return boundingSphere(s.GlobalTransform(id), box), true
}
