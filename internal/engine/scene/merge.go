package scene

// MergeOffsets carries the renderer-side index shifts applied while merging:
// the number of meshes and materials already bound before the other scene's
// resources are appended. Node and skin offsets are derived from this scene's
// own lengths.
type MergeOffsets struct {
	Mesh     int
	Material int
}

// Merge appends the other scene's nodes, skins and animations into this one,
// rewriting every embedded node handle, skin index, mesh index and material
// index so references stay internally consistent. The other scene must not be
// used afterwards. Used when composing scenes that were loaded independently.
func (s *Scene) Merge(other *Scene, offsets MergeOffsets) {
	nodeOffset := uint32(len(s.nodes))
	skinOffset := len(s.Skins)

	convert := func(id NodeID) NodeID {
		return NodeID{index: id.index + nodeOffset, generation: id.generation}
	}

	for i := range other.nodes {
		node := other.nodes[i].node
		if node == nil {
			continue
		}
		if node.Visual != nil {
			node.Visual.MeshIndex += offsets.Mesh
			if node.Visual.MaterialIndex >= 0 {
				node.Visual.MaterialIndex += offsets.Material
			}
		}
		if node.SkinIndex >= 0 {
			node.SkinIndex += skinOffset
		}
		if node.Parent != nil {
			rewritten := convert(*node.Parent)
			node.Parent = &rewritten
		}
		node.id = convert(node.id)
	}

	for i := range other.Skins {
		skin := &other.Skins[i]
		skin.NodeID = convert(skin.NodeID)
		for j := range skin.BoneNodeIDs {
			skin.BoneNodeIDs[j] = convert(skin.BoneNodeIDs[j])
		}
	}

	for i := range other.Animations {
		channels := other.Animations[i].Channels
		for j := range channels {
			channels[j].NodeID = convert(channels[j].NodeID)
		}
	}

	s.nodes = append(s.nodes, other.nodes...)
	for _, freeIndex := range other.freeIndices {
		s.freeIndices = append(s.freeIndices, freeIndex+nodeOffset)
	}
	s.Skins = append(s.Skins, other.Skins...)
	s.Animations = append(s.Animations, other.Animations...)

	s.rebuildSkeletonParentMaps()
}
