package scene

// rebuildSkeletonParentMaps recomputes, for every skin, the bone-restricted
// parent lookup used by SkeletonAncestry. Called at construction time, after
// node removal and after merging, so despawned bones never leave stale
// ancestry behind.
func (s *Scene) rebuildSkeletonParentMaps() {
	s.skeletonParentMaps = make(map[uint32]map[uint32]uint32, len(s.Skins))
	for i := range s.Skins {
		skin := &s.Skins[i]
		parents := make(map[uint32]uint32, len(skin.BoneNodeIDs))
		for _, boneID := range skin.BoneNodeIDs {
			if int(boneID.index) >= len(s.nodes) {
				continue
			}
			node := s.nodes[boneID.index].node
			if node == nil || node.Parent == nil {
				continue
			}
			// A parent that was removed breaks the chain here rather than
			// leaving a link to a dead slot.
			if _, ok := s.GetNode(*node.Parent); !ok {
				continue
			}
			parents[boneID.index] = node.Parent.index
		}
		s.skeletonParentMaps[skin.NodeID.index] = parents
	}
}

// SkeletonAncestry returns id followed by its successive parents, restricted
// to the bone set of the skin rooted at skeletonRootID. The walk terminates
// when a bone has no mapped parent, either because it is the skeleton root or
// because its parent left the bone set. Unknown skeleton roots yield an empty
// list.
func (s *Scene) SkeletonAncestry(id NodeID, skeletonRootID NodeID) []NodeID {
	parents, ok := s.skeletonParentMaps[skeletonRootID.index]
	if !ok {
		return nil
	}

	ancestry := make([]NodeID, 0, 8)
	index := id.index
	for {
		if int(index) >= len(s.nodes) {
			break
		}
		ancestry = append(ancestry, NodeID{index: index, generation: s.nodes[index].generation})
		parent, ok := parents[index]
		if !ok {
			break
		}
		index = parent
	}
	return ancestry
}
