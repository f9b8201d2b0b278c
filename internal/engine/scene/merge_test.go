package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/yggdrasil/internal/engine/transform"
)

// buildMergeScene creates two nodes (parent + skinned child with a visual),
// one single-bone skin and one single-channel animation.
func buildMergeScene(t *testing.T) *Scene {
	t.Helper()

	parentIdx := 0
	nodes := []IndexedNodeDesc{
		{Transform: transform.Identity(), SkinIndex: -1, Name: "root"},
		{
			Transform:   transform.NewBuilder().Position(mgl32.Vec3{1, 2, 3}).Build(),
			SkinIndex:   0,
			ParentIndex: &parentIdx,
			Visual:      &Visual{MeshIndex: 2, MaterialIndex: 1, Cullable: true},
			Name:        "body",
		},
	}
	skins := []IndexedSkin{{
		BoneNodeIndices:           []int{0},
		BoneInverseBindMatrices:   []mgl32.Mat4{mgl32.Ident4()},
		BoneBoundingBoxTransforms: []transform.Transform{transform.Identity()},
	}}
	anims := []IndexedAnimation{{
		Name:          "wave",
		LengthSeconds: 1,
		Channels: []IndexedChannel{{
			NodeIndex:      1,
			Property:       PropertyTranslation,
			Interpolation:  InterpolationLinear,
			KeyframeTimes:  []float32{0, 1},
			KeyframeValues: encodeFloat32s([]float32{0, 0, 0, 1, 1, 1}),
		}},
	}}

	s, err := New(nodes, skins, anims)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func TestMergeRewritesReferences(t *testing.T) {
	dst := buildMergeScene(t)
	src := buildMergeScene(t)

	baseNodes := dst.SlotCount()
	baseSkins := len(dst.Skins)

	dst.Merge(src, MergeOffsets{Mesh: 10, Material: 5})

	if dst.SlotCount() != baseNodes*2 {
		t.Fatalf("SlotCount() = %d, want %d", dst.SlotCount(), baseNodes*2)
	}
	if len(dst.Skins) != baseSkins*2 {
		t.Fatalf("skin count = %d, want %d", len(dst.Skins), baseSkins*2)
	}

	// Merged child node: shifted parent, skin, mesh and material references.
	merged := dst.Skins[1]
	body, ok := dst.GetNode(NodeID{index: uint32(baseNodes + 1)})
	if !ok {
		t.Fatal("merged body node not found")
	}
	if body.Parent == nil || body.Parent.Index() != baseNodes {
		t.Errorf("merged parent index = %v, want %d", body.Parent, baseNodes)
	}
	if body.SkinIndex != 1 {
		t.Errorf("merged skin index = %d, want 1", body.SkinIndex)
	}
	if body.Visual.MeshIndex != 12 {
		t.Errorf("merged mesh index = %d, want 12", body.Visual.MeshIndex)
	}
	if body.Visual.MaterialIndex != 6 {
		t.Errorf("merged material index = %d, want 6", body.Visual.MaterialIndex)
	}
	if merged.NodeID.Index() != baseNodes+1 {
		t.Errorf("merged skin owner index = %d, want %d", merged.NodeID.Index(), baseNodes+1)
	}
	if merged.BoneNodeIDs[0].Index() != baseNodes {
		t.Errorf("merged bone index = %d, want %d", merged.BoneNodeIDs[0].Index(), baseNodes)
	}

	mergedChannel := dst.Animations[1].Channels[0]
	if mergedChannel.NodeID.Index() != baseNodes+1 {
		t.Errorf("merged channel target index = %d, want %d", mergedChannel.NodeID.Index(), baseNodes+1)
	}
}

func TestMergeLeavesExistingHalfUnchanged(t *testing.T) {
	dst := buildMergeScene(t)
	src := buildMergeScene(t)

	originalBody, _ := dst.GetNode(NodeID{index: 1})
	originalPosition := originalBody.Transform.Position()
	originalSkinOwner := dst.Skins[0].NodeID
	originalChannelTarget := dst.Animations[0].Channels[0].NodeID

	dst.Merge(src, MergeOffsets{})

	body, ok := dst.GetNode(NodeID{index: 1})
	if !ok {
		t.Fatal("pre-existing node became unreachable after merge")
	}
	if !vec3Near(body.Transform.Position(), originalPosition) {
		t.Errorf("pre-existing transform changed: %v, want %v", body.Transform.Position(), originalPosition)
	}
	if dst.Skins[0].NodeID != originalSkinOwner {
		t.Errorf("pre-existing skin owner changed: %v, want %v", dst.Skins[0].NodeID, originalSkinOwner)
	}
	if dst.Animations[0].Channels[0].NodeID != originalChannelTarget {
		t.Errorf("pre-existing channel target changed: %v, want %v",
			dst.Animations[0].Channels[0].NodeID, originalChannelTarget)
	}
	if body.Visual.MeshIndex != 2 || body.Visual.MaterialIndex != 1 {
		t.Errorf("pre-existing visual rewritten: mesh %d material %d, want 2/1",
			body.Visual.MeshIndex, body.Visual.MaterialIndex)
	}
}

func TestMergeCarriesFreeSlots(t *testing.T) {
	dst := buildMergeScene(t)
	src := buildMergeScene(t)

	removed := src.AddNode(NewNodeDesc())
	src.RemoveNode(removed)
	srcSlots := src.SlotCount()

	baseNodes := dst.SlotCount()
	dst.Merge(src, MergeOffsets{})

	// The merged tombstone must be reusable within the merged arena.
	fresh := dst.AddNode(NewNodeDesc())
	if fresh.Index() != baseNodes+srcSlots-1 {
		t.Errorf("reused slot index = %d, want %d", fresh.Index(), baseNodes+srcSlots-1)
	}
	assertNodeExists(t, dst, fresh)
}
