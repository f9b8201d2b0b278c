package loader

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/yggdrasil/internal/engine/scene"
)

const epsilon = 1e-4

func vec3Near(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < epsilon
}

func TestParentIndexes(t *testing.T) {
	doc := &gltf.Document{
		Nodes: []*gltf.Node{
			{Children: []uint32{1, 2}},
			{Children: []uint32{3}},
			{},
			{},
		},
	}

	parents := parentIndexes(doc)

	if len(parents) != 3 {
		t.Fatalf("parent map size = %d, want 3", len(parents))
	}
	if parents[1] != 0 || parents[2] != 0 {
		t.Errorf("nodes 1 and 2 should parent to 0, got %d and %d", parents[1], parents[2])
	}
	if parents[3] != 1 {
		t.Errorf("node 3 should parent to 1, got %d", parents[3])
	}
	if _, ok := parents[0]; ok {
		t.Error("root node should have no parent entry")
	}
}

func TestNodeTransformDefaults(t *testing.T) {
	// A node with all TRS fields at their zero value decodes to the
	// identity transform, not zero scale.
	tf := nodeTransform(&gltf.Node{})

	if !vec3Near(tf.Scale(), mgl32.Vec3{1, 1, 1}) {
		t.Errorf("scale = %v, want (1,1,1)", tf.Scale())
	}
	if tf.Rotation().W != 1 {
		t.Errorf("rotation = %v, want identity", tf.Rotation())
	}
	if !vec3Near(tf.Position(), mgl32.Vec3{}) {
		t.Errorf("position = %v, want origin", tf.Position())
	}
}

func TestNodeTransformTRS(t *testing.T) {
	tf := nodeTransform(&gltf.Node{
		Translation: [3]float32{1, 2, 3},
		Rotation:    [4]float32{0, 0, 0, 1},
		Scale:       [3]float32{2, 2, 2},
	})

	if !vec3Near(tf.Position(), mgl32.Vec3{1, 2, 3}) {
		t.Errorf("position = %v, want (1,2,3)", tf.Position())
	}
	if !vec3Near(tf.Scale(), mgl32.Vec3{2, 2, 2}) {
		t.Errorf("scale = %v, want (2,2,2)", tf.Scale())
	}
}

func TestNodeTransformMatrixDecomposition(t *testing.T) {
	// Compose a known TRS matrix and check decomposition recovers the
	// components.
	rot := mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(5, 0, -1).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(2, 3, 4))

	var raw [16]float32
	copy(raw[:], m[:])
	tf := nodeTransform(&gltf.Node{Matrix: raw})

	if !vec3Near(tf.Position(), mgl32.Vec3{5, 0, -1}) {
		t.Errorf("position = %v, want (5,0,-1)", tf.Position())
	}
	if !vec3Near(tf.Scale(), mgl32.Vec3{2, 3, 4}) {
		t.Errorf("scale = %v, want (2,3,4)", tf.Scale())
	}

	// Compare rotations by their effect on a reference point.
	p := mgl32.Vec3{1, 0, 0}
	got := tf.Rotation().Rotate(p)
	want := rot.Rotate(p)
	if !vec3Near(got, want) {
		t.Errorf("rotated point = %v, want %v", got, want)
	}
}

func TestBoneBoxTransformDominantVertices(t *testing.T) {
	data := primitiveData{
		positions: [][3]float32{
			{1, 0, 0},
			{3, 0, 0},
			{0, 5, 0}, // belongs to bone 1
		},
		joints: [][4]uint16{
			{0, 1, 0, 0},
			{0, 1, 0, 0},
			{1, 0, 0, 0},
		},
		weights: [][4]float32{
			{0.9, 0.1, 0, 0},
			{0.8, 0.2, 0, 0},
			{1, 0, 0, 0},
		},
	}

	tf := boneBoxTransform(data, mgl32.Ident4(), 0)

	if !vec3Near(tf.Position(), mgl32.Vec3{2, 0, 0}) {
		t.Errorf("box center = %v, want (2,0,0)", tf.Position())
	}
	if !vec3Near(tf.Scale(), mgl32.Vec3{1, 0, 0}) {
		t.Errorf("box half extents = %v, want (1,0,0)", tf.Scale())
	}
}

func TestBoneBoxTransformNoDominantVerticesCollapses(t *testing.T) {
	data := primitiveData{
		positions: [][3]float32{{1, 1, 1}},
		joints:    [][4]uint16{{0, 1, 0, 0}},
		weights:   [][4]float32{{0.5, 0.5, 0, 0}}, // exactly at threshold, excluded
	}

	tf := boneBoxTransform(data, mgl32.Ident4(), 0)

	if !vec3Near(tf.Scale(), mgl32.Vec3{0, 0, 0}) {
		t.Errorf("scale = %v, want zero for bone with no dominant vertices", tf.Scale())
	}
}

func TestBoneBoxTransformAppliesInverseBind(t *testing.T) {
	// Inverse bind translating by (-2,0,0) moves the vertex into bone space.
	data := primitiveData{
		positions: [][3]float32{{2, 0, 0}},
		joints:    [][4]uint16{{0, 0, 0, 0}},
		weights:   [][4]float32{{1, 0, 0, 0}},
	}

	tf := boneBoxTransform(data, mgl32.Translate3D(-2, 0, 0), 0)

	if !vec3Near(tf.Position(), mgl32.Vec3{0, 0, 0}) {
		t.Errorf("box center = %v, want origin in bone space", tf.Position())
	}
}

func TestTargetProperty(t *testing.T) {
	if p, ok := targetProperty(gltf.TRSTranslation); !ok || p != scene.PropertyTranslation {
		t.Errorf("translation path mapped to %v, %v", p, ok)
	}
	if p, ok := targetProperty(gltf.TRSRotation); !ok || p != scene.PropertyRotation {
		t.Errorf("rotation path mapped to %v, %v", p, ok)
	}
	if p, ok := targetProperty(gltf.TRSScale); !ok || p != scene.PropertyScale {
		t.Errorf("scale path mapped to %v, %v", p, ok)
	}
	if _, ok := targetProperty(gltf.TRSWeights); ok {
		t.Error("weights path should not map to a target property")
	}
}

func TestInterpolationMode(t *testing.T) {
	if interpolationMode(gltf.InterpolationStep) != scene.InterpolationStep {
		t.Error("step mode not mapped")
	}
	if interpolationMode(gltf.InterpolationCubicSpline) != scene.InterpolationCubicSpline {
		t.Error("cubic spline mode not mapped")
	}
	if interpolationMode(gltf.InterpolationLinear) != scene.InterpolationLinear {
		t.Error("linear mode not mapped")
	}
}

func TestFlattenMatrix(t *testing.T) {
	m := flattenMatrix([4][4]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{7, 8, 9, 1},
	})

	want := mgl32.Translate3D(7, 8, 9)
	if m != want {
		t.Errorf("flattened matrix = %v, want %v", m, want)
	}
}

// animationTestDocument builds a document with one node and two accessors
// backed by an embedded buffer: scalar keyframe times [0, 1] and vec3 values
// (0,0,0) -> (10,0,0).
func animationTestDocument() *gltf.Document {
	var data []byte
	for _, v := range []float32{0, 1, 0, 0, 0, 10, 0, 0} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}

	return &gltf.Document{
		Nodes: []*gltf.Node{{}},
		Buffers: []*gltf.Buffer{
			{ByteLength: uint32(len(data)), Data: data},
		},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 8},
			{Buffer: 0, ByteOffset: 8, ByteLength: 24},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Count: 2, Type: gltf.AccessorScalar},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Count: 2, Type: gltf.AccessorVec3},
		},
	}
}

func TestDecodeAnimationReadsSamplerAccessors(t *testing.T) {
	doc := animationTestDocument()
	anim := &gltf.Animation{
		Name: "slide",
		Samplers: []*gltf.AnimationSampler{{
			Input:         gltf.Index(0),
			Output:        gltf.Index(1),
			Interpolation: gltf.InterpolationLinear,
		}},
		Channels: []*gltf.Channel{{
			Sampler: gltf.Index(0),
			Target:  gltf.ChannelTarget{Node: gltf.Index(0), Path: gltf.TRSTranslation},
		}},
	}

	indexed, err := decodeAnimation(doc, anim)
	if err != nil {
		t.Fatalf("decodeAnimation() failed: %v", err)
	}

	if indexed.Name != "slide" {
		t.Errorf("name = %q, want slide", indexed.Name)
	}
	if indexed.LengthSeconds != 1 {
		t.Errorf("length = %f, want 1", indexed.LengthSeconds)
	}
	if len(indexed.Channels) != 1 {
		t.Fatalf("channel count = %d, want 1", len(indexed.Channels))
	}

	ch := indexed.Channels[0]
	if ch.NodeIndex != 0 || ch.Property != scene.PropertyTranslation || ch.Interpolation != scene.InterpolationLinear {
		t.Errorf("channel = %+v, want linear translation targeting node 0", ch)
	}
	if len(ch.KeyframeTimes) != 2 || ch.KeyframeTimes[1] != 1 {
		t.Errorf("keyframe times = %v, want [0 1]", ch.KeyframeTimes)
	}
	if len(ch.KeyframeValues) != 24 {
		t.Fatalf("value buffer length = %d, want 24", len(ch.KeyframeValues))
	}
	secondX := math.Float32frombits(binary.LittleEndian.Uint32(ch.KeyframeValues[12:]))
	if secondX != 10 {
		t.Errorf("second keyframe x = %f, want 10", secondX)
	}
}

func TestDecodeAnimationSkipsUnboundChannels(t *testing.T) {
	doc := animationTestDocument()
	anim := &gltf.Animation{
		Samplers: []*gltf.AnimationSampler{{
			Input:  gltf.Index(0),
			Output: gltf.Index(1),
		}},
		Channels: []*gltf.Channel{
			// No sampler bound.
			{Target: gltf.ChannelTarget{Node: gltf.Index(0), Path: gltf.TRSTranslation}},
			// No target node.
			{Sampler: gltf.Index(0), Target: gltf.ChannelTarget{Path: gltf.TRSTranslation}},
		},
	}

	indexed, err := decodeAnimation(doc, anim)
	if err != nil {
		t.Fatalf("decodeAnimation() failed: %v", err)
	}
	if len(indexed.Channels) != 0 {
		t.Errorf("channel count = %d, want 0 for unbound channels", len(indexed.Channels))
	}
}

func TestMeshBoundsOutOfRange(t *testing.T) {
	desc := &SceneDescription{Meshes: []MeshEntry{{HasBounds: false}}}
	bounds := desc.MeshBounds()

	if _, ok := bounds(-1); ok {
		t.Error("negative mesh index should report no bounds")
	}
	if _, ok := bounds(1); ok {
		t.Error("out of range mesh index should report no bounds")
	}
	if _, ok := bounds(0); ok {
		t.Error("entry without positions should report no bounds")
	}
}
