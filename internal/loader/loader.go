// Package loader decodes glTF documents into the flat scene description the
// runtime scene graph consumes: node descriptors, skins with precomputed
// bone bounding boxes, and animation channels with raw keyframe buffers.
// All content validation happens here; the scene core trusts its output.
package loader

import (
	"encoding/binary"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/yggdrasil/internal/engine/collision"
	"github.com/Faultbox/yggdrasil/internal/engine/scene"
	"github.com/Faultbox/yggdrasil/internal/engine/transform"
	"github.com/Faultbox/yggdrasil/internal/logger"
)

// boneWeightThreshold is the dominance cutoff for assigning a vertex to a
// bone when deriving per-bone bounding boxes.
const boneWeightThreshold = 0.5

// MeshEntry is one drawable unit: a glTF primitive flattened into the global
// mesh list referenced by node visuals.
type MeshEntry struct {
	Name      string
	Bounds    collision.AABB
	HasBounds bool
}

// SceneDescription is the loader output consumed by scene.New.
type SceneDescription struct {
	Nodes      []scene.IndexedNodeDesc
	Skins      []scene.IndexedSkin
	Animations []scene.IndexedAnimation
	Meshes     []MeshEntry
}

// MeshBounds returns the lookup the scene graph uses to derive bounding
// spheres.
func (d *SceneDescription) MeshBounds() scene.MeshBoundsFunc {
	return func(meshIndex int) (collision.AABB, bool) {
		if meshIndex < 0 || meshIndex >= len(d.Meshes) {
			return collision.AABB{}, false
		}
		entry := d.Meshes[meshIndex]
		return entry.Bounds, entry.HasBounds
	}
}

// primitiveData keeps the vertex streams of one mesh entry alive through the
// skin pass, where bone bounding boxes are derived from them.
type primitiveData struct {
	positions [][3]float32
	joints    [][4]uint16
	weights   [][4]float32
}

// LoadFile opens and decodes a .gltf or .glb file.
func LoadFile(path string) (*SceneDescription, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening gltf file %s", path)
	}
	desc, err := Decode(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding gltf file %s", path)
	}
	return desc, nil
}

// Decode converts a parsed glTF document into a flat scene description.
func Decode(doc *gltf.Document) (*SceneDescription, error) {
	desc := &SceneDescription{}

	// Mesh pass: flatten primitives into the global mesh entry list.
	// firstEntry[m] is the entry index of mesh m's first primitive.
	firstEntry := make([]int, len(doc.Meshes))
	entryCount := make([]int, len(doc.Meshes))
	var primitives []primitiveData

	for meshIndex, mesh := range doc.Meshes {
		firstEntry[meshIndex] = len(desc.Meshes)
		entryCount[meshIndex] = len(mesh.Primitives)
		for primIndex, prim := range mesh.Primitives {
			data, bounds, hasBounds, err := readPrimitive(doc, prim)
			if err != nil {
				return nil, errors.Wrapf(err, "mesh %d primitive %d", meshIndex, primIndex)
			}
			desc.Meshes = append(desc.Meshes, MeshEntry{
				Name:      mesh.Name,
				Bounds:    bounds,
				HasBounds: hasBounds,
			})
			primitives = append(primitives, data)
		}
	}

	// Node pass: invert children lists into parent indices, then emit one
	// descriptor per node. Extra primitives on a node's mesh become
	// auto-children appended after the original nodes, keeping glTF node
	// indices stable for skin and animation references.
	parents := parentIndexes(doc)
	var autoChildren []scene.IndexedNodeDesc

	for nodeIndex, node := range doc.Nodes {
		nodeDesc := scene.IndexedNodeDesc{
			Transform: nodeTransform(node),
			SkinIndex: -1,
			Name:      node.Name,
		}
		if parent, ok := parents[nodeIndex]; ok {
			p := parent
			nodeDesc.ParentIndex = &p
		}
		if node.Skin != nil {
			nodeDesc.SkinIndex = int(*node.Skin)
		}
		if node.Mesh != nil {
			meshIndex := int(*node.Mesh)
			if meshIndex >= len(doc.Meshes) {
				return nil, errors.Errorf("node %d references mesh %d out of range", nodeIndex, meshIndex)
			}
			if entryCount[meshIndex] > 0 {
				nodeDesc.Visual = &scene.Visual{
					MeshIndex:     firstEntry[meshIndex],
					MaterialIndex: primitiveMaterial(doc.Meshes[meshIndex].Primitives[0]),
					Cullable:      true,
				}
			}
			for extra := 1; extra < entryCount[meshIndex]; extra++ {
				parent := nodeIndex
				autoChildren = append(autoChildren, scene.IndexedNodeDesc{
					Transform:   transform.Identity(),
					SkinIndex:   -1,
					Name:        node.Name,
					ParentIndex: &parent,
					Visual: &scene.Visual{
						MeshIndex:     firstEntry[meshIndex] + extra,
						MaterialIndex: primitiveMaterial(doc.Meshes[meshIndex].Primitives[extra]),
						Cullable:      true,
					},
				})
			}
		}
		desc.Nodes = append(desc.Nodes, nodeDesc)
	}
	desc.Nodes = append(desc.Nodes, autoChildren...)

	// Skin pass.
	for skinIndex, skin := range doc.Skins {
		indexed, err := decodeSkin(doc, skin, skinIndex, desc.Nodes, firstEntry, primitives)
		if err != nil {
			return nil, errors.Wrapf(err, "skin %d", skinIndex)
		}
		desc.Skins = append(desc.Skins, indexed)
	}

	// Animation pass.
	for animIndex, anim := range doc.Animations {
		indexed, err := decodeAnimation(doc, anim)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d", animIndex)
		}
		desc.Animations = append(desc.Animations, indexed)
	}

	logger.Debug("decoded gltf document",
		zap.Int("nodes", len(desc.Nodes)),
		zap.Int("meshes", len(desc.Meshes)),
		zap.Int("skins", len(desc.Skins)),
		zap.Int("animations", len(desc.Animations)))

	return desc, nil
}

// parentIndexes inverts the document's children lists into a child-to-parent
// map.
func parentIndexes(doc *gltf.Document) map[int]int {
	parents := make(map[int]int)
	for nodeIndex, node := range doc.Nodes {
		for _, child := range node.Children {
			parents[int(child)] = nodeIndex
		}
	}
	return parents
}

// nodeTransform extracts a node's local transform, handling both the TRS and
// matrix representations. glTF leaves unset TRS fields at their zero value,
// so scale and rotation are defaulted before use.
func nodeTransform(node *gltf.Node) transform.Transform {
	if m := mgl32.Mat4(node.Matrix); !isZeroMatrix(m) && !isIdentityMatrix(m) {
		return decomposeMatrix(m)
	}

	scaleVec := mgl32.Vec3(node.Scale)
	if scaleVec == (mgl32.Vec3{}) {
		scaleVec = mgl32.Vec3{1, 1, 1}
	}
	rot := mgl32.Quat{
		W: node.Rotation[3],
		V: mgl32.Vec3{node.Rotation[0], node.Rotation[1], node.Rotation[2]},
	}
	if rot.W == 0 && rot.V == (mgl32.Vec3{}) {
		rot = mgl32.QuatIdent()
	}

	return transform.New(mgl32.Vec3(node.Translation), rot, scaleVec)
}

func isZeroMatrix(m mgl32.Mat4) bool {
	return m == mgl32.Mat4{}
}

func isIdentityMatrix(m mgl32.Mat4) bool {
	return m == mgl32.Ident4()
}

// decomposeMatrix splits a TRS matrix into transform components: translation
// from the last column, per-axis scale from the basis column lengths, and
// rotation from the normalized basis. Shear is not representable and is
// discarded.
func decomposeMatrix(m mgl32.Mat4) transform.Transform {
	position := m.Col(3).Vec3()

	c0 := m.Col(0).Vec3()
	c1 := m.Col(1).Vec3()
	c2 := m.Col(2).Vec3()
	scaleVec := mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}

	rot := mgl32.QuatIdent()
	if scaleVec.X() > 0 && scaleVec.Y() > 0 && scaleVec.Z() > 0 {
		c0n := c0.Mul(1 / scaleVec.X())
		c1n := c1.Mul(1 / scaleVec.Y())
		c2n := c2.Mul(1 / scaleVec.Z())
		rotationMatrix := mgl32.Mat4{
			c0n.X(), c0n.Y(), c0n.Z(), 0,
			c1n.X(), c1n.Y(), c1n.Z(), 0,
			c2n.X(), c2n.Y(), c2n.Z(), 0,
			0, 0, 0, 1,
		}
		rot = mgl32.Mat4ToQuat(rotationMatrix).Normalize()
	}

	return transform.New(position, rot, scaleVec)
}

func primitiveMaterial(prim *gltf.Primitive) int {
	if prim.Material == nil {
		return -1
	}
	return int(*prim.Material)
}

// readPrimitive pulls the vertex streams needed downstream: positions for
// bounds, joints and weights for bone boxes. Primitives without positions
// produce an entry without bounds.
func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (primitiveData, collision.AABB, bool, error) {
	var data primitiveData

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return data, collision.AABB{}, false, nil
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posAccessor], nil)
	if err != nil {
		return data, collision.AABB{}, false, errors.Wrap(err, "reading positions")
	}
	data.positions = positions

	if jointsAccessor, ok := prim.Attributes["JOINTS_0"]; ok {
		data.joints, err = modeler.ReadJoints(doc, doc.Accessors[jointsAccessor], nil)
		if err != nil {
			return data, collision.AABB{}, false, errors.Wrap(err, "reading joints")
		}
	}
	if weightsAccessor, ok := prim.Attributes["WEIGHTS_0"]; ok {
		data.weights, err = modeler.ReadWeights(doc, doc.Accessors[weightsAccessor], nil)
		if err != nil {
			return data, collision.AABB{}, false, errors.Wrap(err, "reading weights")
		}
	}

	points := make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		points[i] = mgl32.Vec3(p)
	}
	bounds, hasBounds := collision.FromPoints(points)
	return data, bounds, hasBounds, nil
}

// decodeSkin reads joints and inverse bind matrices and derives the per-bone
// bounding box transforms from the skinned mesh's vertex weights.
func decodeSkin(doc *gltf.Document, skin *gltf.Skin, skinIndex int,
	nodes []scene.IndexedNodeDesc, firstEntry []int, primitives []primitiveData) (scene.IndexedSkin, error) {

	indexed := scene.IndexedSkin{
		BoneNodeIndices: make([]int, len(skin.Joints)),
	}
	for i, joint := range skin.Joints {
		indexed.BoneNodeIndices[i] = int(joint)
	}

	if skin.InverseBindMatrices != nil {
		raw, err := modeler.ReadAccessor(doc, doc.Accessors[*skin.InverseBindMatrices], nil)
		if err != nil {
			return indexed, errors.Wrap(err, "reading inverse bind matrices")
		}
		matrices, ok := raw.([][4][4]float32)
		if !ok {
			return indexed, errors.Errorf("inverse bind matrix accessor has unexpected type %T", raw)
		}
		if len(matrices) != len(skin.Joints) {
			return indexed, errors.Errorf("inverse bind matrix count %d != joint count %d", len(matrices), len(skin.Joints))
		}
		indexed.BoneInverseBindMatrices = make([]mgl32.Mat4, len(matrices))
		for i, m := range matrices {
			indexed.BoneInverseBindMatrices[i] = flattenMatrix(m)
		}
	} else {
		indexed.BoneInverseBindMatrices = make([]mgl32.Mat4, len(skin.Joints))
		for i := range indexed.BoneInverseBindMatrices {
			indexed.BoneInverseBindMatrices[i] = mgl32.Ident4()
		}
	}

	data, ok := skinMeshData(doc, skinIndex, firstEntry, primitives)
	if !ok {
		logger.Debug("skin has no skinned mesh, bone boxes collapsed", zap.Int("skin", skinIndex))
	}

	indexed.BoneBoundingBoxTransforms = make([]transform.Transform, len(skin.Joints))
	for boneIndex := range skin.Joints {
		indexed.BoneBoundingBoxTransforms[boneIndex] = boneBoxTransform(
			data, indexed.BoneInverseBindMatrices[boneIndex], boneIndex)
	}

	return indexed, nil
}

// skinMeshData finds the vertex streams of the mesh deformed by the skin:
// the first primitive of the mesh on the node that references the skin.
func skinMeshData(doc *gltf.Document, skinIndex int, firstEntry []int, primitives []primitiveData) (primitiveData, bool) {
	for _, node := range doc.Nodes {
		if node.Skin == nil || int(*node.Skin) != skinIndex || node.Mesh == nil {
			continue
		}
		meshIndex := int(*node.Mesh)
		if meshIndex >= len(firstEntry) {
			return primitiveData{}, false
		}
		entry := firstEntry[meshIndex]
		if entry >= len(primitives) {
			return primitiveData{}, false
		}
		return primitives[entry], true
	}
	return primitiveData{}, false
}

// boneBoxTransform derives the load-time bounding box for one bone: an AABB
// in bone space around the vertices whose dominant weight for this bone
// exceeds the threshold, expressed as a transform moving a 2x2x2 origin box.
// Bones with no dominant vertices collapse to zero scale.
func boneBoxTransform(data primitiveData, inverseBind mgl32.Mat4, boneIndex int) transform.Transform {
	var points []mgl32.Vec3
	for v := range data.positions {
		if v >= len(data.joints) || v >= len(data.weights) {
			break
		}
		for slot := 0; slot < 4; slot++ {
			if int(data.joints[v][slot]) == boneIndex && data.weights[v][slot] > boneWeightThreshold {
				points = append(points, mgl32.TransformCoordinate(mgl32.Vec3(data.positions[v]), inverseBind))
				break
			}
		}
	}

	box, ok := collision.FromPoints(points)
	if !ok {
		return transform.NewBuilder().Scale(mgl32.Vec3{0, 0, 0}).Build()
	}
	return transform.NewBuilder().
		Position(box.Center()).
		Scale(box.HalfExtents()).
		Build()
}

// decodeAnimation converts one glTF animation: keyframe times come from the
// sampler input accessor, values are re-encoded into the raw little-endian
// buffer the runtime sampler indexes. The clip length is the maximum last
// keyframe time across channels.
func decodeAnimation(doc *gltf.Document, anim *gltf.Animation) (scene.IndexedAnimation, error) {
	indexed := scene.IndexedAnimation{Name: anim.Name}

	for channelIndex, channel := range anim.Channels {
		if channel.Target.Node == nil || channel.Sampler == nil {
			continue
		}
		property, ok := targetProperty(channel.Target.Path)
		if !ok {
			// Morph target weights are not animatable scene properties here.
			logger.Debug("skipping unsupported animation channel",
				zap.String("animation", anim.Name),
				zap.Int("channel", channelIndex))
			continue
		}

		sampler := anim.Samplers[*channel.Sampler]
		if sampler.Input == nil || sampler.Output == nil {
			continue
		}

		rawTimes, err := modeler.ReadAccessor(doc, doc.Accessors[*sampler.Input], nil)
		if err != nil {
			return indexed, errors.Wrapf(err, "channel %d: reading keyframe times", channelIndex)
		}
		times, ok := rawTimes.([]float32)
		if !ok {
			return indexed, errors.Errorf("channel %d: keyframe time accessor has unexpected type %T", channelIndex, rawTimes)
		}

		values, err := readChannelValues(doc, *sampler.Output)
		if err != nil {
			return indexed, errors.Wrapf(err, "channel %d: reading keyframe values", channelIndex)
		}

		if len(times) > 0 {
			if last := times[len(times)-1]; last > indexed.LengthSeconds {
				indexed.LengthSeconds = last
			}
		}

		indexed.Channels = append(indexed.Channels, scene.IndexedChannel{
			NodeIndex:      int(*channel.Target.Node),
			Property:       property,
			Interpolation:  interpolationMode(sampler.Interpolation),
			KeyframeTimes:  times,
			KeyframeValues: values,
		})
	}

	return indexed, nil
}

func targetProperty(path gltf.TRSProperty) (scene.TargetProperty, bool) {
	switch path {
	case gltf.TRSTranslation:
		return scene.PropertyTranslation, true
	case gltf.TRSScale:
		return scene.PropertyScale, true
	case gltf.TRSRotation:
		return scene.PropertyRotation, true
	}
	return 0, false
}

func interpolationMode(in gltf.Interpolation) scene.Interpolation {
	switch in {
	case gltf.InterpolationStep:
		return scene.InterpolationStep
	case gltf.InterpolationCubicSpline:
		return scene.InterpolationCubicSpline
	default:
		return scene.InterpolationLinear
	}
}

// readChannelValues re-encodes an output accessor's float elements as the
// raw little-endian buffer the sampler indexes directly.
func readChannelValues(doc *gltf.Document, accessorIndex uint32) ([]byte, error) {
	raw, err := modeler.ReadAccessor(doc, doc.Accessors[accessorIndex], nil)
	if err != nil {
		return nil, err
	}

	switch typed := raw.(type) {
	case [][3]float32:
		out := make([]byte, 0, len(typed)*3*4)
		for _, v := range typed {
			out = appendFloats(out, v[:])
		}
		return out, nil
	case [][4]float32:
		out := make([]byte, 0, len(typed)*4*4)
		for _, v := range typed {
			out = appendFloats(out, v[:])
		}
		return out, nil
	}
	return nil, errors.Errorf("keyframe value accessor has unexpected type %T", raw)
}

func appendFloats(out []byte, values []float32) []byte {
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, gomath.Float32bits(v))
	}
	return out
}

// flattenMatrix converts a glTF column-major [4][4] matrix into mgl32's flat
// column-major layout.
func flattenMatrix(m [4][4]float32) mgl32.Mat4 {
	var out mgl32.Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[col*4+row] = m[col][row]
		}
	}
	return out
}
