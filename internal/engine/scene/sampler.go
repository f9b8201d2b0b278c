package scene

import (
	"encoding/binary"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// keyframe locates one sample within a channel's keyframe time array.
type keyframe struct {
	index int
	time  float32
}

// nearbyKeyframes finds the keyframes surrounding t: prev is the last entry
// with time <= t (ties favor the later index), next the first entry with
// time > t. Either may be absent when t falls before the first or after the
// last sample, or when the array is empty.
func nearbyKeyframes(times []float32, t float32) (prev, next keyframe, hasPrev, hasNext bool) {
	for i, keyframeTime := range times {
		if keyframeTime <= t {
			prev = keyframe{index: i, time: keyframeTime}
			hasPrev = true
		} else {
			next = keyframe{index: i, time: keyframeTime}
			hasNext = true
			break
		}
	}
	return prev, next, hasPrev, hasNext
}

// sampleVec3 evaluates a translation or scale channel at time t.
func sampleVec3(ch *Channel, t float32) mgl32.Vec3 {
	prev, next, hasPrev, hasNext := nearbyKeyframes(ch.KeyframeTimes, t)

	// Before the first keyframe the first value is returned directly; for
	// cubic channels that is the middle "value" slot of the first triple.
	if !hasPrev {
		if ch.Interpolation == InterpolationCubicSpline {
			return vec3At(ch.KeyframeValues, 1)
		}
		return vec3At(ch.KeyframeValues, 0)
	}

	factor := float32(1.0)
	if hasNext {
		factor = (t - prev.time) / (next.time - prev.time)
	} else {
		next = prev
	}

	switch ch.Interpolation {
	case InterpolationStep:
		return vec3At(ch.KeyframeValues, prev.index)
	case InterpolationLinear:
		a := vec3At(ch.KeyframeValues, prev.index)
		b := vec3At(ch.KeyframeValues, next.index)
		return a.Mul(1 - factor).Add(b.Mul(factor))
	case InterpolationCubicSpline:
		c0, c1, c2, c3 := hermiteCoefficients(factor, next.time-prev.time)
		vk := vec3At(ch.KeyframeValues, prev.index*3+1)
		bk := vec3At(ch.KeyframeValues, prev.index*3+2)
		vk1 := vec3At(ch.KeyframeValues, next.index*3+1)
		ak1 := vec3At(ch.KeyframeValues, next.index*3)
		return vk.Mul(c0).Add(bk.Mul(c1)).Add(vk1.Mul(c2)).Add(ak1.Mul(c3))
	}
	return vec3At(ch.KeyframeValues, prev.index)
}

// sampleQuat evaluates a rotation channel at time t. Linear interpolation on
// rotations is spherical; cubic-spline results are re-normalized because
// Hermite interpolation does not preserve unit length.
func sampleQuat(ch *Channel, t float32) mgl32.Quat {
	prev, next, hasPrev, hasNext := nearbyKeyframes(ch.KeyframeTimes, t)

	if !hasPrev {
		if ch.Interpolation == InterpolationCubicSpline {
			return quatAt(ch.KeyframeValues, 1)
		}
		return quatAt(ch.KeyframeValues, 0)
	}

	factor := float32(1.0)
	if hasNext {
		factor = (t - prev.time) / (next.time - prev.time)
	} else {
		next = prev
	}

	switch ch.Interpolation {
	case InterpolationStep:
		return quatAt(ch.KeyframeValues, prev.index)
	case InterpolationLinear:
		a := quatAt(ch.KeyframeValues, prev.index)
		b := quatAt(ch.KeyframeValues, next.index)
		return mgl32.QuatSlerp(a, b, factor)
	case InterpolationCubicSpline:
		c0, c1, c2, c3 := hermiteCoefficients(factor, next.time-prev.time)
		vk := vec4At(ch.KeyframeValues, prev.index*3+1)
		bk := vec4At(ch.KeyframeValues, prev.index*3+2)
		vk1 := vec4At(ch.KeyframeValues, next.index*3+1)
		ak1 := vec4At(ch.KeyframeValues, next.index*3)
		raw := vk.Mul(c0).Add(bk.Mul(c1)).Add(vk1.Mul(c2)).Add(ak1.Mul(c3))
		return quatFromVec4(raw).Normalize()
	}
	return quatAt(ch.KeyframeValues, prev.index)
}

// hermiteCoefficients returns the glTF cubic-spline basis weights for the
// previous value, previous out-tangent, next value and next in-tangent, with
// delta the keyframe span length.
func hermiteCoefficients(t, delta float32) (c0, c1, c2, c3 float32) {
	t2 := t * t
	t3 := t2 * t
	c0 = 2*t3 - 3*t2 + 1
	c1 = delta * (t3 - 2*t2 + t)
	c2 = -2*t3 + 3*t2
	c3 = delta * (t3 - t2)
	return c0, c1, c2, c3
}

// float32At reads the i-th little-endian float32 from the raw value buffer.
// Indexing past the buffer is a loader contract violation, not a recoverable
// error.
func float32At(values []byte, i int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(values[i*4:]))
}

// vec3At reads the i-th 3-float element from the raw value buffer.
func vec3At(values []byte, i int) mgl32.Vec3 {
	base := i * 3
	return mgl32.Vec3{
		float32At(values, base),
		float32At(values, base+1),
		float32At(values, base+2),
	}
}

// vec4At reads the i-th 4-float element from the raw value buffer.
func vec4At(values []byte, i int) mgl32.Vec4 {
	base := i * 4
	return mgl32.Vec4{
		float32At(values, base),
		float32At(values, base+1),
		float32At(values, base+2),
		float32At(values, base+3),
	}
}

// quatAt reads the i-th x/y/z/w quaternion element from the raw value buffer.
func quatAt(values []byte, i int) mgl32.Quat {
	return quatFromVec4(vec4At(values, i))
}

func quatFromVec4(v mgl32.Vec4) mgl32.Quat {
	return mgl32.Quat{W: v.W(), V: mgl32.Vec3{v.X(), v.Y(), v.Z()}}
}
