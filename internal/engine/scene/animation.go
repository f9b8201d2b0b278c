package scene

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// TargetProperty selects which transform component an animation channel
// writes.
type TargetProperty int

const (
	PropertyTranslation TargetProperty = iota
	PropertyScale
	PropertyRotation
)

// String implements fmt.Stringer.
func (p TargetProperty) String() string {
	switch p {
	case PropertyTranslation:
		return "translation"
	case PropertyScale:
		return "scale"
	case PropertyRotation:
		return "rotation"
	}
	return fmt.Sprintf("property(%d)", int(p))
}

// Interpolation selects how keyframe values are blended between samples.
type Interpolation int

const (
	InterpolationStep Interpolation = iota
	InterpolationLinear
	InterpolationCubicSpline
)

// String implements fmt.Stringer.
func (i Interpolation) String() string {
	switch i {
	case InterpolationStep:
		return "step"
	case InterpolationLinear:
		return "linear"
	case InterpolationCubicSpline:
		return "cubic-spline"
	}
	return fmt.Sprintf("interpolation(%d)", int(i))
}

// LoopMode is the play-head wrapping policy.
type LoopMode int

const (
	// LoopOnce stops playback after one run through the clip.
	LoopOnce LoopMode = iota
	// LoopWrap restarts from the beginning each cycle.
	LoopWrap
	// LoopPingPong traverses the clip backward on every odd cycle.
	LoopPingPong
)

// String implements fmt.Stringer.
func (m LoopMode) String() string {
	switch m {
	case LoopOnce:
		return "once"
	case LoopWrap:
		return "wrap"
	case LoopPingPong:
		return "pingpong"
	}
	return fmt.Sprintf("loop(%d)", int(m))
}

// ParseLoopMode converts a config/CLI string to a LoopMode.
func ParseLoopMode(s string) (LoopMode, error) {
	switch s {
	case "once":
		return LoopOnce, nil
	case "wrap":
		return LoopWrap, nil
	case "pingpong":
		return LoopPingPong, nil
	}
	return LoopOnce, fmt.Errorf("unknown loop mode %q", s)
}

// Channel is one animated property stream for one node. KeyframeValues is the
// raw little-endian float32 buffer whose element layout depends on the
// property (3 floats for translation/scale, 4 for rotation) and interpolation
// mode (cubic-spline triples each element into in-tangent/value/out-tangent).
// The loader validates layout and arity; this package does not re-check.
type Channel struct {
	NodeID         NodeID
	Property       TargetProperty
	Interpolation  Interpolation
	KeyframeTimes  []float32
	KeyframeValues []byte
}

// AnimationState is the mutable playback state of one animation.
type AnimationState struct {
	CurrentTimeSeconds float32
	IsPlaying          bool
	Loop               LoopMode
}

// Animation is a named set of channels sharing one play-head.
// LengthSeconds is the maximum keyframe time across all channels.
type Animation struct {
	Name          string
	LengthSeconds float32
	Speed         float32
	Channels      []Channel
	State         AnimationState
}

// Play starts or resumes playback under the given loop mode.
func (a *Animation) Play(loop LoopMode) {
	a.State.Loop = loop
	a.State.IsPlaying = true
}

// Pause stops advancing the play-head, keeping the current time.
func (a *Animation) Pause() {
	a.State.IsPlaying = false
}

// Reset rewinds the play-head to the start of the clip.
func (a *Animation) Reset() {
	a.State.CurrentTimeSeconds = 0
}

// FindAnimation returns the first animation with the given name.
func (s *Scene) FindAnimation(name string) (*Animation, bool) {
	for i := range s.Animations {
		if s.Animations[i].Name == name {
			return &s.Animations[i], true
		}
	}
	return nil, false
}

// IndexedAnimation is the loader-facing animation description.
type IndexedAnimation struct {
	Name          string
	LengthSeconds float32
	Channels      []IndexedChannel
}

// IndexedChannel is the loader-facing channel description: the target is a
// flat node list index.
type IndexedChannel struct {
	NodeIndex      int
	Property       TargetProperty
	Interpolation  Interpolation
	KeyframeTimes  []float32
	KeyframeValues []byte
}

// nodeWrite is one staged channel result, applied after all sampling so that
// a channel never observes another channel's half-applied write within the
// same tick.
type nodeWrite struct {
	nodeID   NodeID
	property TargetProperty
	vec      mgl32.Vec3
	quat     mgl32.Quat
}

// StepAnimations advances every playing animation by dtSeconds and writes the
// sampled channel values into the target nodes' local transforms. Writes are
// batched: all channels of all animations are sampled against the previous
// tick's transforms first, then applied. Channels whose target node no longer
// exists sample normally but their write is dropped.
func (s *Scene) StepAnimations(dtSeconds float64) {
	var writes []nodeWrite

	for i := range s.Animations {
		anim := &s.Animations[i]
		state := &anim.State
		if !state.IsPlaying {
			continue
		}

		state.CurrentTimeSeconds += float32(dtSeconds) * anim.Speed
		if state.Loop == LoopOnce && state.CurrentTimeSeconds > anim.LengthSeconds {
			state.CurrentTimeSeconds = 0
			state.IsPlaying = false
		}

		evalTime := evaluationTime(state.CurrentTimeSeconds, anim.LengthSeconds, state.Loop)

		for ci := range anim.Channels {
			ch := &anim.Channels[ci]
			write := nodeWrite{nodeID: ch.NodeID, property: ch.Property}
			switch ch.Property {
			case PropertyTranslation, PropertyScale:
				write.vec = sampleVec3(ch, evalTime)
			case PropertyRotation:
				write.quat = sampleQuat(ch, evalTime)
			default:
				continue
			}
			writes = append(writes, write)
		}
	}

	for _, w := range writes {
		node, ok := s.GetNode(w.nodeID)
		if !ok {
			continue
		}
		switch w.property {
		case PropertyTranslation:
			node.Transform.SetPosition(w.vec)
		case PropertyScale:
			node.Transform.SetScale(w.vec)
		case PropertyRotation:
			node.Transform.SetRotation(w.quat)
		}
	}
}

// evaluationTime maps the accumulated play-head time onto the clip under the
// loop policy. PingPong runs the clip forward on even cycles and backward on
// odd ones.
func evaluationTime(currentTime, length float32, loop LoopMode) float32 {
	if length <= 0 {
		return 0
	}
	switch loop {
	case LoopPingPong:
		cycle := int32(gomath.Floor(float64(currentTime / length)))
		if cycle%2 == 0 {
			return fmod(currentTime, length)
		}
		return length - fmod(currentTime, length)
	default:
		return fmod(currentTime, length)
	}
}

func fmod(a, b float32) float32 {
	return float32(gomath.Mod(float64(a), float64(b)))
}
