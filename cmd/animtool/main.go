// animtool is a CLI utility for inspecting and playing back glTF scene
// animations.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Faultbox/yggdrasil/internal/config"
	"github.com/Faultbox/yggdrasil/internal/engine/scene"
	"github.com/Faultbox/yggdrasil/internal/loader"
	"github.com/Faultbox/yggdrasil/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "play":
		cmdPlay(cfg, args)
	case "bones":
		cmdBones(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`animtool - glTF scene animation utility

Usage:
  animtool <command> [options]

Commands:
  info <file.gltf>                Show scene contents
  play <file.gltf> [animation]    Simulate animation playback
  bones <file.gltf>               Show skeletons and bone bounding boxes

Examples:
  animtool info character.glb
  animtool play character.glb walk -speed 2 -loop pingpong
  animtool bones character.glb`)
}

// resolveAsset searches the configured asset directories for the given path.
func resolveAsset(cfg *config.Config, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	for _, dir := range cfg.Assets.SearchPaths {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}

func loadScene(cfg *config.Config, path string) (*scene.Scene, *loader.SceneDescription) {
	resolved := resolveAsset(cfg, path)

	desc, err := loader.LoadFile(resolved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s, err := scene.New(desc.Nodes, desc.Skins, desc.Animations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building scene: %v\n", err)
		os.Exit(1)
	}
	return s, desc
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: animtool info <file.gltf>")
		os.Exit(1)
	}

	s, desc := loadScene(cfg, args[0])
	s.RecomputeAll(desc.MeshBounds())

	fmt.Printf("Scene:      %s\n", args[0])
	fmt.Printf("Nodes:      %d\n", s.NodeCount())
	fmt.Printf("Meshes:     %d\n", len(desc.Meshes))
	fmt.Printf("Skins:      %d\n", len(s.Skins))
	fmt.Printf("Animations: %d\n", len(s.Animations))

	if len(s.Animations) > 0 {
		fmt.Println()
		fmt.Println("Animations:")
		for i := range s.Animations {
			anim := &s.Animations[i]
			fmt.Printf("  %-24s %6.2fs  %d channels\n", anim.Name, anim.LengthSeconds, len(anim.Channels))
		}
	}

	visuals := 0
	s.EachNode(func(n *scene.Node) {
		if n.Visual == nil {
			return
		}
		visuals++
		sphere := s.CachedBoundingSphere(n.ID())
		fmt.Printf("  %-24s sphere center (%.2f, %.2f, %.2f) radius %.2f\n",
			nodeLabel(n), sphere.Center.X(), sphere.Center.Y(), sphere.Center.Z(), sphere.Radius)
	})
	if visuals > 0 {
		fmt.Printf("\n%d drawable nodes\n", visuals)
	}
}

func cmdPlay(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	speed := fs.Float64("speed", cfg.Playback.Speed, "Playback speed multiplier")
	loopName := fs.String("loop", cfg.Playback.Loop, "Loop mode: once, wrap or pingpong")
	tickRate := fs.Int("tickrate", cfg.Playback.TickRate, "Simulation steps per second")
	duration := fs.Float64("duration", cfg.Playback.MaxDuration, "Seconds to simulate (0 = one clip length)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: animtool play <file.gltf> [animation]")
		os.Exit(1)
	}

	loop, err := scene.ParseLoopMode(*loopName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *tickRate <= 0 {
		fmt.Fprintln(os.Stderr, "Error: tick rate must be positive")
		os.Exit(1)
	}
	if *speed <= 0 {
		fmt.Fprintln(os.Stderr, "Error: speed must be positive")
		os.Exit(1)
	}

	s, desc := loadScene(cfg, fs.Arg(0))
	if len(s.Animations) == 0 {
		fmt.Fprintln(os.Stderr, "Scene has no animations")
		os.Exit(1)
	}

	var anim *scene.Animation
	if fs.NArg() > 1 {
		found, ok := s.FindAnimation(fs.Arg(1))
		if !ok {
			fmt.Fprintf(os.Stderr, "Animation not found: %s\n", fs.Arg(1))
			os.Exit(1)
		}
		anim = found
	} else {
		anim = &s.Animations[0]
	}

	anim.Speed = float32(*speed)
	anim.Play(loop)

	simSeconds := *duration
	if simSeconds <= 0 {
		simSeconds = float64(anim.LengthSeconds) / *speed
	}

	dt := 1.0 / float64(*tickRate)
	steps := int(simSeconds / dt)
	for i := 0; i < steps; i++ {
		s.StepAnimations(dt)
	}
	s.RecomputeAll(desc.MeshBounds())

	fmt.Printf("Played %q for %.2fs (%d steps at %d Hz, speed %.2fx, %s)\n",
		anim.Name, simSeconds, steps, *tickRate, *speed, anim.State.Loop)
	fmt.Printf("Clip time: %.3fs  playing: %v\n", anim.State.CurrentTimeSeconds, anim.State.IsPlaying)
	fmt.Println()

	// Print the final pose of every animated node.
	seen := make(map[int]bool)
	for _, ch := range anim.Channels {
		if seen[ch.NodeID.Index()] {
			continue
		}
		seen[ch.NodeID.Index()] = true

		node, ok := s.GetNode(ch.NodeID)
		if !ok {
			continue
		}
		tf := s.GlobalTransform(ch.NodeID)
		pos := tf.Position()
		scl := tf.Scale()
		fmt.Printf("  %-24s pos (%.3f, %.3f, %.3f)  scale (%.3f, %.3f, %.3f)\n",
			nodeLabel(node), pos.X(), pos.Y(), pos.Z(), scl.X(), scl.Y(), scl.Z())
		if node.Visual != nil {
			sphere := s.CachedBoundingSphere(ch.NodeID)
			fmt.Printf("  %-24s sphere center (%.3f, %.3f, %.3f) radius %.3f\n",
				"", sphere.Center.X(), sphere.Center.Y(), sphere.Center.Z(), sphere.Radius)
		}
	}
}

func cmdBones(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: animtool bones <file.gltf>")
		os.Exit(1)
	}

	s, _ := loadScene(cfg, args[0])
	if len(s.Skins) == 0 {
		fmt.Fprintln(os.Stderr, "Scene has no skins")
		os.Exit(1)
	}

	for skinIndex := range s.Skins {
		skin := &s.Skins[skinIndex]
		rootName := "(missing)"
		if root, ok := s.GetNode(skin.NodeID); ok {
			rootName = nodeLabel(root)
		}
		fmt.Printf("Skin %d: root %s, %d bones\n", skinIndex, rootName, len(skin.BoneNodeIDs))

		for boneIndex, boneID := range skin.BoneNodeIDs {
			node, ok := s.GetNode(boneID)
			if !ok {
				fmt.Printf("  [%3d] (stale)\n", boneIndex)
				continue
			}
			depth := len(s.SkeletonAncestry(boneID, skin.NodeID))
			box := skin.BoneBoundingBoxTransforms[boneIndex]
			center := box.Position()
			half := box.Scale()
			fmt.Printf("  [%3d] %-24s depth %d  box center (%.2f, %.2f, %.2f) half (%.2f, %.2f, %.2f)\n",
				boneIndex, nodeLabel(node), depth,
				center.X(), center.Y(), center.Z(), half.X(), half.Y(), half.Z())
		}
	}
}

func nodeLabel(n *scene.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("node#%d", n.ID().Index())
}
