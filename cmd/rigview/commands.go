package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rigview/internal/anim"
	"github.com/Faultbox/rigview/internal/config"
	"github.com/Faultbox/rigview/internal/logger"
	"github.com/Faultbox/rigview/internal/model"
)

// session is the state every model command starts from.
type session struct {
	cfg   *config.Config
	src   modelSource
	model *model.Model
}

// parseCommand registers the shared flags plus extra on a new flag set,
// parses args, loads the config and initializes logging.
func parseCommand(name string, args []string, extra func(fs *flag.FlagSet)) (*flag.FlagSet, *config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, errUsage
		}
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.InitWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: os.Stderr,
		File:    logFile(cfg.Logging.LogFile),
	}); err != nil {
		return nil, nil, err
	}
	return fs, cfg, nil
}

func logFile(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

// openModel parses args and loads the model named by the first argument.
func openModel(name string, args []string, extra func(fs *flag.FlagSet)) (*session, error) {
	fs, cfg, err := parseCommand(name, args, extra)
	if err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rigview %s [options] <model>\n", name)
		return nil, errUsage
	}

	src, err := resolveSource(cfg, fs.Arg(0))
	if err != nil {
		return nil, err
	}
	m, err := src.load(cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, src: src, model: m}, nil
}

// animate returns the pose at elapsed seconds for the configured clip.
func (s *session) animate(elapsed float32) (*anim.Animator, anim.Pose) {
	a := s.model.NewAnimator(s.cfg.Animation.ClipIndex, s.cfg.Animation.PoseCapacity)
	pose := a.Update(elapsed)
	s.reportClip(a)
	return a, pose
}

func (s *session) reportClip(a *anim.Animator) {
	switch {
	case a.Clip() == nil && len(s.model.Clips) > 0:
		logger.Warn("clip index out of range, using rest pose",
			zap.Int("clip", s.cfg.Animation.ClipIndex),
			zap.Int("clips", len(s.model.Clips)))
	case a.Degenerate():
		logger.Warn("clip cannot be timed, using rest pose",
			zap.String("clip", a.Clip().Name),
			zap.Float32("duration", a.Clip().Duration),
			zap.Float32("ticks_per_second", a.Clip().TicksPerSecond))
	}
}

func cmdInfo(args []string, out io.Writer) error {
	s, err := openModel("info", args, nil)
	if err != nil {
		return err
	}
	printSummary(out, s.model)
	fmt.Fprintln(out)
	printTree(out, s.model)
	fmt.Fprintln(out)
	printClips(out, s.model)
	fmt.Fprintln(out)
	printMeshes(out, s.model)
	return nil
}

func printSummary(out io.Writer, m *model.Model) {
	fmt.Fprintf(out, "Model:  %s (%s)\n", m.Name, m.Format)
	fmt.Fprintf(out, "Path:   %s\n", m.Path)
	fmt.Fprintf(out, "Nodes:  %d\n", m.Root.Count())
	fmt.Fprintf(out, "Bones:  %d\n", m.Bones.Count())
	fmt.Fprintf(out, "Clips:  %d\n", len(m.Clips))
	fmt.Fprintf(out, "Meshes: %d (%d vertices)\n", len(m.Meshes), m.VertexCount())
}

func printTree(out io.Writer, m *model.Model) {
	fmt.Fprintln(out, "Hierarchy:")
	m.Root.Walk(func(n *anim.Node, depth int) bool {
		line := strings.Repeat("  ", depth+1) + n.Name
		if b, ok := m.Bones.Lookup(n.Name); ok {
			line += fmt.Sprintf(" [bone %d]", b.Index)
		}
		fmt.Fprintln(out, line)
		return true
	})
}

func printClips(out io.Writer, m *model.Model) {
	fmt.Fprintln(out, "Clips:")
	if len(m.Clips) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	for i, c := range m.Clips {
		status := "ok"
		if err := c.Validate(); err != nil {
			status = "invalid"
		}
		fmt.Fprintf(out, "  %d  %-20s %8.2f ticks @ %g/s = %.3fs  %d channels  %s\n",
			i, c.Name, c.Duration, c.Rate(), c.Seconds(), len(c.Channels), status)
	}
}

func printMeshes(out io.Writer, m *model.Model) {
	fmt.Fprintln(out, "Meshes:")
	if len(m.Meshes) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	for _, mesh := range m.Meshes {
		maxInfluences := 0
		for _, inf := range mesh.Influences {
			if n := inf.Count(); n > maxInfluences {
				maxInfluences = n
			}
		}
		fmt.Fprintf(out, "  %-20s %6d vertices  up to %d bones per vertex\n",
			mesh.Name, len(mesh.Positions), maxInfluences)
	}
}

func cmdPose(args []string, out io.Writer) error {
	var (
		at    float64
		nodes bool
	)
	s, err := openModel("pose", args, func(fs *flag.FlagSet) {
		fs.Float64Var(&at, "t", 0, "Elapsed time in seconds")
		fs.BoolVar(&nodes, "nodes", false, "Also print global transforms of every node")
	})
	if err != nil {
		return err
	}

	a, pose := s.animate(float32(at))
	prec := s.cfg.Output.Precision
	printClipTime(out, a, at)

	for i, name := range s.model.Bones.Names() {
		fmt.Fprintf(out, "\n[%d] %s\n", i, name)
		fmt.Fprint(out, formatMat4(pose[i], prec, "  "))
	}

	if nodes {
		clip := a.Clip()
		if a.Degenerate() {
			clip = nil
		}
		globals := anim.GlobalTransforms(s.model.Root, clip, a.ClipTime())
		names := make([]string, 0, len(globals))
		for name := range globals {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(out, "\nNode transforms:")
		for _, name := range names {
			fmt.Fprintf(out, "  %-20s %s\n", name, formatVec3(globals[name].Col(3).Vec3(), prec))
		}
	}
	return nil
}

func printClipTime(out io.Writer, a *anim.Animator, elapsed float64) {
	if c := a.Clip(); c != nil && !a.Degenerate() {
		fmt.Fprintf(out, "Clip %q at %gs = tick %g of %g\n", c.Name, elapsed, a.ClipTime(), c.Duration)
		return
	}
	fmt.Fprintln(out, "Rest pose")
}

func cmdSample(args []string, out io.Writer) error {
	var (
		from, to, step float64
		bone, clipName string
		local          bool
	)
	s, err := openModel("sample", args, func(fs *flag.FlagSet) {
		fs.Float64Var(&from, "from", 0, "Start time in seconds")
		fs.Float64Var(&to, "to", 1, "End time in seconds")
		fs.Float64Var(&step, "step", 0.1, "Time step in seconds")
		fs.StringVar(&bone, "bone", "", "Bone name")
		fs.StringVar(&clipName, "name", "", "Clip name (overrides -clip)")
		fs.BoolVar(&local, "local", false, "Print the keyed local translation instead of the bone matrix")
	})
	if err != nil {
		return err
	}
	if step <= 0 || to < from {
		return fmt.Errorf("%w: need step > 0 and to >= from", errUsage)
	}
	info, ok := s.model.Bones.Lookup(bone)
	if !ok {
		return fmt.Errorf("bone %q not found (bones: %s)", bone, strings.Join(s.model.Bones.Names(), ", "))
	}

	a := s.model.NewAnimator(s.cfg.Animation.ClipIndex, s.cfg.Animation.PoseCapacity)
	if clipName != "" {
		c := s.model.ClipByName(clipName)
		if c == nil {
			return fmt.Errorf("clip %q not found", clipName)
		}
		a.SetClip(c)
	}
	rest := s.model.Root.Find(bone)
	prec := s.cfg.Output.Precision
	fmt.Fprintf(out, "%-10s %-10s %s\n", "seconds", "tick", bone)

	// Stepping by index keeps float error from dropping the last sample.
	count := int((to-from)/step + 1e-9)
	for i := 0; i <= count; i++ {
		t := from + float64(i)*step
		pose := a.Update(float32(t))
		v := pose[info.Index].Col(3).Vec3()
		if local {
			v = localTranslation(a, rest)
		}
		fmt.Fprintf(out, "%-10.4g %-10.4g %s\n", t, a.ClipTime(), formatVec3(v, prec))
	}
	s.reportClip(a)
	return nil
}

// localTranslation is the node's translation relative to its parent at the
// animator's last tick. Unkeyed nodes keep their rest translation.
func localTranslation(a *anim.Animator, node *anim.Node) mgl32.Vec3 {
	if node == nil {
		return mgl32.Vec3{}
	}
	if !a.Degenerate() {
		if ch := a.Clip().FindChannel(node.Name); ch != nil && len(ch.Positions) > 0 {
			return anim.SampleTranslation(ch.Positions, a.ClipTime())
		}
	}
	return node.Transform.Col(3).Vec3()
}

func cmdSkin(args []string, out io.Writer) error {
	var at float64
	s, err := openModel("skin", args, func(fs *flag.FlagSet) {
		fs.Float64Var(&at, "t", 0, "Elapsed time in seconds")
	})
	if err != nil {
		return err
	}

	a, pose := s.animate(float32(at))
	printClipTime(out, a, at)
	res := s.model.Skin(pose)
	prec := s.cfg.Output.Precision
	for i, mesh := range s.model.Meshes {
		fmt.Fprintf(out, "\n%s\n", mesh.Name)
		for v, p := range res.Positions[i] {
			fmt.Fprintf(out, "  %4d %s\n", v, formatVec3(p, prec))
		}
	}
	if res.Unresolved > 0 {
		logger.Warn("influences reference bones outside the pose", zap.Int("count", res.Unresolved))
	}
	fmt.Fprintf(out, "\nUnresolved influences: %d\n", res.Unresolved)
	return nil
}

func cmdConfig(args []string, out io.Writer) error {
	var path string
	fs, cfg, err := parseCommand("config", args, func(fs *flag.FlagSet) {
		fs.StringVar(&path, "o", "", "Output path (default: user config directory)")
	})
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: config takes no arguments", errUsage)
	}
	if path == "" {
		path, err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}
