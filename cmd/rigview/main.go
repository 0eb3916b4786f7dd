// rigview is a CLI for inspecting skeletal animation in rigged models.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/rigview/internal/logger"
)

// errUsage means the arguments were wrong and usage has been printed.
var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:], os.Stdout)
	logger.Sync()
	if err == nil {
		return
	}
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return errUsage
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		return cmdInfo(args, out)
	case "pose":
		return cmdPose(args, out)
	case "sample":
		return cmdSample(args, out)
	case "skin":
		return cmdSkin(args, out)
	case "watch":
		return cmdWatch(args, out)
	case "list", "ls":
		return cmdList(args, out)
	case "pack":
		return cmdPack(args, out)
	case "config":
		return cmdConfig(args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `rigview - skeletal animation inspector

Usage:
  rigview <command> [options] <model>

Commands:
  info <model>                          Show nodes, bones, clips and meshes
  pose [-t sec] [-nodes] <model>        Print bone matrices at one instant
  sample -bone name [-from -to -step] [-name clip] [-local] <model>
                                        Print a bone's translation over time
  skin [-t sec] <model>                 Print skinned vertex positions
  watch <model>                         Reload and summarize on every change
  list -grf file [-n N] [pattern]       List models inside GRF archives
  pack -o out.grf <file>...             Pack files into a GRF archive
  config [-o path]                      Write the default config file

Shared options:
  -config path   Config file
  -clip n        Clip index (default from config, 0)
  -capacity n    Minimum pose buffer size (default 100)
  -tps n         Ticks per second for clips without a rate
  -debug         Debug logging
  -log path      Also write logs to a rotating file
  -grf path      Also look for models in this GRF archive (repeatable)

Models: .gltf, .glb, .rsm, .yaml

Examples:
  rigview info robot.glb
  rigview pose -t 1.5 -clip 1 robot.glb
  rigview sample -bone arm -from 0 -to 2 -step 0.25 robot.glb
  rigview watch rig.yaml
  rigview info -grf data.grf data/model/chest.rsm`)
}
