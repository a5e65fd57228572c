// lenstracer is a multi-plane gravitational-lens ray tracer: it maps image
// grids and observed image positions through stacks of deflector planes,
// scores lens models against observed positions and fluxes, and renders the
// results.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/quasarlab/lenstracer/internal/version"
)

const usage = `usage: lenstracer <command> [flags]

commands:
  trace      trace a scene's grid through its planes and render observables
  positions  score a scene against observed image positions
  sweep      sweep an Einstein radius, persist scores and emit a report
  version    print build information

run 'lenstracer <command> -h' for command flags
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "trace":
		err = runTrace(args)
	case "positions":
		err = runPositions(args)
	case "sweep":
		err = runSweep(args)
	case "version":
		fmt.Printf("lenstracer %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "lenstracer %s: %v\n", cmd, err)
		os.Exit(1)
	}
}
