package main

import (
	"fmt"
	"os"
)

// subcommands maps the first CLI argument to its runner. Each runner owns
// its own flag.FlagSet so subcommands never share global flag state.
var subcommands = map[string]func(args []string) error{
	"process": runProcess,
	"export":  runExport,
	"broker":  runBroker,
	"produce": runProduce,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	run, ok := subcommands[os.Args[1]]
	if !ok {
		if os.Args[1] == "-version" || os.Args[1] == "-v" {
			fmt.Println(fullVersion())
			return
		}
		fmt.Fprintf(os.Stderr, "kl3mpipe: unknown subcommand %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "kl3mpipe %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `kl3mpipe is the multi-stage data pipeline CLI.

Usage:
  kl3mpipe <command> [flags]

Commands:
  process   run the dataset pipeline's stage transitions
  export    drain a dataset's stage-3 objects to a gzipped JSONL file
  broker    serve the sample broker's HTTP API
  produce   run the training-sample producer loop
  -version  print version information`)
}
