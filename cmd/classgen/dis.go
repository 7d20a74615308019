package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/jasm"
)

func doDis(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("dis", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	colorMode := flags.String("color", "auto", "colorize the listing: auto, always or never")

	_ = flags.Parse(args)

	if help {
		printSubUsage(stdErr, flags, "dis <options> <path to class file>...")
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to class file")
		printSubUsage(stdErr, flags, "dis <options> <path to class file>...")
		exit(1)
	}

	switch *colorMode {
	case "auto":
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		fmt.Fprintf(stdErr, "invalid color mode: %s\n", *colorMode)
		exit(1)
	}

	style := listingStyle()
	for i, path := range flags.Args() {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stdErr, "error reading class file: %v\n", err)
			exit(1)
		}
		cf, err := classfile.Parse(b)
		if err != nil {
			fmt.Fprintf(stdErr, "error parsing class file %s: %v\n", path, err)
			exit(1)
		}
		if flags.NArg() > 1 {
			if i > 0 {
				fmt.Fprintln(stdOut)
			}
			fmt.Fprintln(stdOut, style.Comment("# %s", path))
		}
		if err = jasm.Disassemble(stdOut, cf, style); err != nil {
			fmt.Fprintf(stdErr, "error listing class file %s: %v\n", path, err)
			exit(1)
		}
	}
	exit(0)
}

func listingStyle() jasm.Style {
	return jasm.Style{
		Directive:   color.New(color.FgBlue, color.Bold).SprintfFunc(),
		Instruction: color.New(color.FgGreen).SprintfFunc(),
		Label:       color.New(color.FgYellow).SprintfFunc(),
		Literal:     color.New(color.FgMagenta).SprintfFunc(),
		Comment:     color.New(color.FgHiBlack).SprintfFunc(),
	}
}
