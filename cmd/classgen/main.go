package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/internal/version"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	configPath := flag.String("config", "", "path to a configuration file. "+
		"Defaults to "+defaultConfigFile+" in the working directory when present.")
	logLevel := flag.String("loglevel", "", "log level: debug, info, warn or error. Overrides log_level of the configuration file.")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	fc, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid config: %v\n", err)
		exit(1)
	}
	if *logLevel != "" {
		fc.LogLevel = *logLevel
	}
	logger, err := newLogger(stdErr, fc.LogLevel)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid log level: %v\n", err)
		exit(1)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "assemble":
		doAssemble(flag.Args()[1:], fc, logger, stdErr, exit)
	case "dis":
		doDis(flag.Args()[1:], stdOut, stdErr, exit)
	case "lattice":
		doLattice(flag.Args()[1:], fc, logger, stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.GetVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

// newLogger returns a console logger on w. level defaults to warn.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(strings.ToLower(level)); err != nil {
			return zerolog.Nop(), err
		}
	}
	out := zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      color.NoColor,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return zerolog.New(out).Level(lvl), nil
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "classgen CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  classgen <options> <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  assemble\tAssembles jasm files into class files")
	fmt.Fprintln(stdErr, "  dis\t\tLists class files as jasm")
	fmt.Fprintln(stdErr, "  lattice\tRelates two reference types of a class hierarchy")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of classgen CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flag.CommandLine.PrintDefaults()
}

func printSubUsage(stdErr io.Writer, flags *flag.FlagSet, usage string) {
	fmt.Fprintln(stdErr, "classgen CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintf(stdErr, "Usage:\n  classgen %s\n", usage)
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

type sliceFlag []string

func (f *sliceFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *sliceFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
