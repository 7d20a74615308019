package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tetratelabs/classgen/types"
)

func doLattice(args []string, fc *fileConfig, logger zerolog.Logger, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("lattice", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var hierarchy sliceFlag
	flags.Var(&hierarchy, "hierarchy", "TOML hierarchy or class file defining classes. "+
		"This may be specified multiple times, after those of the configuration file.")

	_ = flags.Parse(args)

	const usage = "lattice <options> join|assignable|castable <type> <type>"
	if help {
		printSubUsage(stdErr, flags, usage)
		exit(0)
	}

	if flags.NArg() != 3 {
		fmt.Fprintln(stdErr, "missing operation or types")
		printSubUsage(stdErr, flags, usage)
		exit(1)
	}
	op := flags.Arg(0)

	var operands [2]types.ReferenceType
	for i, s := range flags.Args()[1:] {
		t, err := parseReferenceType(s)
		if err != nil {
			fmt.Fprintf(stdErr, "invalid type: %v\n", err)
			exit(1)
		}
		operands[i] = t
	}

	repo, err := fc.repository(logger, hierarchy)
	if err != nil {
		fmt.Fprintf(stdErr, "error loading hierarchy: %v\n", err)
		exit(1)
	}
	lattice := fc.classgenConfig(logger).WithRepository(repo).Lattice()

	s, t := operands[0], operands[1]
	var ok bool
	switch op {
	case "join":
		join, known := lattice.FirstCommonSuperclass(s, t)
		if !known {
			fmt.Fprintln(stdOut, "unknown")
		} else {
			fmt.Fprintln(stdOut, typeName(join))
		}
		exit(0)
	case "assignable":
		ok, err = lattice.IsAssignmentCompatible(s, t)
	case "castable":
		ok, err = lattice.IsCastableTo(s, t)
	default:
		fmt.Fprintf(stdErr, "invalid lattice operation: %s\n", op)
		exit(1)
	}
	if err != nil {
		fmt.Fprintf(stdErr, "error relating types: %v\n", err)
		exit(1)
	}
	fmt.Fprintln(stdOut, ok)
	exit(0)
}

// parseReferenceType accepts "null", a reference descriptor such as
// "[I" or "Ljava/lang/String;", or a class name with dots or slashes.
func parseReferenceType(s string) (types.ReferenceType, error) {
	switch {
	case s == "null":
		return types.Null, nil
	case strings.HasPrefix(s, "["), strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";"):
		t, err := types.ParseDescriptor(s)
		if err != nil {
			return nil, err
		}
		return t.(types.ReferenceType), nil
	case s == "" || strings.ContainsAny(s, "[;"):
		return nil, fmt.Errorf("%q is not a class name", s)
	}
	return types.NewObjectType(strings.ReplaceAll(s, ".", "/")), nil
}

func typeName(t types.ReferenceType) string {
	if _, null := t.(types.NullType); null {
		return "null"
	}
	return t.InternalName()
}
