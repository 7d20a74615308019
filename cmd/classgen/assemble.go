package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tetratelabs/classgen"
	"github.com/tetratelabs/classgen/classfile"
	"github.com/tetratelabs/classgen/internal/classcache"
	"github.com/tetratelabs/classgen/internal/version"
)

func doAssemble(args []string, fc *fileConfig, logger zerolog.Logger, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("assemble", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	outDir := flags.String("d", ".", "directory to write class files into, in directories per package")
	release := flags.String("release", "", "Java release of the class files, e.g. 1.4, 8 or 17. Overrides the configuration file.")
	jobs := flags.Int("j", runtime.GOMAXPROCS(0), "number of files assembled in parallel")
	cacheDir := flags.String("cachedir", "", "writeable directory for assembled classes. "+
		"Contents are re-used for the same source, release and version of classgen.")

	_ = flags.Parse(args)

	if help {
		printSubUsage(stdErr, flags, "assemble <options> <path to jasm file>...")
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to jasm file")
		printSubUsage(stdErr, flags, "assemble <options> <path to jasm file>...")
		exit(1)
	}

	cfg := fc.classgenConfig(logger)
	if *release != "" {
		cfg = cfg.WithTargetRelease(*release)
	}
	if _, err := cfg.ClassOptions(); err != nil {
		fmt.Fprintf(stdErr, "invalid release: %v\n", err)
		exit(1)
	}

	var store *classcache.Store
	if dir := *cacheDir; dir != "" {
		store = classcache.NewStore(classcache.NewFileCache(dir), version.GetVersion(), logger)
	} else if fc.CacheDir != "" {
		store = classcache.NewStore(classcache.NewFileCache(fc.CacheDir), version.GetVersion(), logger)
	}

	// Every file is attempted so that all errors are reported at once.
	var (
		g    errgroup.Group
		mux  sync.Mutex
		errs *multierror.Error
	)
	g.SetLimit(max(*jobs, 1))
	for _, path := range flags.Args() {
		path := path
		g.Go(func() error {
			if err := assembleFile(cfg, store, path, *outDir, logger); err != nil {
				mux.Lock()
				errs = multierror.Append(errs, err)
				mux.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		fmt.Fprintf(stdErr, "error assembling: %v\n", err)
		exit(1)
	}
	exit(0)
}

// assembleFile writes the class assembled from path under outDir, using
// store when not nil.
func assembleFile(cfg *classgen.Config, store *classcache.Store, path, outDir string, logger zerolog.Logger) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	profile := classcache.Profile{
		Release:         cfg.TargetRelease(),
		StrictSwitches:  cfg.StrictSwitches(),
		MaxLayoutPasses: cfg.MaxLayoutPasses(),
	}
	var class []byte
	cached := false
	if store != nil {
		if class, cached, err = store.Lookup(src, profile); err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("cache lookup failed")
		}
	}
	if !cached {
		if class, err = classgen.Compile(cfg, path, bytes.NewReader(src)); err != nil {
			return err
		}
		if store != nil {
			if err = store.Save(src, profile, class); err != nil {
				logger.Warn().Err(err).Str("file", path).Msg("cache save failed")
			}
		}
	}

	cf, err := classfile.Parse(class)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	out := filepath.Join(outDir, filepath.FromSlash(cf.ThisClass)+".class")
	if err = os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err = os.WriteFile(out, class, 0o644); err != nil {
		return err
	}
	logger.Info().Str("file", path).Str("class", cf.ThisClass).Bool("cached", cached).Msg("assembled")
	return nil
}
