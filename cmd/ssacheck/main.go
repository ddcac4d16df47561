package main

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ibexlift/classlift/internal/fixture"
	"github.com/ibexlift/classlift/internal/lift"
	"github.com/ibexlift/classlift/internal/liftconfig"
)

var workersFlag int

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ssacheck <dir>",
		Short:         "batch-lift every fixture method under a directory and report pass/fail",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().IntVar(&workersFlag, "workers", 0, "worker pool size (default from classlift.toml, else GOMAXPROCS)")

	return rootCmd
}

// job is one method queued for lifting; distinct methods are lifted
// concurrently by the worker pool with no coordination between them.
type job struct {
	file   string
	method fixture.Method
}

type outcome struct {
	file string
	name string
	err  error
}

func check(dir string, out, errOut io.Writer) error {
	errLog := log.New(errOut, "", 0)

	cfg, err := liftconfig.FindAndLoad(dir)
	if err != nil {
		return err
	}
	workers := workersFlag
	if workers <= 0 {
		workers = cfg.Output.Workers
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var files []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return err
	}
	sort.Strings(files)

	if len(files) == 0 {
		fmt.Fprintf(out, "ssacheck: no fixture files found under %s\n", dir)
		return nil
	}

	jobs := make(chan job)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lifter := lift.NewLifter()
			for j := range jobs {
				_, fail := lifter.Lift(j.method.Env, j.method.Pool)
				var err error
				if fail != nil {
					err = fail
				}
				outcomes <- outcome{file: j.file, name: j.method.Name, err: err}
			}
		}()
	}

	go func() {
		for _, f := range files {
			methods, err := fixture.Load(f)
			if err != nil {
				outcomes <- outcome{file: f, name: "(fixture)", err: err}
				continue
			}
			for _, m := range methods {
				jobs <- job{file: f, method: m}
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var passed, failed int
	for o := range outcomes {
		if o.err != nil {
			failed++
			errLog.Printf("FAIL %s: %s: %v", o.file, o.name, o.err)
			continue
		}
		passed++
		fmt.Fprintf(out, "ok   %s: %s\n", o.file, o.name)
	}

	fmt.Fprintf(out, "ssacheck: %d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("ssacheck: %d method(s) failed to lift", failed)
	}
	return nil
}
