package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ibexlift/classlift/internal/fixture"
	"github.com/ibexlift/classlift/internal/lift"
	"github.com/ibexlift/classlift/internal/liftconfig"
)

var (
	methodFlag string
	formatFlag string
)

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
	errLog := log.New(errOut, "", 0)

	rootCmd := &cobra.Command{
		Use:           "ssadump <fixture.yaml>",
		Short:         "lift a fixture's methods to SSA IR and print the result",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dump(args[0], out, errLog)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVar(&methodFlag, "method", "", "lift only the named method (default: every method in the fixture)")
	rootCmd.Flags().StringVar(&formatFlag, "format", "", `output format, "tree" or "yaml" (default from classlift.toml, else "tree")`)

	return rootCmd
}

func dump(path string, out io.Writer, errLog *log.Logger) error {
	cfg, err := liftconfig.FindAndLoad(filepath.Dir(path))
	if err != nil {
		return err
	}
	format := formatFlag
	if format == "" {
		format = cfg.Output.Format
	}

	methods, err := fixture.Load(path)
	if err != nil {
		return err
	}

	lifter := lift.NewLifter()
	matched := false
	failed := false
	for _, m := range methods {
		if methodFlag != "" && m.Name != methodFlag {
			continue
		}
		matched = true

		lifted, fail := lifter.Lift(m.Env, m.Pool)
		if fail != nil {
			errLog.Printf("%s: %v", m.Name, fail)
			failed = true
			continue
		}

		switch format {
		case "yaml":
			if err := printYAML(out, m.Name, lifted); err != nil {
				return err
			}
		default:
			printTree(out, m.Name, lifted)
		}
	}

	if methodFlag != "" && !matched {
		return fmt.Errorf("ssadump: no method named %q in %s", methodFlag, path)
	}
	if failed {
		return fmt.Errorf("ssadump: one or more methods failed to lift")
	}
	return nil
}
