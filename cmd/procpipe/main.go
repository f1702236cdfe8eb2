package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/wagiedev/procpipe"
	"github.com/wagiedev/procpipe/internal/config"
	"github.com/wagiedev/procpipe/internal/logging"
)

// configEnv names the environment variable that overrides config lookup.
const configEnv = "PROCPIPECONFIG"

// exitError carries the exit status of the child process out of RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds the state shared by the subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	userConfigPath string // default config directory on this OS
	configPath     string // config file actually loaded, if any
	file           config.File
	log            *slog.Logger

	flagConfigFilePath string
	flagVerbose        bool
	flagChunkSize      int
	flagSearchPaths    []string
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    procpipe.NopLogger(),
	}

	if d, err := os.UserConfigDir(); err == nil {
		a.userConfigPath = filepath.Join(d, "procpipe")
	}

	rootCmd := a.rootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	if exitErr, ok := errors.AsType[*exitError](err); ok {
		return exitErr.code
	}

	a.log.Error("procpipe failed", "error", err)
	fmt.Fprintln(stderr, "procpipe:", err)

	return 1
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "procpipe",
		Short:        "Run programs with their standard streams relayed as text chunks",
		SilenceUsage: true,
		// never print messages
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.flagConfigFilePath, "config", "",
		"Config file to load - default is "+config.FileName+" in current directory or in "+a.userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&a.flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().IntVar(&a.flagChunkSize, "chunk-size", 0, "maximum bytes per output chunk")
	rootCmd.PersistentFlags().StringSliceVar(&a.flagSearchPaths, "search-path", nil,
		"extra directory searched for the program after PATH (repeatable)")

	rootCmd.AddCommand(a.runCommand())
	rootCmd.AddCommand(a.mcpCommand())
	rootCmd.AddCommand(a.versionCommand())

	return rootCmd
}

// setup loads the configuration file and sets up logging.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	if envConfig := os.Getenv(configEnv); envConfig != "" {
		a.configPath = envConfig
	} else if a.flagConfigFilePath != "" {
		a.configPath = a.flagConfigFilePath
	} else {
		path, err := config.FindFile(".", a.userConfigPath)
		if err != nil {
			return err
		}

		a.configPath = path
	}

	if a.configPath != "" {
		f, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}

		a.file = *f
	}

	// --verbose has a precedence over config file
	if a.flagVerbose {
		a.file.Verbose = true
	}

	if a.flagChunkSize < 0 {
		return fmt.Errorf("--chunk-size must not be negative")
	}

	a.log = logging.New(a.stderr, a.file.Verbose)
	a.log.Debug("Configuration loaded", "config_path", a.configPath)

	return nil
}

// options merges the config file and the flags into run options.
func (a *app) options() []procpipe.Option {
	options := &config.Options{}
	a.file.ApplyTo(options)

	opts := []procpipe.Option{
		procpipe.WithOptions(options),
		procpipe.WithLogger(a.log),
		procpipe.WithSearchPaths(a.flagSearchPaths...),
	}

	if a.flagChunkSize > 0 {
		opts = append(opts, procpipe.WithChunkSize(a.flagChunkSize))
	}

	return opts
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()

			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Fprintln(out, "procpipe: version info not available")

				return
			}

			if a.configPath != "" {
				fmt.Fprintf(out, "config:   %s\n", a.configPath)
			}

			fmt.Fprintf(out, "procpipe: %s\n", info.Main.Version)
			fmt.Fprintf(out, "go:       %s\n", info.GoVersion)

			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					fmt.Fprintf(out, "commit:   %s\n", s.Value)
				case "vcs.time":
					fmt.Fprintf(out, "date:     %s\n", s.Value)
				case "vcs.modified":
					fmt.Fprintf(out, "dirty:    %s\n", s.Value)
				}
			}
		},
	}
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "(devel)"
}
