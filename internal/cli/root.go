// Package cli implements the grocery command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grocery/internal/logging"
	"github.com/mesh-intelligence/grocery/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	apiURL    string
	jsonMode  bool
}

// app carries state shared by the subcommands of one invocation.
type app struct {
	flags    rootFlags
	settings Settings
	logger   *slog.Logger
}

// cliError is returned by subcommands to select the process exit code.
type cliError struct {
	code int
	msg  string
}

func (e *cliError) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &cliError{code: code, msg: fmt.Sprintf(format, args...)}
}

// NewRootCmd creates the top-level "grocery" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: logging.NewNop()}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "grocery",
		Short: "A grocery list that keeps working offline",
		Long: "Grocery serves a small item API and manages the list from the command line.\n" +
			"Items added while the API is unreachable are queued locally and synced later.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadSettings,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().StringVar(&a.flags.apiURL, "api-url", "", "item API URL (default: "+defaultAPIURL+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newServeCmd(),
		a.newListCmd(),
		a.newAddCmd(),
		a.newDoneCmd(),
		a.newRmCmd(),
		a.newSyncCmd(),
		a.newSeedCmd(),
		a.newWatchCmd(),
	)
	return root
}

func (a *app) loadSettings(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return exitError(exitSysError, "resolve config dir: %s", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return exitError(exitSysError, "load config: %s", err)
	}
	settings, err := settingsFrom(v)
	if err != nil {
		return exitError(exitUserError, "config: %s", err)
	}
	settings.ConfigDir = configDir

	settings.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, settings.DataDir)
	if err != nil {
		return exitError(exitSysError, "resolve data dir: %s", err)
	}
	if a.flags.apiURL != "" {
		settings.APIURL = a.flags.apiURL
	}
	a.settings = settings

	logger, err := logging.New(logging.Options{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return exitError(exitUserError, "config: %s", err)
	}
	a.logger = logger
	return nil
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, err)
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUserError
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
