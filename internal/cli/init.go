package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grocery/internal/offline"
	"github.com/mesh-intelligence/grocery/pkg/sqlite"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize grocery storage",
		Long:  "Create the configuration and data directories, write config.yaml if missing,\nand initialize the item store and the offline queue.",
		Args:  cobra.NoArgs,
		RunE:  a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	s := a.settings
	if err := os.MkdirAll(s.ConfigDir, 0o755); err != nil {
		return exitError(exitSysError, "create config directory: %s", err)
	}
	configPath := filepath.Join(s.ConfigDir, configFileExt)
	if _, err := writeConfigIfMissing(configPath, a.flags.dataDir); err != nil {
		return exitError(exitSysError, "write config: %s", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(types.Config{Backend: s.Backend, DataDir: s.DataDir}); err != nil {
		return exitError(exitSysError, "initialize storage: %s", err)
	}
	if err := backend.Detach(); err != nil {
		return exitError(exitSysError, "finalize storage: %s", err)
	}

	slot, err := offline.NewFileSlot(s.DataDir)
	if err != nil {
		return exitError(exitSysError, "initialize queue: %s", err)
	}
	data, err := slot.Load(types.QueueSlotKey)
	if err != nil {
		return exitError(exitSysError, "initialize queue: %s", err)
	}
	if data == nil {
		empty, _ := offline.EncodeQueue(nil)
		if err := slot.Save(types.QueueSlotKey, empty); err != nil {
			return exitError(exitSysError, "initialize queue: %s", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Grocery initialized successfully")
	fmt.Fprintf(out, "config: %s\ndata:   %s\n", configPath, s.DataDir)
	return nil
}
