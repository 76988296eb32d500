package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grocery/internal/offline"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the grocery list",
		Long:    "Fetch the item list and show it with queued items first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.oneShotClient()
			if err != nil {
				return err
			}
			c.Refresh(cmd.Context())
			return writeView(cmd.OutOrStdout(), c.View(), a.flags.jsonMode)
		},
	}
}

func (a *app) newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add an item",
		Long: `Add an item to the list. The item is queued locally and sent to the item API
right away; if the API is unreachable it stays queued and is retried by
"grocery sync" or "grocery watch".

Example:
  grocery add Milk
  grocery add Greek yogurt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.oneShotClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c.Refresh(ctx)

			id := c.AddAndWait(ctx, strings.Join(args, " "))
			if id == "" {
				if msg := c.View().LastError; msg != "" {
					return exitError(exitUserError, "%s", msg)
				}
				return exitError(exitUserError, "%s", types.MsgTextRequired)
			}
			if err := writeView(cmd.OutOrStdout(), c.View(), a.flags.jsonMode); err != nil {
				return err
			}
			if isQueued(c, id) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Saved offline; will retry when the item API is reachable.")
			}
			return nil
		},
	}
}

func (a *app) newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle an item's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			c, err := a.oneShotClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c.Refresh(ctx)
			if msg := c.View().LastError; msg != "" {
				return exitError(exitSysError, "%s", msg)
			}

			item, ok := findItem(c.View(), id)
			switch {
			case !ok:
				return exitError(exitUserError, "item %q not found", id)
			case item.Pending:
				return exitError(exitUserError, "item %q is waiting to sync", id)
			}

			c.ToggleComplete(ctx, id)
			if msg := c.View().LastError; msg != "" {
				return exitError(exitSysError, "%s", msg)
			}
			return writeView(cmd.OutOrStdout(), c.View(), a.flags.jsonMode)
		},
	}
}

func (a *app) newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an item",
		Long:    "Delete an item. Items still waiting to sync are removed from the local queue\nwithout contacting the item API.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			c, err := a.oneShotClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if isQueued(c, id) {
				c.Delete(ctx, id)
				c.Refresh(ctx)
				return writeView(cmd.OutOrStdout(), c.View(), a.flags.jsonMode)
			}

			c.Delete(ctx, id)
			if msg := c.View().LastError; msg != "" {
				return exitError(exitSysError, "%s", msg)
			}
			return writeView(cmd.OutOrStdout(), c.View(), a.flags.jsonMode)
		},
	}
}

func (a *app) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send queued items to the item API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.oneShotClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if len(c.Queued()) == 0 {
				c.Refresh(ctx)
			} else {
				c.Sync(ctx)
			}
			if err := writeView(cmd.OutOrStdout(), c.View(), a.flags.jsonMode); err != nil {
				return err
			}
			if n := len(c.Queued()); n > 0 {
				return exitError(exitSysError, "%d item(s) still queued; will retry", n)
			}
			return nil
		},
	}
}

func (a *app) newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the default items (" + strings.Join(offline.DefaultItems, ", ") + ")",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.oneShotClient()
			if err != nil {
				return err
			}
			c.AddDefaults(cmd.Context())
			if msg := c.View().LastError; msg != "" {
				return exitError(exitSysError, "%s", msg)
			}
			return writeView(cmd.OutOrStdout(), c.View(), a.flags.jsonMode)
		},
	}
}

func isQueued(c *offline.Client, id string) bool {
	for _, q := range c.Queued() {
		if q.TempID == id {
			return true
		}
	}
	return false
}

func findItem(v offline.View, id string) (offline.DisplayItem, bool) {
	for _, item := range v.Items {
		if item.ID == id {
			return item, true
		}
	}
	return offline.DisplayItem{}, false
}
