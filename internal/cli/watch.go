package cli

import (
	"bytes"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grocery/internal/offline"
)

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the list in sync and show changes",
		Long: `Run the client until interrupted. Queued items are retried every sync_interval
and immediately when the item API becomes reachable again.`,
		Args: cobra.NoArgs,
		RunE: a.runWatch,
	}
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	rc, err := a.newRemote()
	if err != nil {
		return err
	}
	monitor := offline.NewMonitor(rc, a.settings.ProbeInterval, a.logger)
	c, err := a.openClient(rc, monitor)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := &viewRenderer{out: out, jsonMode: a.flags.jsonMode, clear: shouldColorize(out)}
	cancel := c.OnChange(r.render)
	defer cancel()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.Start(ctx)
	monitor.Start()
	r.render(c.View())

	<-ctx.Done()

	monitor.Stop()
	c.Stop()
	c.Wait()
	return nil
}

// viewRenderer writes a view only when its rendering changed.
type viewRenderer struct {
	out      io.Writer
	jsonMode bool
	clear    bool

	mu   sync.Mutex
	last []byte
}

func (r *viewRenderer) render(v offline.View) {
	if v.Loading {
		return
	}
	var buf bytes.Buffer
	if r.jsonMode {
		if err := writeView(&buf, v, true); err != nil {
			return
		}
	} else {
		buf.WriteString(renderView(v, r.clear))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if bytes.Equal(buf.Bytes(), r.last) {
		return
	}
	r.last = buf.Bytes()
	if r.clear {
		fmt.Fprint(r.out, ansiClearScreen)
	}
	_, _ = r.out.Write(buf.Bytes())
}
