package cli

import (
	"github.com/mesh-intelligence/grocery/internal/offline"
	"github.com/mesh-intelligence/grocery/internal/remote"
)

func (a *app) newRemote() (*remote.Client, error) {
	rc, err := remote.NewClient(a.settings.APIURL, remote.WithTimeout(a.settings.RequestTimeout))
	if err != nil {
		return nil, exitError(exitUserError, "api url: %s", err)
	}
	return rc, nil
}

// openClient builds the offline client over store. The queue slot lives in
// the data directory.
func (a *app) openClient(store offline.Store, monitor *offline.Monitor) (*offline.Client, error) {
	slot, err := offline.NewFileSlot(a.settings.DataDir)
	if err != nil {
		return nil, exitError(exitSysError, "open queue: %s", err)
	}
	c, err := offline.New(store, slot, offline.Options{
		SyncInterval: a.settings.SyncInterval,
		Monitor:      monitor,
		Logger:       a.logger,
	})
	if err != nil {
		return nil, exitError(exitSysError, "create client: %s", err)
	}
	return c, nil
}

// oneShotClient is openClient for commands that run a single operation.
func (a *app) oneShotClient() (*offline.Client, error) {
	rc, err := a.newRemote()
	if err != nil {
		return nil, err
	}
	return a.openClient(rc, nil)
}
