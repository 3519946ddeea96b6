// Command hearth is the command line client for a Hearth inventory server.
// Reads are served through a local offline cache, so listing containers and
// items keeps working without a connection.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kegdev/hearth/internal/auth"
	"github.com/kegdev/hearth/internal/config"
	"github.com/kegdev/hearth/internal/connectivity"
	"github.com/kegdev/hearth/internal/inventory"
	"github.com/kegdev/hearth/internal/kv"
	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/offline"
	"github.com/kegdev/hearth/internal/remote"
)

// app holds what every command needs. It is built in the root command's
// PersistentPreRunE and closed by the caller once the command returns.
type app struct {
	cfg     config.ClientConfig
	local   kv.Store
	cache   *offline.Cache
	svc     *inventory.Service
	out     io.Writer
	offline bool
	json    bool
}

func main() {
	a := &app{out: os.Stdout}
	err := newRootCommand(a).Execute()
	if closeErr := a.close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "close cache:", closeErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "hearth",
		Short:         "Catalog what is in your boxes, shelves and rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().BoolVar(&a.offline, "offline", false, "do not contact the server; answer from the local cache")
	root.PersistentFlags().BoolVar(&a.json, "json", false, "print results as JSON")

	root.AddCommand(
		newStatusCommand(a),
		newContainersCommand(a),
		newItemsCommand(a),
		newContainerCommand(a),
		newItemCommand(a),
		newTagCommand(a),
		newCategoryCommand(a),
		newSearchCommand(a),
		newRegisterCommand(a),
		newReviewCommand(a),
		newRefreshCommand(a),
		newLogoutCommand(a),
		newCacheCommand(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if a.offline {
		cfg.Offline = true
	}
	a.cfg = cfg
	logging.Init(cfg.Log.Logging())

	local, err := kv.Open(cfg.CacheDriver, cfg.CachePath, cfg.CacheQuotaBytes)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	a.local = local

	var online connectivity.Checker
	if cfg.Offline {
		online = connectivity.NewStatic(false)
	} else {
		online = connectivity.NewProbe(cfg.ServerURL, cfg.ProbeInterval, cfg.RequestTimeout)
	}

	a.cache = offline.New(local, kv.NewMemory(0), online, offline.Config{
		ListTTL:           cfg.ListTTL,
		ProfileTTL:        cfg.ProfileTTL,
		AccountStatusTTL:  cfg.ProfileTTL,
		ContainersRecency: cfg.ContainersRecency,
		ItemsRecency:      cfg.ItemsRecency,
	})

	client := remote.NewClient(cfg.ServerURL, cfg.RequestTimeout, remote.Identity{
		UserID:        cfg.UserID,
		Email:         cfg.Email,
		CookieName:    auth.SessionCookieName,
		SessionCookie: cfg.SessionCookie,
	})
	a.svc = inventory.NewService(client, a.cache)
	return nil
}

func (a *app) close() error {
	if a.local == nil {
		return nil
	}
	err := a.local.Close()
	a.local = nil
	return err
}
