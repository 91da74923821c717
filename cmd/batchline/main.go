package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"batchline/internal/config"
	"batchline/internal/db"
	"batchline/internal/db/mock"
	"batchline/internal/docstore"
	"batchline/internal/docstore/badgerstore"
	applog "batchline/internal/log"
	"batchline/internal/registry"
)

var (
	loadEnvFunc      = func() error { return godotenv.Load() }
	loadConfigFunc   = config.Load
	setLogLevelFunc  = applog.SetLevel
	newMockStoreFunc = mock.New
	openStoreFunc    = openStore
	fallbackFunc     = openFallback

	stdout io.Writer = os.Stdout
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	if err := loadEnvFunc(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		applog.Warn(ctx, "failed to load .env file", "error", err)
	}

	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}

	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "level", cfg.Logging.Level, "error", err)
		return 1
	}

	opener := docstore.NewOpener(primaryFactory(cfg), fallbackFunc)
	defer func() {
		if err := opener.Close(); err != nil {
			applog.Error(ctx, "failed to close document store", "error", err)
		}
	}()

	root := newRootCmd(&app{cfg: cfg, opener: opener})
	root.SetArgs(args)
	root.SetOut(stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		applog.Error(ctx, "command failed", "error", err)
		return 1
	}
	return 0
}

// app is the state shared by every subcommand.
type app struct {
	cfg    config.Config
	opener *docstore.Opener
}

func (a *app) registry(ctx context.Context) (*registry.Registry, error) {
	store, err := a.opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	return registry.New(store), nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "batchline",
		Short:         "Operate the batchline production tracking store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newBootstrapCmd(a),
		newSuggestCmd(a),
		newPlanSprintCmd(a),
		newImportItemsCmd(a),
		newDivergenceCmd(a),
		newProportionsCmd(a),
		newCreateUserCmd(a),
		newCreateFormulaCmd(a),
	)
	return root
}

func primaryFactory(cfg config.Config) docstore.Factory {
	return func(ctx context.Context) (docstore.Store, error) {
		if cfg.Store.UseMock {
			applog.Info(ctx, "using mock document store")
			store, err := newMockStoreFunc(ctx)
			if err != nil {
				return nil, err
			}
			return docstore.Instrument(store, "mock"), nil
		}

		store, err := openStoreFunc(cfg)
		if err != nil {
			return nil, err
		}
		applog.Info(ctx, "document store opened", "driver", cfg.Store.Driver)
		return docstore.Instrument(store, cfg.Store.Driver), nil
	}
}

func openStore(cfg config.Config) (docstore.Store, error) {
	if cfg.Store.Driver != config.DriverBadger {
		store, err := db.Configure(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	badgerCfg := badgerstore.DefaultConfig(cfg.Store.Path)
	badgerCfg.SyncWrites = cfg.Store.SyncWrites
	badgerCfg.GCInterval = cfg.Store.GCInterval
	badgerCfg.Logger = applog.Component("badger")
	store, err := badgerstore.Open(badgerCfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openFallback(context.Context) (docstore.Store, error) {
	store, err := badgerstore.OpenInMemory()
	if err != nil {
		return nil, err
	}
	return docstore.Instrument(store, "memory"), nil
}
