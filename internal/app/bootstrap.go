package app

import (
	"log/slog"

	"auction_go/internal/engine"
	"auction_go/internal/infra"
	"auction_go/internal/infra/storage"
	"auction_go/internal/world"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Store    *storage.Store
	Roster   *world.Roster
	Bags     *world.Bags
	Registry *engine.Registry
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, DB, registry load).
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping marketplace...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))

	// 4. World collaborators
	b.Roster = world.NewRoster()
	b.Bags = world.NewBags()

	// 5. Registry: rebuild houses, custody and balances from storage
	b.Registry = engine.NewRegistry(cfg, store, b.Roster, b.Bags, world.LogNotifier{})
	if err := b.Registry.Load(); err != nil {
		return err
	}
	slog.Info("✅ Marketplace registry loaded")

	return nil
}

// Shutdown flushes the registry and closes storage.
func (b *Bootstrap) Shutdown() {
	if b.Registry != nil {
		if err := b.Registry.Flush(); err != nil {
			slog.Error("Registry flush failed", slog.Any("error", err))
		}
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Error("Storage close failed", slog.Any("error", err))
		}
	}
}
