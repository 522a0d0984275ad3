package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkmn-tools/shinyhunt-go/bridge"
	"github.com/pkmn-tools/shinyhunt-go/config"
	"github.com/pkmn-tools/shinyhunt-go/encounterlog"
	"github.com/pkmn-tools/shinyhunt-go/hunt"
	"github.com/pkmn-tools/shinyhunt-go/launcher"
	"github.com/pkmn-tools/shinyhunt-go/logger"
	"github.com/pkmn-tools/shinyhunt-go/status"
)

func main() {
	// Load configuration
	configPath, err := config.ResolveConfigPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %+v", err)
	}
	if err := config.EnsureDefaultConfig(configPath); err != nil {
		log.Fatalf("Failed to write default config: %+v", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %+v", err)
	}

	// Check for debug mode
	if os.Getenv("SHINYHUNT_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
		log.Println("Debug mode enabled via SHINYHUNT_DEBUG environment variable")
	}

	// Initialize logger
	if err := logger.Init(logger.GetLevelFromString(cfg.Logging.Level), logger.Format(cfg.Logging.Format), cfg.Logging.Path); err != nil {
		log.Fatalf("Failed to initialize logger: %+v", err)
	}

	if err := run(cfg, configPath); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Hunt stopped")
			return
		}
		logger.Error("Hunt error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Encounter sinks: the text log always, SQLite history and the live
	// websocket feed when configured.
	fileLog, err := encounterlog.NewFileLogger(cfg.Hunt.EncounterLogPath)
	if err != nil {
		return err
	}
	sinks := encounterlog.Multi{fileLog}

	var store *encounterlog.Store
	if cfg.Hunt.EncounterDBPath != "" {
		store, err = encounterlog.NewStore(cfg.Hunt.EncounterDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	var hub *status.Hub
	if cfg.Status.Enabled {
		hub = status.NewHub()
		sinks = append(sinks, hub)
	}

	link := bridge.New(bridge.Options{
		Host: cfg.Bridge.Host,
		Port: cfg.Bridge.Port,
		Role: bridge.Role(cfg.Bridge.Role),
	})

	hunter := hunt.New(link, tuningFromConfig(cfg), sinks, hunt.Options{
		PollInterval:   time.Duration(cfg.Bridge.PollIntervalMillis) * time.Millisecond,
		ConnectTimeout: time.Duration(cfg.Bridge.ConnectTimeoutSeconds) * time.Second,
	})

	if cfg.Emulator.Autolaunch {
		if err := launchEmulator(ctx, cfg); err != nil {
			return err
		}
	}

	if cfg.Status.Enabled {
		var history status.History
		if store != nil {
			history = store
		}
		server := status.NewServer(hunter, history, hub)
		addr := fmt.Sprintf("%s:%d", cfg.Status.Host, cfg.Status.Port)
		go func() {
			if err := server.Start(addr); err != nil {
				logger.Warn("Status server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	// Hot reload of macros and PP tuning while the hunt runs.
	watcher, err := config.Watch(configPath)
	if err != nil {
		logger.Warn("Config hot reload disabled", "error", err)
	} else {
		defer watcher.Close()
		go func() {
			for updated := range watcher.Updates() {
				hunter.UpdateTuning(tuningFromConfig(updated))
			}
		}()
	}

	// On interrupt, release all held buttons before tearing the link down.
	// The bridge serializes this against in-flight sends from the loop.
	go func() {
		<-ctx.Done()
		logger.Info("Stopping, clearing emulator input")
		_ = link.ResetInput()
		_ = link.Close()
	}()

	return hunter.Start(ctx)
}

func tuningFromConfig(cfg *config.Config) hunt.Tuning {
	return hunt.Tuning{
		ToGrassMacro:    cfg.Hunt.ToGrassMacro,
		ToCenterMacro:   cfg.Hunt.ToCenterMacro,
		PPThreshold:     cfg.Hunt.PPThreshold,
		PPRecoveryMoves: cfg.Hunt.PPRecoveryMoves,
	}
}

func launchEmulator(ctx context.Context, cfg *config.Config) error {
	emu, err := launcher.New(cfg.Emulator.Kind, cfg.Emulator.Path)
	if err != nil {
		return err
	}

	registry := launcher.NewScriptRegistry("lua")
	registry.Register("shiny_hunt", "shiny_hunt.lua")
	registry.Register("start_game", "start_game.lua")

	script, err := registry.Get(cfg.Emulator.LuaScript)
	if err != nil {
		return err
	}

	// The emulator side reconnects on its own, so launching before the
	// bridge is up works in both roles: the hunter's connect retry and
	// the Lua script's dial retry meet in the middle.
	if _, err := emu.Launch(ctx, cfg.Emulator.ROMPath, script.Path, cfg.Emulator.ExtraArgs...); err != nil {
		return err
	}
	return nil
}
