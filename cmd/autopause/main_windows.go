// Command autopause is built with -buildmode=c-shared and injected into the game process.
package main

import "C"

import (
	"fmt"
	"sync"

	"github.com/wnxd/microhook/internal/agent"
	"github.com/wnxd/microhook/internal/config"
	"github.com/wnxd/microhook/internal/logger"
	"github.com/wnxd/microhook/internal/platform"
	"go.uber.org/zap"
)

var (
	mu      sync.Mutex
	current *agent.Agent
	closer  func()
)

func init() {
	// DllMain holds the loader lock; attaching from it would deadlock on LoadLibrary.
	go func() {
		if err := attach(); err != nil {
			_ = platform.MessageBox(err.Error())
		}
	}()
}

func attach() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("Error reading the configuration: %w", err)
	}
	if cfg.Console {
		_ = platform.OpenConsole()
	}
	log, closeLog, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("Error initializing the logger: %w", err)
	}
	a, err := agent.New(platform.NewMinHook(cfg.MinHook), platform.NewInvoker(), platform.NewLoader(), log)
	if err != nil {
		closeLog()
		return err
	}
	mu.Lock()
	current, closer = a, closeLog
	mu.Unlock()
	if err = a.Attach(); err != nil {
		log.Error("attach failed", zap.Error(err))
		return fmt.Errorf("Error hooking the game: %w", err)
	}
	return nil
}

// AutopauseDetach removes every hook. The host calls it before FreeLibrary.
//
//export AutopauseDetach
func AutopauseDetach() {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return
	}
	current.Detach()
	closer()
	current = nil
}

func main() {}
