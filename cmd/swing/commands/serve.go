package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/livepreview/swing"
	"github.com/livepreview/swing/internal/config"
	"github.com/livepreview/swing/internal/preview"
	"github.com/livepreview/swing/internal/session"
	"github.com/livepreview/swing/internal/store"
)

// ServeCommand implements the serve command: it opens the directory as a
// playground bundle, renders it to a browser preview, and keeps the preview
// in sync as files change on disk.
func ServeCommand(args []string) error {
	dir := "."
	var configPath string
	var port string
	var host string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--port" || arg == "-p" {
			if i+1 < len(args) {
				port = args[i+1]
				i++
			}
		} else if arg == "--host" {
			if i+1 < len(args) {
				host = args[i+1]
				i++
			}
		} else if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		} else if !strings.HasPrefix(arg, "-") {
			dir = arg
		}
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", dir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Using config: %s\n", configPath)
	} else {
		cfg, err = config.LoadFromDir(absDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// CLI flags override config
	if port != "" {
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port: %s", port)
		}
		cfg.Server.Port = portInt
	}
	if host != "" {
		cfg.Server.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewDirStore(absDir)
	bundle, err := loadBundle(ctx, st, ".")
	if err != nil {
		return fmt.Errorf("failed to load playground: %w", err)
	}
	if bundle.Len() == 0 {
		return fmt.Errorf("no playground files found in %s (expected index.html, style.css, script.js, or playground.json)", absDir)
	}

	fmt.Printf("Swing Playground Server\n\n")
	fmt.Printf("Serving: %s\n", absDir)
	fmt.Printf("Files:\n")
	for _, name := range bundle.Names() {
		fmt.Printf("  %s\n", name)
	}

	surface := preview.New(cfg)
	defer surface.Dispose()

	mgr := session.NewManager(st, cfg)
	defer mgr.Close()

	sess, err := mgr.Open(ctx, bundle, surface)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	watcher, err := store.NewWatcher(absDir, func(name, content string) {
		sess.HandleChange(name, content)
	}, cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	watcher.Start()
	defer watcher.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("\nPreview running at http://%s\n", addr)
	fmt.Printf("Edit playground files and see changes instantly\n")
	fmt.Printf("Press Ctrl+C to stop\n\n")

	if err := http.ListenAndServe(addr, surface.Handler(ctx)); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// loadBundle reads every managed file from one bundle directory into memory.
func loadBundle(ctx context.Context, st swing.Store, bundleID string) (*swing.Bundle, error) {
	names, err := st.List(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	bundle := swing.NewBundle(bundleID)
	for _, name := range names {
		if _, ok := swing.Classify(name); !ok {
			continue
		}
		data, err := st.Read(ctx, bundleID, name)
		if err != nil {
			return nil, err
		}
		bundle.Set(name, string(data))
	}
	return bundle, nil
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
