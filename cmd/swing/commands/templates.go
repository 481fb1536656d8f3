package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/livepreview/swing/internal/config"
	"github.com/livepreview/swing/internal/gallery"
	"github.com/livepreview/swing/internal/store"
)

// TemplatesCommand implements the templates command: it merges the configured
// remote galleries with template-flagged bundles under the given directory
// and prints the resulting choices.
func TemplatesCommand(args []string) error {
	flagSet := flag.NewFlagSet("templates", flag.ContinueOnError)
	dir := flagSet.String("dir", ".", "Directory to scan for local template bundles")
	configPath := flagSet.String("config", "", "Path to swing.yaml")
	flagSet.Usage = func() {
		fmt.Println("Usage: swing templates [options]")
		fmt.Println()
		fmt.Println("List starter templates from configured galleries and local bundles.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	absDir, err := filepath.Abs(*dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromDir(absDir)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolver := gallery.NewResolver(cfg.Playgrounds.TemplateGalleries, cfg.Server.Debug)
	defer resolver.Close()

	st := store.NewDirStore(absDir)
	bundleIDs := localBundleIDs(absDir)

	choices := resolver.Choices(ctx, st, bundleIDs)
	fmt.Printf("Templates (%d):\n\n", len(choices))
	for _, t := range choices {
		source := ""
		if t.BundleID != "" {
			source = fmt.Sprintf(" [local: %s]", t.BundleID)
		}
		if t.Description != "" {
			fmt.Printf("  %-28s %s%s\n", t.Label, t.Description, source)
		} else {
			fmt.Printf("  %s%s\n", t.Label, source)
		}
	}
	return nil
}

// localBundleIDs lists the directory itself plus its immediate
// subdirectories as candidate bundles.
func localBundleIDs(root string) []string {
	ids := []string{"."}
	entries, err := os.ReadDir(root)
	if err != nil {
		return ids
	}
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' && e.Name()[0] != '_' {
			ids = append(ids, e.Name())
		}
	}
	return ids
}
