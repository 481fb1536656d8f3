package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/livepreview/swing"
	"github.com/livepreview/swing/internal/config"
)

// scaffoldNames maps the configured default dialect to the file it produces.
var scaffoldNames = map[swing.Role]map[string]string{
	swing.RoleMarkup: {
		"html":     "index.html",
		"markdown": "index.md",
	},
	swing.RoleStylesheet: {
		"css":  "style.css",
		"scss": "style.scss",
		"sass": "style.sass",
		"less": "style.less",
	},
	swing.RoleScript: {
		"javascript": "script.js",
		"typescript": "script.ts",
		"jsx":        "script.jsx",
		"tsx":        "script.tsx",
	},
}

// NewCommand implements the new command: it scaffolds a playground directory
// with the files the configuration asks for plus a default manifest.
func NewCommand(args []string) error {
	flagSet := flag.NewFlagSet("new", flag.ContinueOnError)
	configPath := flagSet.String("config", "", "Path to swing.yaml")
	flagSet.Usage = func() {
		fmt.Println("Usage: swing new [options] <name>")
		fmt.Println()
		fmt.Println("Create a new playground directory. Which files are created and in")
		fmt.Println("which dialects follows the playgrounds configuration.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	remaining := flagSet.Args()
	if len(remaining) != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected exactly one playground name")
	}
	name := remaining[0]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := os.Stat(name); err == nil {
		return fmt.Errorf("directory already exists: %s", name)
	}
	if err := os.MkdirAll(name, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	files := scaffoldFiles(cfg.Playgrounds)
	for fileName, content := range files {
		path := filepath.Join(name, fileName)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", fileName, err)
		}
		fmt.Printf("  created %s\n", path)
	}

	fmt.Printf("\nPlayground ready. Run: swing serve %s\n", name)
	return nil
}

// scaffoldFiles builds the initial file set from the playground settings.
// Unknown dialect names fall back to the first known one for the role.
func scaffoldFiles(pc config.PlaygroundsConfig) map[string]string {
	files := make(map[string]string)

	if pc.IncludeMarkup {
		files[scaffoldName(swing.RoleMarkup, pc.MarkupLanguage, "index.html")] = ""
	}
	if pc.IncludeStylesheet {
		files[scaffoldName(swing.RoleStylesheet, pc.StylesheetLanguage, "style.css")] = ""
	}
	if pc.IncludeScript {
		files[scaffoldName(swing.RoleScript, pc.ScriptLanguage, "script.js")] = ""
	}

	manifest := swing.DefaultManifest()
	if pc.Layout != "" {
		manifest.Layout = pc.Layout
	}
	if text, err := manifest.Encode(); err == nil {
		files[swing.ManifestFileName] = text + "\n"
	}
	return files
}

func scaffoldName(role swing.Role, dialect, fallback string) string {
	if name, ok := scaffoldNames[role][dialect]; ok {
		return name
	}
	return fallback
}
