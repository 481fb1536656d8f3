// Command swing serves a live coding playground from a directory of source
// files.
package main

import (
	"fmt"
	"os"

	"github.com/livepreview/swing/cmd/swing/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "templates":
		err = commands.TemplatesCommand(args)
	case "new":
		err = commands.NewCommand(args)
	case "version":
		fmt.Printf("swing version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("swing - Live coding playgrounds for the web")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  swing serve [directory]        Serve a playground with live preview")
	fmt.Println("  swing new <name>               Create a new playground directory")
	fmt.Println("  swing templates                List available gallery templates")
	fmt.Println("  swing version                  Show version")
	fmt.Println("  swing help                     Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  swing serve                    # Serve current directory")
	fmt.Println("  swing serve ./demo --port 3000 # Serve demo on port 3000")
	fmt.Println("  swing new my-playground        # Scaffold index.html/style.css/script.js")
	fmt.Println("  swing templates                # List gallery starter templates")
}
