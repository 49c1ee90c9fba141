package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/gmsas95/ocrdesk-cli/internal/app"
	"github.com/gmsas95/ocrdesk-cli/internal/cli"
	"github.com/gmsas95/ocrdesk-cli/internal/config"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
	"github.com/gmsas95/ocrdesk-cli/internal/tui"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cli.Version = version

	configPath, dataDir, args := splitGlobalFlags(os.Args[1:])

	if len(args) == 0 {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			runBrowser(configPath, dataDir)
			return
		}
		cli.PrintHelp()
		return
	}

	switch args[0] {
	case "upload":
		cli.HandleUploadCommand(args[1:], configPath, dataDir)
	case "list", "ls":
		cli.HandleListCommand(args[1:], configPath, dataDir)
	case "get", "show":
		cli.HandleGetCommand(args[1:], configPath, dataDir)
	case "delete", "rm":
		cli.HandleDeleteCommand(args[1:], configPath, dataDir)
	case "process":
		cli.HandleProcessCommand(args[1:], configPath, dataDir)
	case "reprocess":
		cli.HandleReprocessCommand(args[1:], configPath, dataDir)
	case "export":
		cli.HandleExportCommand(args[1:], configPath, dataDir)
	case "status":
		cli.HandleStatusCommand(configPath, dataDir)
	case "watch":
		cli.HandleWatchCommand(configPath, dataDir)
	case "browse", "tui":
		runBrowser(configPath, dataDir)
	case "config":
		cli.HandleConfigCommand(args[1:], configPath, dataDir)
	case "version", "--version", "-v":
		fmt.Printf("ocrdesk version %s\n", version)
	case "help", "--help", "-h":
		cli.PrintHelp()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		cli.PrintHelp()
		os.Exit(1)
	}
}

// splitGlobalFlags pulls -config and -data out of the argument list so
// they work in any position.
func splitGlobalFlags(args []string) (configPath, dataDir string, rest []string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config", "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		case "-data", "--data":
			if i+1 < len(args) {
				i++
				dataDir = args[i]
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return configPath, dataDir, rest
}

func runBrowser(configPath, dataDir string) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	st, err := store.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	application := app.New(cfg, st, logger)
	defer application.Close()

	if err := tui.Run(application); err != nil {
		logger.Fatal("Browser failed", zap.Error(err))
	}
}
