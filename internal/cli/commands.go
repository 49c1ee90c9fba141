package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/gmsas95/ocrdesk-cli/internal/api"
	"github.com/gmsas95/ocrdesk-cli/internal/app"
	"github.com/gmsas95/ocrdesk-cli/internal/config"
	"github.com/gmsas95/ocrdesk-cli/internal/document"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
	"github.com/gmsas95/ocrdesk-cli/internal/store"
	"github.com/gmsas95/ocrdesk-cli/internal/watch"
)

var Version = "dev"

func mustApp(configPath, dataDir string) *app.App {
	logger, _ := zap.NewDevelopment()

	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.New(cfg)
	if err != nil {
		fmt.Printf("Error opening local store: %v\n", err)
		os.Exit(1)
	}

	return app.New(cfg, st, logger)
}

// parseUploadFlags splits option flags from file arguments
func parseUploadFlags(args []string) (document.UploadOptions, []string) {
	var opts document.UploadOptions
	var files []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--lang", "-l":
			if i+1 < len(args) {
				i++
				opts.Language = args[i]
			}
		case "--engine":
			if i+1 < len(args) {
				i++
				opts.OCREngine = args[i]
			}
		case "--quality", "-q":
			if i+1 < len(args) {
				i++
				opts.Quality = args[i]
			}
		case "--rotate":
			opts.AutoRotate = true
		case "--deskew":
			opts.Deskew = true
		default:
			files = append(files, args[i])
		}
	}

	return opts, files
}

func HandleUploadCommand(args []string, configPath, dataDir string) {
	opts, files := parseUploadFlags(args)
	if len(files) == 0 {
		fmt.Println("Usage: ocrdesk upload [--lang vie|eng|de] [--engine tesseract|google|aws] [--quality fast|balanced|accurate] <file> [file...]")
		os.Exit(1)
	}

	a := mustApp(configPath, dataDir)
	defer a.Close()

	validator := document.NewValidator(a.Config)
	verdict, err := validator.ValidateBatch(files)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for path, rejection := range verdict.Rejected {
		fmt.Printf("✗ %s: %v\n", path, rejection)
	}
	if len(verdict.Valid) == 0 {
		os.Exit(1)
	}

	ctx := context.Background()
	failed := 0
	for _, path := range verdict.Valid {
		fmt.Printf("Uploading %s...\n", path)

		outcome, err := a.ProcessFile(ctx, path, "cli", opts)
		if err != nil {
			failed++
			if outcome != nil && outcome.NeedsRestart {
				fmt.Printf("✗ %s: uploaded as %s but processing did not start\n", path, outcome.Document.ID)
				fmt.Printf("  retry with: ocrdesk process %s\n", outcome.Document.ID)
			} else {
				fmt.Printf("✗ %s: %v\n", path, err)
			}
			continue
		}

		fmt.Printf("✓ %s → %s (%s confidence %.0f%%)\n",
			path, outcome.Document.ID,
			ocr.ConfidenceTier(outcome.Result.Confidence),
			outcome.Result.Confidence*100,
		)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func HandleListCommand(args []string, configPath, dataDir string) {
	var query document.ListQuery
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--status", "-s":
			if i+1 < len(args) {
				i++
				status, err := document.ParseStatus(args[i])
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
				query.Status = status
			}
		case "--search":
			if i+1 < len(args) {
				i++
				query.Search = args[i]
			}
		}
	}

	a := mustApp(configPath, dataDir)
	defer a.Close()

	a.Docs.FetchDocuments(context.Background(), query)
	if errMsg := a.Docs.Error(); errMsg != "" {
		fmt.Printf("Error: %s\n", errMsg)
		os.Exit(1)
	}

	docs := a.Docs.Documents()
	if len(docs) == 0 {
		fmt.Println("No documents found")
		return
	}

	fmt.Printf("%-14s %-30s %-10s %-12s %s\n", "ID", "NAME", "TYPE", "STATUS", "CREATED")
	for _, doc := range docs {
		name := doc.Name
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		fmt.Printf("%-14s %-30s %-10s %-12s %s\n",
			doc.ID, name, doc.Type, doc.Status, doc.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d document(s)\n", len(docs))
}

func HandleGetCommand(args []string, configPath, dataDir string) {
	if len(args) == 0 {
		fmt.Println("Usage: ocrdesk get <document-id> [--text]")
		os.Exit(1)
	}
	id := args[0]
	textOnly := len(args) > 1 && args[1] == "--text"

	a := mustApp(configPath, dataDir)
	defer a.Close()

	ctx := context.Background()
	a.Docs.FetchDocument(ctx, id)
	if errMsg := a.Docs.Error(); errMsg != "" {
		fmt.Printf("Error: %s\n", errMsg)
		os.Exit(1)
	}
	doc := a.Docs.Current()

	if !textOnly {
		fmt.Printf("ID:      %s\n", doc.ID)
		fmt.Printf("Name:    %s\n", doc.Name)
		fmt.Printf("Type:    %s\n", doc.Type)
		fmt.Printf("Status:  %s\n", doc.Status)
		fmt.Printf("Size:    %d bytes\n", doc.FileSize)
		if doc.PageCount > 0 {
			fmt.Printf("Pages:   %d\n", doc.PageCount)
		}
		fmt.Printf("Created: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if doc.Status != document.StatusCompleted {
		if !textOnly {
			fmt.Println("\nNo OCR result yet")
		}
		return
	}

	result, err := a.ResultFor(ctx, id)
	if err != nil {
		fmt.Printf("Error fetching result: %v\n", err)
		os.Exit(1)
	}

	if textOnly {
		fmt.Println(result.Text)
		return
	}

	fmt.Printf("\nConfidence: %.0f%% (%s)\n", result.Confidence*100, ocr.ConfidenceTier(result.Confidence))
	if low := ocr.LowConfidenceWords(result); len(low) > 0 {
		fmt.Printf("Low-confidence words: %d\n", len(low))
	}
	fmt.Println("\n--- Text ---")
	fmt.Println(result.Text)
}

func HandleDeleteCommand(args []string, configPath, dataDir string) {
	if len(args) == 0 {
		fmt.Println("Usage: ocrdesk delete <document-id> [document-id...]")
		os.Exit(1)
	}

	fmt.Printf("Delete %d document(s)? (yes/no): ", len(args))
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	if strings.TrimSpace(strings.ToLower(response)) != "yes" {
		fmt.Println("Cancelled")
		return
	}

	a := mustApp(configPath, dataDir)
	defer a.Close()

	ctx := context.Background()
	if len(args) == 1 {
		a.Docs.Delete(ctx, args[0])
	} else {
		a.Docs.BulkDelete(ctx, args)
	}

	if errMsg := a.Docs.Error(); errMsg != "" {
		fmt.Printf("Error: %s\n", errMsg)
		os.Exit(1)
	}
	fmt.Printf("✓ Deleted %d document(s)\n", len(args))
}

func HandleProcessCommand(args []string, configPath, dataDir string) {
	opts, rest := parseUploadFlags(args)
	if len(rest) == 0 {
		fmt.Println("Usage: ocrdesk process <document-id> [--lang ...] [--quality ...]")
		os.Exit(1)
	}

	a := mustApp(configPath, dataDir)
	defer a.Close()

	result, err := a.ProcessDocument(context.Background(), rest[0], opts)
	if err != nil {
		fmt.Printf("✗ Processing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Done (%s confidence %.0f%%)\n", ocr.ConfidenceTier(result.Confidence), result.Confidence*100)
}

func HandleReprocessCommand(args []string, configPath, dataDir string) {
	req := ocr.ReprocessRequest{PageNumber: 1}
	var rest []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--page", "-p":
			if i+1 < len(args) {
				i++
				fmt.Sscanf(args[i], "%d", &req.PageNumber)
			}
		case "--region":
			if i+1 < len(args) {
				i++
				n, err := fmt.Sscanf(args[i], "%f,%f,%f,%f",
					&req.Region.X, &req.Region.Y, &req.Region.Width, &req.Region.Height)
				if err != nil || n != 4 {
					fmt.Println("Error: --region expects x,y,width,height")
					os.Exit(1)
				}
			}
		case "--lang", "-l":
			if i+1 < len(args) {
				i++
				req.Options.Language = args[i]
			}
		case "--enhance":
			req.Options.Enhance = true
		default:
			rest = append(rest, args[i])
		}
	}

	if len(rest) == 0 || req.Region.Width <= 0 || req.Region.Height <= 0 {
		fmt.Println("Usage: ocrdesk reprocess <document-id> --region x,y,width,height [--page N] [--lang ...] [--enhance]")
		os.Exit(1)
	}
	req.DocumentID = rest[0]

	a := mustApp(configPath, dataDir)
	defer a.Close()

	result, err := a.Reprocess(context.Background(), req)
	if err != nil {
		fmt.Printf("✗ Reprocessing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Done (%s confidence %.0f%%)\n", ocr.ConfidenceTier(result.Confidence), result.Confidence*100)
}

func HandleExportCommand(args []string, configPath, dataDir string) {
	if len(args) < 2 {
		fmt.Println("Usage: ocrdesk export <document-id> <txt|docx|json|pdf>")
		os.Exit(1)
	}

	format, err := ocr.ParseExportFormat(args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	a := mustApp(configPath, dataDir)
	defer a.Close()

	ctx := context.Background()
	a.Docs.FetchDocument(ctx, args[0])
	name := args[0]
	if doc := a.Docs.Current(); doc != nil {
		name = doc.Name
	}

	path, err := a.Exporter.Export(ctx, args[0], name, format)
	if err != nil {
		fmt.Printf("✗ Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Exported to %s\n", path)
}

func HandleStatusCommand(configPath, dataDir string) {
	a := mustApp(configPath, dataDir)
	defer a.Close()

	uploads, err := a.Store.RecentUploads(10)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Recent uploads:")
	if len(uploads) == 0 {
		fmt.Println("  (none)")
	}
	for _, u := range uploads {
		mark := "✓"
		if !u.Success {
			mark = "✗"
		}
		fmt.Printf("  %s %-30s %s\n", mark, u.FileName, u.CreatedAt.Format("2006-01-02 15:04"))
	}

	open, err := a.Store.OpenJobs()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if len(open) > 0 {
		fmt.Println("\nOpen jobs:")
		for _, j := range open {
			fmt.Printf("  %s  document %s  since %s\n", j.JobID, j.DocumentID, j.StartedAt.Format("15:04:05"))
		}
	}
}

func HandleWatchCommand(configPath, dataDir string) {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Watch.Dir == "" {
		fmt.Println("Error: watch.dir is not configured (set OCRDESK_WATCH_DIR or watch.dir in the config file)")
		os.Exit(1)
	}

	st, err := store.New(cfg)
	if err != nil {
		fmt.Printf("Error opening local store: %v\n", err)
		os.Exit(1)
	}

	a := app.New(cfg, st, logger)
	defer a.Close()

	watcher := watch.New(cfg, func(ctx context.Context, path string) error {
		_, err := a.ProcessFile(ctx, path, "watch", document.UploadOptions{})
		return err
	}, logger)
	if err := watcher.Start(); err != nil {
		fmt.Printf("Error starting watcher: %v\n", err)
		os.Exit(1)
	}
	defer watcher.Stop()

	maintenance := watch.NewMaintenance(cfg.Watch, st, logger)
	if err := maintenance.Start(); err != nil {
		fmt.Printf("Error starting maintenance scheduler: %v\n", err)
		os.Exit(1)
	}
	defer maintenance.Stop()

	server := api.New(cfg, a.Docs, a.Jobs, st, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Status server stopped", zap.Error(err))
		}
	}()
	defer server.Shutdown()

	fmt.Printf("Watching %s (status on http://%s:%d)\n", cfg.Watch.Dir, cfg.Server.Address, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("\nShutting down...")
}

func HandleConfigCommand(args []string, configPath, dataDir string) {
	if len(args) == 0 {
		fmt.Println("Usage: ocrdesk config <init|show>")
		os.Exit(1)
	}

	switch args[0] {
	case "init":
		path := configPath
		if path == "" {
			cfg, err := config.Load("", dataDir)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			path = cfg.Storage.DataDir + "/ocrdesk.yaml"
		}
		if err := config.WriteTemplate(path); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Wrote config template to %s\n", path)

	case "show":
		cfg, err := config.Load(configPath, dataDir)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("backend.base_url:      %s\n", cfg.Backend.BaseURL)
		fmt.Printf("backend.timeout:       %ds\n", cfg.Backend.Timeout)
		fmt.Printf("upload.max_file_size:  %d bytes\n", cfg.Upload.MaxFileSize)
		fmt.Printf("upload.max_batch_size: %d\n", cfg.Upload.MaxBatchSize)
		fmt.Printf("upload.allowed_types:  %s\n", strings.Join(cfg.Upload.AllowedTypes, ", "))
		fmt.Printf("upload.language:       %s\n", cfg.Upload.Language)
		fmt.Printf("polling.interval:      %s\n", cfg.Polling.Interval)
		fmt.Printf("polling.max_attempts:  %d\n", cfg.Polling.MaxAttempts)
		fmt.Printf("storage.data_dir:      %s\n", cfg.Storage.DataDir)
		fmt.Printf("watch.dir:             %s\n", cfg.Watch.Dir)

	default:
		fmt.Println("Usage: ocrdesk config <init|show>")
		os.Exit(1)
	}
}

func PrintHelp() {
	fmt.Printf("ocrdesk %s - OCR document client\n\n", Version)
	fmt.Println("Usage: ocrdesk [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  upload <file>...      Upload files and run OCR")
	fmt.Println("  list                  List documents")
	fmt.Println("  get <id>              Show a document and its OCR result")
	fmt.Println("  delete <id>...        Delete documents")
	fmt.Println("  process <id>          Start OCR for an uploaded document")
	fmt.Println("  reprocess <id>        Re-run OCR over a page region")
	fmt.Println("  export <id> <format>  Export a result (txt, docx, json, pdf)")
	fmt.Println("  status                Show recent uploads and open jobs")
	fmt.Println("  watch                 Watch a hot folder and process new files")
	fmt.Println("  browse                Interactive document browser")
	fmt.Println("  config <init|show>    Manage configuration")
	fmt.Println("  version               Print version")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -config <path>        Config file path")
	fmt.Println("  -data <path>          Data directory")
}
