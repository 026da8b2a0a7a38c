package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"insreview/internal"
	"insreview/internal/api"
	"insreview/internal/config"
	"insreview/internal/download"
	"insreview/internal/logger"
	"insreview/internal/review"
	"insreview/internal/shell"
	"insreview/internal/terminal"
	"insreview/internal/watch"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("INSREVIEW_API_BASE_URL", cfg.APIBaseURL))
	must(logger.Init(cfg.LogLevel, cfg.Environment))
	defer logger.Close()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	screen := terminal.New(os.Stdin, os.Stdout)
	client := api.NewClient(cfg)
	opts := review.Options{
		PageSize:       cfg.PageSize,
		ExportPrefix:   cfg.ExportPrefix,
		TrackStats:     cfg.TrackStats,
		DefaultCompany: cfg.DefaultCompany,
	}
	newController := func(confirm review.Confirmer) *review.Controller {
		return review.NewController(client, screen, confirm, download.NewSaver(cfg.DownloadDir), opts)
	}

	cmd := os.Args[1]
	switch cmd {
	case "upload":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "document path (pdf or image)")
		company := fs.String("company", cfg.DefaultCompany, "insurance company key, blank = auto-detect")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		ctx, cancel := signalContext()
		defer cancel()
		ctrl := newController(screen)
		ctrl.SelectCompany(*company)
		check(ctrl.UploadFile(ctx, *file))
	case "records:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		needsReview := fs.Bool("needs-review", false, "only records flagged for review")
		limit := fs.Int("limit", cfg.PageSize, "max records")
		_ = fs.Parse(os.Args[2:])
		opts.PageSize = *limit
		ctx, cancel := signalContext()
		defer cancel()
		check(newController(screen).LoadHistory(ctx, *needsReview))
	case "records:view":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "record id")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 {
			must(fmt.Errorf("--id is required"))
		}
		ctx, cancel := signalContext()
		defer cancel()
		check(newController(screen).View(ctx, internal.RecordID(*id)))
	case "records:delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "record id")
		yes := fs.Bool("yes", false, "skip the confirmation prompt")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 {
			must(fmt.Errorf("--id is required"))
		}
		var confirm review.Confirmer = screen
		if *yes {
			confirm = review.ConfirmFunc(func(string) bool { return true })
		}
		ctx, cancel := signalContext()
		defer cancel()
		check(newController(confirm).Delete(ctx, internal.RecordID(*id)))
	case "export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		formatFlag := fs.String("format", "excel", "excel|csv|json")
		idsFlag := fs.String("ids", "", "comma separated record ids")
		_ = fs.Parse(os.Args[2:])
		format, ok := internal.ParseExportFormat(*formatFlag)
		if !ok {
			must(fmt.Errorf("unsupported format: %s", *formatFlag))
		}
		ids, err := parseIDs(*idsFlag)
		must(err)
		if len(ids) == 0 {
			must(fmt.Errorf("--ids is required"))
		}
		ctx, cancel := signalContext()
		defer cancel()
		check(newController(screen).ExportRecords(ctx, format, ids))
	case "stats":
		ctx, cancel := signalContext()
		defer cancel()
		check(newController(screen).LoadStats(ctx))
	case "companies":
		ctx, cancel := signalContext()
		defer cancel()
		_, err := newController(screen).Companies(ctx)
		check(err)
	case "watch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", cfg.WatchDir, "drop folder")
		interval := fs.Int("interval", cfg.WatchIntervalSec, "seconds between scans")
		existing := fs.Bool("existing", false, "also upload files already in the folder")
		_ = fs.Parse(os.Args[2:])
		if *interval <= 0 {
			must(fmt.Errorf("--interval must be positive"))
		}
		ctx, cancel := signalContext()
		defer cancel()
		svc := watch.NewService(*dir, time.Duration(*interval)*time.Second, newController(screen))
		if !*existing {
			must(svc.Prime())
		}
		fmt.Printf("watching %s every %ds\n", *dir, *interval)
		must(svc.Run(ctx))
	case "shell":
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, os.Interrupt)
		defer signal.Stop(interrupts)
		must(shell.New(newController(screen), screen, os.Stdout, interrupts).Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseIDs(raw string) ([]internal.RecordID, error) {
	var ids []internal.RecordID
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := internal.ParseRecordID(part)
		if err != nil {
			return nil, fmt.Errorf("bad record id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func usage() {
	fmt.Println("usage: insreview <command>")
	fmt.Println("commands:")
	fmt.Println("  upload --file=./policy.pdf [--company=nationwide]")
	fmt.Println("  records:list [--needs-review] [--limit=10]")
	fmt.Println("  records:view --id=1")
	fmt.Println("  records:delete --id=1 [--yes]")
	fmt.Println("  export --ids=1,2 [--format=excel|csv|json]")
	fmt.Println("  stats")
	fmt.Println("  companies")
	fmt.Println("  watch [--dir=./inbox] [--interval=5] [--existing]")
	fmt.Println("  shell")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// check exits non-zero on a failed operation. The screen has already shown
// the message.
func check(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, review.ErrCancelled) {
		fmt.Println("Cancelled")
	}
	logger.Close()
	os.Exit(1)
}
