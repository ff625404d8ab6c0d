package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/configs"
	"github.com/enterprise/fraud-dashboard/internal/report"
	"github.com/enterprise/fraud-dashboard/internal/upstream"
)

type flags struct {
	StartDate string
	EndDate   string
	OutputDir string
}

func main() {
	_ = godotenv.Load()

	cfg := configs.Load()
	setupLogging(cfg.Server.Environment)

	f := parseFlags(cfg.Report)

	dateRange, err := report.ParseDateRange(f.StartDate, f.EndDate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exporter := report.NewExporter(upstream.NewClient(cfg.Upstream))

	doc, err := exporter.Export(ctx, dateRange)
	if err != nil {
		if errors.Is(err, report.ErrDateRangeRequired) {
			fmt.Fprintln(os.Stderr, report.ValidationMessage)
			os.Exit(2)
		}
		log.Error().Err(err).Msg("Report export failed")
		os.Exit(1)
	}

	path, err := report.Save(f.OutputDir, doc)
	if err != nil {
		log.Error().Err(err).Msg("Report export failed")
		os.Exit(1)
	}

	fmt.Println(path)
}

func parseFlags(cfg configs.ReportConfig) flags {
	var f flags

	flag.StringVar(&f.StartDate, "start", "", "First day of the report (YYYY-MM-DD)")
	flag.StringVar(&f.EndDate, "end", "", "Last day of the report (YYYY-MM-DD)")
	flag.StringVar(&f.OutputDir, "out", cfg.OutputDir, "Directory the report is saved to")

	flag.Parse()

	return f
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
