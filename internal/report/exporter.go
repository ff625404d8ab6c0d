package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/internal/models"
	"github.com/enterprise/fraud-dashboard/internal/upstream"
)

const (
	// DefaultFilename is the name every exported report is saved under
	DefaultFilename    = "fraud_report.pdf"
	DefaultContentType = "application/pdf"

	// DateLayout is the wire form of report dates
	DateLayout = "2006-01-02"

	// ValidationMessage is shown to the operator when a date is missing
	ValidationMessage = "Please select a date range."
)

var (
	ErrDateRangeRequired = errors.New("date range required")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
)

// DateRange bounds a report. A zero Start or End means it was not selected.
// Start after End is passed through as-is.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange reads two YYYY-MM-DD dates; empty strings stay unselected
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error

	if r.Start, err = parseDate(start); err != nil {
		return DateRange{}, fmt.Errorf("start_date: %w", err)
	}
	if r.End, err = parseDate(end); err != nil {
		return DateRange{}, fmt.Errorf("end_date: %w", err)
	}
	return r, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Complete reports whether both dates are selected
func (r DateRange) Complete() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Generator renders a report for a date range
type Generator interface {
	GenerateReport(ctx context.Context, request upstream.ReportRequest) ([]byte, string, error)
}

// Exporter requests reports and hands them back for saving
type Exporter struct {
	generator Generator
}

// NewExporter creates a new report exporter
func NewExporter(generator Generator) *Exporter {
	return &Exporter{generator: generator}
}

// Export requests the report for r. No request is sent unless both dates
// are selected.
func (e *Exporter) Export(ctx context.Context, r DateRange) (*models.Report, error) {
	if !r.Complete() {
		return nil, ErrDateRangeRequired
	}

	request := upstream.ReportRequest{
		StartDate: r.Start.Format(DateLayout),
		EndDate:   r.End.Format(DateLayout),
	}

	start := time.Now()
	data, contentType, err := e.generator.GenerateReport(ctx, request)
	if err != nil {
		log.Error().
			Err(err).
			Str("start_date", request.StartDate).
			Str("end_date", request.EndDate).
			Msg("Failed to generate report")
		return nil, fmt.Errorf("report generation failed: %w", err)
	}

	if contentType == "" {
		contentType = DefaultContentType
	}

	log.Info().
		Str("start_date", request.StartDate).
		Str("end_date", request.EndDate).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Report generated")

	return &models.Report{
		Filename:    DefaultFilename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// Save writes report into dir and returns the written path
func Save(dir string, report *models.Report) (string, error) {
	name := report.Filename
	if name == "" {
		name = DefaultFilename
	}
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, report.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	log.Info().Str("path", path).Int("bytes", len(report.Data)).Msg("Report saved")
	return path, nil
}
