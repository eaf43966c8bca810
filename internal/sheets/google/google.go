// Package google writes the printable expense report to a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "expensetracker/internal/log"
	"expensetracker/internal/render"
)

// Config selects the spreadsheet, the tab and the service account.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// valuesWriter is the slice of the Sheets values API the publisher needs.
type valuesWriter interface {
	Clear(ctx context.Context, rng string) error
	Update(ctx context.Context, rng string, rows [][]any) error
}

// ReportPublisher rewrites the report tab when a presented view changes the
// report. Views that differ only in their filter leave the sheet alone.
type ReportPublisher struct {
	values    valuesWriter
	sheetName string
	format    render.Formatter
	logger    *applog.Logger

	mu      sync.Mutex
	written [][]any
}

// NewReportPublisher authenticates with the service account and returns a
// publisher for cfg.SheetName.
func NewReportPublisher(ctx context.Context, cfg Config, symbol string, logger *applog.Logger) (*ReportPublisher, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing report sheet name")
	}
	if logger == nil {
		logger = applog.FromContext(ctx)
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &ReportPublisher{
		values:    &sheetsValues{svc: svc, spreadsheetID: cfg.SpreadsheetID},
		sheetName: cfg.SheetName,
		format:    render.NewFormatter(symbol),
		logger:    logger,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over the file; GOOGLE_APPLICATION_CREDENTIALS is the fallback.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created",
		"credentials_size", len(credentialsJSON),
		"from_file", serviceAccountJSON == "")
	return service, nil
}

// Present clears the report tab and writes the rows for v.
func (p *ReportPublisher) Present(ctx context.Context, v render.View) error {
	rows := ReportRows(v, p.format)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.written != nil && reflect.DeepEqual(p.written, rows) {
		return nil
	}

	clearRange := fmt.Sprintf("%s!A:C", p.sheetName)
	if err := p.values.Clear(ctx, clearRange); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}
	writeRange := fmt.Sprintf("%s!A1:C%d", p.sheetName, len(rows))
	if err := p.values.Update(ctx, writeRange, rows); err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}
	p.written = rows

	p.logger.DebugContext(ctx, "Report written",
		applog.FieldOperation, applog.OpPublish,
		"range", writeRange,
		"rows", len(rows))
	return nil
}

type sheetsValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *sheetsValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	return err
}

func (s *sheetsValues) Update(ctx context.Context, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
