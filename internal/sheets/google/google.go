// Package google mirrors expense events into a Google Sheets ledger.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/velkoldin-dev/tratyallday/internal/config"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	ports "github.com/velkoldin-dev/tratyallday/internal/sheets"
)

const (
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base name without year, e.g. "Ledger"; the row's year is prefixed.
	sheetBase string
	logger    *log.Logger
}

var _ ports.LedgerWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// Credentials come from cfg (inline JSON or file) or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg config.SheetsConfig, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, credentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, cfg config.SheetsConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Ledger"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetBase:     base,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func loadCredentials(cfg config.SheetsConfig) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newSheetsService builds the service on top of a pooled HTTP client.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	baseCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	creds, err := googleauth.CredentialsFromJSON(baseCtx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	client := oauth2.NewClient(baseCtx, creds.TokenSource)
	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling, timeouts and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendEvent appends one row to the sheet of the entry's year and returns
// the updated range.
func (c *Client) AppendEvent(ctx context.Context, e ports.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, e.Year())
	rng := fmt.Sprintf("'%s'!A:H", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(e)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Ledger row appended",
		log.FieldEventID, e.EventID,
		log.FieldRecordID, e.ExpenseID,
		"range", ref)
	return ref, nil
}

// rowValues lays out columns A:H: timestamp, event id, action, record id,
// user id, date, category, amount.
func rowValues(e ports.Entry) []any {
	row := []any{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.EventID,
		e.Action,
		e.ExpenseID,
		e.UserID,
		e.Date,
		e.Category,
		"",
	}
	if e.Amount.Cents != 0 {
		row[7] = e.Amount.Rubles()
	}
	return row
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
