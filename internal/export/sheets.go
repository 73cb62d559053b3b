package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/config"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/grouping"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// GroupWriter appends merchant group summaries to an external sheet.
type GroupWriter interface {
	AppendGroups(ctx context.Context, groups []grouping.Group, ranAt time.Time) error
}

type SheetsClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ GroupWriter = (*SheetsClient)(nil)

// NewSheetsClient builds a Sheets client from configuration using
// Service Account credentials (inline JSON or a key file).
func NewSheetsClient(ctx context.Context, cfg *config.Config) (*SheetsClient, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.GoogleServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.GoogleServiceAccountJSON)
	case strings.TrimSpace(cfg.GoogleServiceAccountFile) != "":
		data, err := os.ReadFile(cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	sheetName := strings.TrimSpace(cfg.GoogleSheetName)
	if sheetName == "" {
		sheetName = "Merchants"
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendGroups writes one row per merchant group: export timestamp, display
// name, category, transaction count, total amount, bank, inclusion flag.
func (c *SheetsClient) AppendGroups(ctx context.Context, groups []grouping.Group, ranAt time.Time) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(groups) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(groups))
	stamp := ranAt.Format(time.RFC3339)
	for _, g := range groups {
		rows = append(rows, []any{
			stamp,
			g.DisplayName,
			g.Category,
			len(g.Transactions),
			float64(g.TotalCents) / 100.0,
			g.PrimaryBank,
			g.IncludedInTotals,
		})
	}

	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return nil
}
