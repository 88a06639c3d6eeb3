// Package sheets implements the external source reader on top of the
// Google Sheets API. It fetches the raw grid of the configured sheet and
// converts it into an ordered sequence of header->value rows.
//
// No retries happen at this layer. A failed fetch surfaces as
// ErrSourceUnavailable and the next scheduled run is the retry.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pvz-sync/internal/types"

	"github.com/sirupsen/logrus"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// ErrSourceUnavailable indicates the external source could not be reached or
// refused authentication. Wrapped errors carry the underlying cause.
var ErrSourceUnavailable = errors.New("external source unavailable")

// Row is a single spreadsheet row mapped by header label. Values keep the
// raw types the API returned (string or number); coercion to strings is the
// normalizer's job.
type Row map[string]any

// Reader fetches rows from a Google Sheets spreadsheet.
type Reader struct {
	service *sheetsapi.Service
	timeout time.Duration
}

// NewReader creates a reader authenticated with the configured service
// account credentials.
func NewReader(configManager types.ConfigManager) (*Reader, error) {
	cfg := configManager.GetSheetsConfig()

	service, err := sheetsapi.NewService(context.Background(),
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Reader{
		service: service,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

// FetchRows reads all data rows of the named sheet. The sheet metadata is
// queried first to learn the grid extent, then the values are fetched
// unformatted, except dates which are rendered as display strings.
//
// An empty sheet (header only, or nothing at all) yields an empty slice and
// a nil error.
func (r *Reader) FetchRows(ctx context.Context, spreadsheetID, sheetName string) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	meta, err := r.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets(properties(title,gridProperties(rowCount,columnCount)))").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: metadata query failed: %v", ErrSourceUnavailable, err)
	}

	var rowCount, columnCount int64
	found := false
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			found = true
			if sheet.Properties.GridProperties != nil {
				rowCount = sheet.Properties.GridProperties.RowCount
				columnCount = sheet.Properties.GridProperties.ColumnCount
			}
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: sheet %q not found in spreadsheet %s", ErrSourceUnavailable, sheetName, spreadsheetID)
	}
	if rowCount == 0 {
		return nil, nil
	}
	if columnCount == 0 {
		columnCount = 26
	}

	readRange := fmt.Sprintf("'%s'!A1:%s%d", sheetName, columnLetter(columnCount), rowCount)
	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: values query failed: %v", ErrSourceUnavailable, err)
	}

	rows := RowsFromGrid(resp.Values)
	logrus.WithFields(logrus.Fields{
		"spreadsheet_id": spreadsheetID,
		"sheet":          sheetName,
		"rows":           len(rows),
	}).Debug("Fetched source rows")
	return rows, nil
}

// RowsFromGrid converts a raw header+data grid into rows keyed by header
// label. Cells beyond a row's length are absent from that row's map; columns
// with a blank header are dropped.
func RowsFromGrid(grid [][]any) []Row {
	if len(grid) < 2 {
		// Header only, or nothing: the source is empty, not broken.
		return nil
	}

	headers := make([]string, len(grid[0]))
	for i, cell := range grid[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(cell))
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, rawRow := range grid[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			if header == "" || i >= len(rawRow) {
				continue
			}
			row[header] = rawRow[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// columnLetter converts a 1-based column count to its A1-notation letter
// ("A", "Z", "AA", ...).
func columnLetter(n int64) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	if len(b) == 0 {
		return "A"
	}
	return string(b)
}
