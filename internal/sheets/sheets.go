// Package sheets reads the timetable grid from Google Sheets, either through
// the Sheets API or from the xlsx export of the spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"schedule-sync-bot/internal/grid"
)

var ErrSheetNotFound = errors.New("sheet not found")

const (
	gridFields  = "sheets(properties(sheetId,title),merges,data(startRow,startColumn,rowData(values(formattedValue,effectiveValue))))"
	linksFields = "sheets(properties(sheetId,title),merges,data(startRow,startColumn,rowData(values(formattedValue,effectiveValue,hyperlink,textFormatRuns(format(link))))))"
)

// Client reads one sheet (by gid) of one spreadsheet.
type Client struct {
	srv           *gsheets.Service
	spreadsheetID string
	gid           int64
}

// NewClient builds a read-only Sheets client. Pass option.WithCredentialsFile
// for a service account; tests pass an endpoint and http client.
func NewClient(ctx context.Context, spreadsheetID string, gid int64, opts ...option.ClientOption) (*Client, error) {
	const op = "sheets.NewClient"

	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}, opts...)
	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID, gid: gid}, nil
}

// FetchGrid returns cell values and merges.
func (c *Client) FetchGrid(ctx context.Context) (*grid.Sheet, error) {
	return c.fetch(ctx, gridFields, false)
}

// FetchValuesAndLinks also returns per-cell hyperlinks.
func (c *Client) FetchValuesAndLinks(ctx context.Context) (*grid.Sheet, error) {
	return c.fetch(ctx, linksFields, true)
}

func (c *Client) fetch(ctx context.Context, fields string, withLinks bool) (*grid.Sheet, error) {
	const op = "sheets.Client.fetch"

	resp, err := c.srv.Spreadsheets.Get(c.spreadsheetID).
		IncludeGridData(true).
		Fields(googleapi.Field(fields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s, err := fromSpreadsheet(resp, c.gid, withLinks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func fromSpreadsheet(resp *gsheets.Spreadsheet, gid int64, withLinks bool) (*grid.Sheet, error) {
	var sh *gsheets.Sheet
	for _, s := range resp.Sheets {
		if s.Properties != nil && s.Properties.SheetId == gid {
			sh = s
			break
		}
	}
	if sh == nil {
		return nil, fmt.Errorf("gid %d: %w", gid, ErrSheetNotFound)
	}

	out := &grid.Sheet{Title: sh.Properties.Title}
	if withLinks {
		out.Links = grid.Matrix{}
	}

	for _, d := range sh.Data {
		for i, row := range d.RowData {
			r := int(d.StartRow) + i
			for j, cell := range row.Values {
				col := int(d.StartColumn) + j
				if v := cellValue(cell); v != "" {
					out.Values = set(out.Values, r, col, v)
				}
				if withLinks {
					if l := cellLink(cell); l != "" {
						out.Links = set(out.Links, r, col, l)
					}
				}
			}
		}
	}

	for _, m := range sh.Merges {
		out.Merges = append(out.Merges, grid.Merge{
			StartRow: int(m.StartRowIndex),
			EndRow:   int(m.EndRowIndex),
			StartCol: int(m.StartColumnIndex),
			EndCol:   int(m.EndColumnIndex),
		})
	}

	return out, nil
}

func cellValue(c *gsheets.CellData) string {
	if c == nil {
		return ""
	}
	if c.FormattedValue != "" {
		return c.FormattedValue
	}
	ev := c.EffectiveValue
	switch {
	case ev == nil:
		return ""
	case ev.StringValue != nil:
		return *ev.StringValue
	case ev.NumberValue != nil:
		return strconv.FormatFloat(*ev.NumberValue, 'f', -1, 64)
	case ev.BoolValue != nil:
		return strconv.FormatBool(*ev.BoolValue)
	}
	return ""
}

func cellLink(c *gsheets.CellData) string {
	if c == nil {
		return ""
	}
	if c.Hyperlink != "" {
		return c.Hyperlink
	}
	for _, run := range c.TextFormatRuns {
		if run != nil && run.Format != nil && run.Format.Link != nil && run.Format.Link.Uri != "" {
			return run.Format.Link.Uri
		}
	}
	return ""
}

func set(m grid.Matrix, r, c int, v string) grid.Matrix {
	for len(m) <= r {
		m = append(m, nil)
	}
	if len(m[r]) <= c {
		m[r] = append(m[r], make([]string, c+1-len(m[r]))...)
	}
	m[r][c] = v
	return m
}
