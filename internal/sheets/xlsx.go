package sheets

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"schedule-sync-bot/internal/grid"
)

// XLSX downloads the spreadsheet export and reads its first sheet.
type XLSX struct {
	url    string
	client *http.Client
}

func NewXLSX(url string, client *http.Client) *XLSX {
	if client == nil {
		client = http.DefaultClient
	}
	return &XLSX{url: url, client: client}
}

func (x *XLSX) FetchGrid(ctx context.Context) (*grid.Sheet, error) {
	return x.fetch(ctx, false)
}

func (x *XLSX) FetchValuesAndLinks(ctx context.Context) (*grid.Sheet, error) {
	return x.fetch(ctx, true)
}

func (x *XLSX) fetch(ctx context.Context, withLinks bool) (*grid.Sheet, error) {
	const op = "sheets.XLSX.fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: open xlsx: %w", op, err)
	}
	defer f.Close()

	s, err := readWorkbook(f, withLinks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func readWorkbook(f *excelize.File, withLinks bool) (*grid.Sheet, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, ErrSheetNotFound
	}
	name := names[0]

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	out := &grid.Sheet{Title: name, Values: grid.Matrix(rows)}

	merged, err := f.GetMergeCells(name)
	if err != nil {
		return nil, fmt.Errorf("read merges: %w", err)
	}
	for _, mc := range merged {
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		// excelize keeps the value on the top-left cell only
		out.Values = set(out.Values, r1-1, c1-1, mc.GetCellValue())
		out.Merges = append(out.Merges, grid.Merge{
			StartRow: r1 - 1,
			EndRow:   r2,
			StartCol: c1 - 1,
			EndCol:   c2,
		})
	}

	if !withLinks {
		return out, nil
	}

	out.Links = grid.Matrix{}
	for r, row := range out.Values {
		for c := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			ok, link, err := f.GetCellHyperLink(name, cell)
			if err != nil || !ok || link == "" {
				continue
			}
			out.Links = set(out.Links, r, c, link)
		}
	}

	return out, nil
}
