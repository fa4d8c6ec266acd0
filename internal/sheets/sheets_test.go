package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"schedule-sync-bot/internal/grid"
)

func str(s string) *string { return &s }

func num(f float64) *float64 { return &f }

func TestFromSpreadsheet(t *testing.T) {
	resp := &gsheets.Spreadsheet{
		Sheets: []*gsheets.Sheet{
			{Properties: &gsheets.SheetProperties{SheetId: 1, Title: "other"}},
			{
				Properties: &gsheets.SheetProperties{SheetId: 7, Title: "Расписание"},
				Merges: []*gsheets.GridRange{
					{StartRowIndex: 0, EndRowIndex: 2, StartColumnIndex: 0, EndColumnIndex: 1},
				},
				Data: []*gsheets.GridData{{
					StartRow: 0,
					RowData: []*gsheets.RowData{
						{Values: []*gsheets.CellData{
							{FormattedValue: "ПОНЕДЕЛЬНИК"},
							{EffectiveValue: &gsheets.ExtendedValue{NumberValue: num(1)}},
							{EffectiveValue: &gsheets.ExtendedValue{StringValue: str("Физика")}},
						}},
						{Values: []*gsheets.CellData{
							nil,
							{},
							{FormattedValue: "Zoom", Hyperlink: "https://zoom.us/j/1"},
							{FormattedValue: "ссылка", TextFormatRuns: []*gsheets.TextFormatRun{
								{Format: &gsheets.TextFormat{}},
								{Format: &gsheets.TextFormat{Link: &gsheets.Link{Uri: "https://zoom.us/j/2"}}},
							}},
						}},
					},
				}},
			},
		},
	}

	got, err := fromSpreadsheet(resp, 7, true)
	if err != nil {
		t.Fatalf("fromSpreadsheet: %v", err)
	}

	wantValues := grid.Matrix{
		{"ПОНЕДЕЛЬНИК", "1", "Физика"},
		{"", "", "Zoom", "ссылка"},
	}
	if !reflect.DeepEqual(got.Values, wantValues) {
		t.Errorf("values = %v", got.Values)
	}
	if got.Links.Cell(1, 2) != "https://zoom.us/j/1" || got.Links.Cell(1, 3) != "https://zoom.us/j/2" {
		t.Errorf("links = %v", got.Links)
	}
	if len(got.Merges) != 1 || got.Merges[0].EndRow != 2 {
		t.Errorf("merges = %+v", got.Merges)
	}
	if got.Title != "Расписание" {
		t.Errorf("title = %q", got.Title)
	}

	if _, err := fromSpreadsheet(resp, 99, false); err == nil {
		t.Error("want error for unknown gid")
	}
}

func TestClientFetchGrid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/spreadsheets/sheet-id") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("includeGridData") != "true" {
			t.Errorf("includeGridData not set: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"sheetId":0,"title":"s"},
			"merges":[{"startRowIndex":0,"endRowIndex":1,"startColumnIndex":0,"endColumnIndex":2}],
			"data":[{"rowData":[{"values":[{"formattedValue":"1 курс"}]}]}]}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "sheet-id", 0,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	s, err := c.FetchGrid(context.Background())
	if err != nil {
		t.Fatalf("FetchGrid: %v", err)
	}
	expanded := grid.Expand(s)
	if expanded.Values.Cell(0, 1) != "1 курс" {
		t.Errorf("values = %v", expanded.Values)
	}
	if s.Links != nil {
		t.Error("FetchGrid must not read links")
	}
}

func TestXLSXFetch(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	mustDo(t, f.SetCellValue(sheet, "A1", "ПОНЕДЕЛЬНИК"))
	mustDo(t, f.MergeCell(sheet, "A1", "A3"))
	mustDo(t, f.SetCellValue(sheet, "D2", "Zoom"))
	mustDo(t, f.SetCellHyperLink(sheet, "D2", "https://zoom.us/j/3", "External"))
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	body := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	s, err := NewXLSX(srv.URL, srv.Client()).FetchValuesAndLinks(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(s.Merges) != 1 || s.Merges[0] != (grid.Merge{StartRow: 0, EndRow: 3, StartCol: 0, EndCol: 1}) {
		t.Errorf("merges = %+v", s.Merges)
	}
	if s.Links.Cell(1, 3) != "https://zoom.us/j/3" {
		t.Errorf("links = %v", s.Links)
	}
	expanded := grid.Expand(s)
	if expanded.Values.Cell(2, 0) != "ПОНЕДЕЛЬНИК" {
		t.Errorf("values = %v", expanded.Values)
	}
}

func TestXLSXBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewXLSX(srv.URL, nil).FetchGrid(context.Background()); err == nil {
		t.Fatal("want error")
	}
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
