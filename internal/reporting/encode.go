package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// ParseFormat defaults to CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatExcel, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("format must be csv, excel or pdf")
	}
}

// File is a rendered export ready to be sent as an attachment.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

type table struct {
	title  string
	header []string
	rows   [][]string
	// widths are relative; nil spreads columns evenly
	widths []float64
}

const missing = "-"

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return missing
	}
	return s
}

var utf8BOM = unicode.UTF8BOM

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func delimited(t table, enc encoding.Encoding) ([]byte, error) {
	var b bytes.Buffer
	tw := transform.NewWriter(&b, enc.NewEncoder())
	w := csv.NewWriter(tw)
	if err := w.Write(t.header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.rows); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func render(t table, f Format, base string) (File, error) {
	switch f {
	case FormatExcel:
		body, err := workbook(t)
		return File{Name: base + ".xlsx", ContentType: xlsxContentType, Body: body}, err
	case FormatPDF:
		body, err := tablePDF(t)
		return File{Name: base + ".pdf", ContentType: "application/pdf", Body: body}, err
	default:
		body, err := delimited(t, utf8BOM)
		return File{Name: base + ".csv", ContentType: "text/csv; charset=utf-8", Body: body}, err
	}
}

// ===== xlsx =====

// sheetName trims a title to what Excel accepts as a sheet name.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Sheet1"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// workbook writes t as a single-sheet xlsx with a frozen, filterable header row.
func workbook(t table) ([]byte, error) {
	x := excelize.NewFile()
	defer x.Close()

	sheet := sheetName(t.title)
	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	header := make([]any, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	if err := x.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range t.rows {
		cells := make([]any, len(t.header))
		for j := range cells {
			v := missing
			if j < len(row) {
				v = dash(row[j])
			}
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := x.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, err
		}
	}

	last, err := excelize.ColumnNumberToName(len(t.header))
	if err != nil {
		return nil, err
	}
	bold, err := x.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCDCDC"}},
	})
	if err != nil {
		return nil, err
	}
	if err := x.SetCellStyle(sheet, "A1", last+"1", bold); err != nil {
		return nil, err
	}
	if err := x.SetColWidth(sheet, "A", last, 18); err != nil {
		return nil, err
	}
	if err := x.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	if err := x.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", last, len(t.rows)+1), nil); err != nil {
		return nil, err
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ===== pdf =====

const (
	rowH    = 6.0
	cellPad = 1.5
)

type pdfDoc struct {
	*fpdf.Fpdf
	tr func(string) string
}

// newPDF starts a document; paged documents get a "Page n/N" footer.
func newPDF(orientation, title string, paged bool) *pdfDoc {
	p := fpdf.New(orientation, "mm", "A4", "")
	p.SetTitle(title, true)
	p.SetAutoPageBreak(true, 12)
	p.AliasNbPages("")
	d := &pdfDoc{Fpdf: p, tr: p.UnicodeTranslatorFromDescriptor("")}
	if paged {
		p.SetFooterFunc(func() {
			p.SetY(-10)
			p.SetFont("Helvetica", "I", 8)
			p.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", p.PageNo()), "", 0, "C", false, 0, "")
		})
	}
	return d
}

// fit shortens s until it fits a cell of width w.
func (d *pdfDoc) fit(s string, w float64) string {
	s = d.tr(s)
	if d.GetStringWidth(s) <= w-2*cellPad {
		return s
	}
	for len(s) > 0 && d.GetStringWidth(s+"..") > w-2*cellPad {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s + ".."
}

func (d *pdfDoc) heading(s string) {
	d.SetFont("Helvetica", "B", 14)
	d.CellFormat(0, 9, d.tr(s), "", 1, "L", false, 0, "")
	d.Ln(2)
}

func (d *pdfDoc) columns(t table) []float64 {
	left, _, right, _ := d.GetMargins()
	pageW, _ := d.GetPageSize()
	avail := pageW - left - right
	rel := t.widths
	if len(rel) != len(t.header) {
		rel = make([]float64, len(t.header))
		for i := range rel {
			rel[i] = 1
		}
	}
	var sum float64
	for _, v := range rel {
		sum += v
	}
	out := make([]float64, len(rel))
	for i, v := range rel {
		out[i] = avail * v / sum
	}
	return out
}

func (d *pdfDoc) headerRow(t table, ws []float64) {
	d.SetFont("Helvetica", "B", 8)
	d.SetFillColor(220, 220, 220)
	for i, h := range t.header {
		d.CellFormat(ws[i], rowH, d.fit(h, ws[i]), "1", 0, "L", true, 0, "")
	}
	d.Ln(-1)
	d.SetFont("Helvetica", "", 8)
}

// grid draws t, repeating the header row on every page.
func (d *pdfDoc) grid(t table) {
	ws := d.columns(t)
	_, pageH := d.GetPageSize()
	_, _, _, bottom := d.GetMargins()
	d.headerRow(t, ws)
	if len(t.rows) == 0 {
		d.CellFormat(0, rowH, "No records", "1", 1, "C", false, 0, "")
		return
	}
	for _, row := range t.rows {
		if d.GetY()+rowH > pageH-bottom-12 {
			d.AddPage()
			d.headerRow(t, ws)
		}
		for i := range ws {
			v := missing
			if i < len(row) {
				v = dash(row[i])
			}
			d.CellFormat(ws[i], rowH, d.fit(v, ws[i]), "1", 0, "L", false, 0, "")
		}
		d.Ln(-1)
	}
}

func (d *pdfDoc) bytes() ([]byte, error) {
	var b bytes.Buffer
	if err := d.Output(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func tablePDF(t table) ([]byte, error) {
	d := newPDF("L", t.title, true)
	d.AddPage()
	d.heading(t.title)
	d.grid(t)
	return d.bytes()
}
