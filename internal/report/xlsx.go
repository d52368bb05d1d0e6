package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/tunguard/internal/model"
)

// SheetName is the worksheet holding the audit rows.
const SheetName = "Tunnel Audit"

// Spreadsheet colors.
const (
	headerFill     = "2F75B5"
	headerFontRGB  = "FFFFFF"
	violationRGB   = "FF0000"
	normalRGB      = "000000"
	borderColorRGB = "000000"
)

// xlsxColumns is the fixed column layout of the audit sheet.
var xlsxColumns = []struct {
	header string
	width  float64
}{
	{"No.", 5},
	{"Tunnel ID", 10},
	{"Username", 15},
	{"Proxy Type", 10},
	{"Address (link)", 30},
	{"Local Port", 10},
	{"Domain", 25},
	{"Violation", 8},
	{"Evidence", 60},
	{"Check Time", 20},
}

// Column letters the writer styles individually.
const (
	violationColumn = "H"
	evidenceColumn  = "I"
	lastColumn      = "J"
)

// XLSXWriter renders the audit as a styled spreadsheet.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{
		baseWriter: newBaseWriter(output),
	}
}

// xlsxStyles holds the style ids registered in one workbook.
type xlsxStyles struct {
	header    int
	cell      int
	violation int
	clean     int
	evidence  int
}

// Write renders one header row and one row per result, in result order.
func (w *XLSXWriter) Write(report *model.AuditReport) (int, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close() //nolint:errcheck // in-memory workbook
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:    "tunguard",
		Title:      "Tunnel audit",
		Identifier: report.RunID,
		Created:    report.StartedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return 0, fmt.Errorf("failed to set document properties: %w", err)
	}

	styles, err := newXLSXStyles(f)
	if err != nil {
		return 0, err
	}

	if err := writeXLSXHeader(f, styles); err != nil {
		return 0, err
	}
	for i, res := range report.Results {
		if err := writeXLSXRow(f, styles, i+2, i+1, res); err != nil {
			return 0, err
		}
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderColorRGB, Style: 1},
		{Type: "top", Color: borderColorRGB, Style: 1},
		{Type: "right", Color: borderColorRGB, Style: 1},
		{Type: "bottom", Color: borderColorRGB, Style: 1},
	}

	var s xlsxStyles
	defs := []struct {
		id    *int
		style *excelize.Style
	}{
		{&s.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: headerFontRGB},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{&s.cell, &excelize.Style{Border: border}},
		{&s.violation, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: violationRGB},
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border:    border,
		}},
		{&s.clean, &excelize.Style{
			Font:      &excelize.Font{Color: normalRGB},
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border:    border,
		}},
		{&s.evidence, &excelize.Style{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border:    border,
		}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return xlsxStyles{}, fmt.Errorf("failed to create style: %w", err)
		}
		*d.id = id
	}
	return s, nil
}

func writeXLSXHeader(f *excelize.File, styles xlsxStyles) error {
	header := make([]any, len(xlsxColumns))
	for i, col := range xlsxColumns {
		header[i] = col.header

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, col.width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastColumn+"1", styles.header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeXLSXRow(f *excelize.File, styles xlsxStyles, row, seq int, res model.ClassificationResult) error {
	values := []any{
		seq,
		res.TunnelID,
		res.Username,
		res.ProxyType.String(),
		res.Link,
		res.LocalPort,
		orDash(res.Domain),
		yesNo(res.IsViolation),
		res.Evidence,
		res.FormattedCheckTime(),
	}

	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, first, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}

	r := strconv.Itoa(row)
	if err := f.SetCellStyle(SheetName, first, lastColumn+r, styles.cell); err != nil {
		return err
	}

	flagStyle := styles.clean
	if res.IsViolation {
		flagStyle = styles.violation
	}
	if err := f.SetCellStyle(SheetName, violationColumn+r, violationColumn+r, flagStyle); err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, evidenceColumn+r, evidenceColumn+r, styles.evidence)
}
