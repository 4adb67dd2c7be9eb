// Package export renders scan records as spreadsheets.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"rxscan/internal/domain"
)

const (
	detailsSheet  = "Bill Details"
	productsSheet = "Products"
)

var productHeaders = []string{
	"Product Name",
	"Quantity",
	"Batch Number",
	"MRP",
	"Rate",
	"Amount",
	"Exp Date",
}

// BillWorkbook returns an XLSX workbook for a bill record: a key/value sheet
// for bill_details and one row per line item.
func BillWorkbook(rec *domain.ScanRecord) ([]byte, error) {
	bill, err := rec.Bill()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", detailsSheet); err != nil {
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}
	if _, err := f.NewSheet(productsSheet); err != nil {
		return nil, fmt.Errorf("xlsx new sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	writeDetails(f, bill.BillDetails, rec)
	_ = f.SetCellStyle(detailsSheet, "A1", "A1", bold)
	_ = f.SetColWidth(detailsSheet, "A", "A", 22)
	_ = f.SetColWidth(detailsSheet, "B", "B", 40)

	for i, h := range productHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(productsSheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(productHeaders), 1)
	_ = f.SetCellStyle(productsSheet, "A1", last, bold)

	for i, item := range bill.Products {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(productsSheet, cell, v)
		}
		write(1, item.ProductName.String())
		write(2, numberCell(item.Quantity))
		write(3, item.BatchNumber.String())
		write(4, numberCell(item.MRP))
		write(5, numberCell(item.Rate))
		write(6, numberCell(item.Amount))
		write(7, item.ExpDate.String())
	}
	_ = f.SetColWidth(productsSheet, "A", "A", 36)
	_ = f.SetColWidth(productsSheet, "B", "B", 10)
	_ = f.SetColWidth(productsSheet, "C", "C", 16)
	_ = f.SetColWidth(productsSheet, "D", "F", 12)
	_ = f.SetColWidth(productsSheet, "G", "G", 10)

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDetails(f *excelize.File, details domain.BillDetails, rec *domain.ScanRecord) {
	row := 1
	put := func(k string, v any) {
		_ = f.SetCellValue(detailsSheet, fmt.Sprintf("A%d", row), k)
		_ = f.SetCellValue(detailsSheet, fmt.Sprintf("B%d", row), v)
		row++
	}
	put("Field", "Value")

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		put(k, detailValue(details[k]))
	}

	row++
	put("scan_id", rec.ID.String())
	put("source", rec.OriginalFilename)
	put("scanned_at", rec.CreatedAt.Format("2006-01-02 15:04:05"))
}

func detailValue(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// numberCell returns a float for valid numbers so the spreadsheet can sum
// them, and the raw text otherwise.
func numberCell(n domain.Number) any {
	if !n.Valid {
		return n.Raw
	}
	f, _ := n.Value.Float64()
	return f
}
