package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// Workbook columns, in order.
var catalogHeaders = []string{"name", "description", "category", "price", "stock_quantity", "image_url"}

type importReport struct {
	TotalRows  int
	Valid      int
	Skipped    int
	Duplicates int
}

func (r importReport) Print(w io.Writer) {
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Total rows: %d\n", r.TotalRows)
	fmt.Fprintf(w, "  Valid products: %d\n", r.Valid)
	fmt.Fprintf(w, "  Skipped rows: %d\n", r.Skipped)
	fmt.Fprintf(w, "  Duplicate names: %d\n", r.Duplicates)
}

func readProductsFromXLSX(filePath string) ([]model.Product, importReport, error) {
	var report importReport

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, report, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, report, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, report, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, report, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.Product
	seen := make(map[string]bool)

	// first row is the header
	for _, row := range rows[1:] {
		report.TotalRows++

		product, ok := parseProductRow(row)
		if !ok {
			report.Skipped++
			continue
		}

		key := strings.ToLower(product.Name)
		if seen[key] {
			report.Duplicates++
			report.Skipped++
			continue
		}
		seen[key] = true

		products = append(products, product)
	}
	report.Valid = len(products)

	return products, report, nil
}

func parseProductRow(row []string) (model.Product, bool) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	name := cell(0)
	if name == "" {
		return model.Product{}, false
	}

	price, err := strconv.ParseFloat(cell(3), 64)
	if err != nil || price <= 0 {
		return model.Product{}, false
	}

	stock := 0
	if s := cell(4); s != "" {
		stock, err = strconv.Atoi(s)
		if err != nil || stock < 0 {
			return model.Product{}, false
		}
	}

	return model.Product{
		Name:          name,
		Description:   cell(1),
		Category:      parseCategory(cell(2)),
		Price:         price,
		StockQuantity: stock,
		ImageURL:      cell(5),
	}, true
}

func parseCategory(s string) model.ProductCategory {
	switch c := model.ProductCategory(strings.ToLower(s)); c {
	case model.CategoryAntivirus, model.CategoryVPN, model.CategoryFirewall, model.CategoryEDR:
		return c
	}
	return model.CategoryOther
}

// writeTemplate creates a workbook with the header row and one example.
func writeTemplate(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &catalogHeaders); err != nil {
		return err
	}
	example := []interface{}{"Endpoint Guard", "Antivirus for workstations", "antivirus", 9.99, 1000, ""}
	if err := f.SetSheetRow(sheet, "A2", &example); err != nil {
		return err
	}
	return f.SaveAs(path)
}
