// Package report renders planning results as spreadsheets.
package report

import (
	"fmt"
	"time"

	"supplychain/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet      = "Summary"
	RequirementsSheet = "Requirements"
)

// RequirementHeaders is the header row of the requirements sheet.
var RequirementHeaders = []string{
	"Product Code", "Product Name", "Source", "Required Date", "Required Qty",
	"On Hand", "Allocated", "Available", "Shortage", "Action",
	"Suggested Qty", "Suggested Order Date",
}

const dateLayout = "2006-01-02"

// RequirementsXLSX writes a run summary sheet and one row per requirement.
func RequirementsXLSX(run *model.MRPRun, reqs []model.MRPRequirement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RequirementsSheet); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	summary := [][]interface{}{
		{"Run Code", run.RunCode},
		{"Status", string(run.Status)},
		{"Run At", run.RunAt.UTC().Format(time.RFC3339)},
		{"Horizon (days)", run.HorizonDays},
		{"Total Requirements", run.TotalRequirements},
		{"Shortages", run.ShortageCount},
		{"Duration (s)", run.DurationSeconds},
	}
	if run.ErrorMessage != "" {
		summary = append(summary, []interface{}{"Error", run.ErrorMessage})
	}
	for i, row := range summary {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColStyle(SummarySheet, "A", bold); err != nil {
		return nil, fmt.Errorf("failed to style summary: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "B", 24); err != nil {
		return nil, fmt.Errorf("failed to size summary: %w", err)
	}

	header := make([]interface{}, len(RequirementHeaders))
	for i, h := range RequirementHeaders {
		header[i] = h
	}
	if err := setRow(f, RequirementsSheet, 1, header); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(RequirementsSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range reqs {
		suggestedDate := ""
		if r.SuggestedOrderDate != nil {
			suggestedDate = r.SuggestedOrderDate.UTC().Format(dateLayout)
		}
		row := []interface{}{
			r.ProductCode,
			r.ProductName,
			string(r.Source),
			r.RequiredDate.UTC().Format(dateLayout),
			r.RequiredQuantity.InexactFloat64(),
			r.OnHandQuantity.InexactFloat64(),
			r.AllocatedQuantity.InexactFloat64(),
			r.AvailableQuantity.InexactFloat64(),
			r.ShortageQuantity.InexactFloat64(),
			string(r.SuggestedAction),
			r.SuggestedOrderQuantity.InexactFloat64(),
			suggestedDate,
		}
		if err := setRow(f, RequirementsSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(RequirementsSheet, "A", "L", 16); err != nil {
		return nil, fmt.Errorf("failed to size requirements: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
