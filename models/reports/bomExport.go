package reports

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	costingSheet     = "Costing"
	requirementSheet = "Requirements"
)

// ExportCostingReport writes rows to an xlsx workbook with a summary sheet and
// a sheet of per raw item requirements.
func ExportCostingReport(rows []*CostingRow, filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", costingSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(requirementSheet); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(costingSheet, "A1", "SubjectId")
	f.SetCellValue(costingSheet, "B1", "DisplayName")
	f.SetCellValue(costingSheet, "C1", "UnitCost")
	f.SetCellValue(costingSheet, "D1", "Capacity")
	f.SetCellValue(costingSheet, "E1", "AllHaveStock")
	f.SetCellValue(costingSheet, "F1", "Diagnostics")

	f.SetCellValue(requirementSheet, "A1", "SubjectId")
	f.SetCellValue(requirementSheet, "B1", "RawItemCode")
	f.SetCellValue(requirementSheet, "C1", "NativeUnit")
	f.SetCellValue(requirementSheet, "D1", "QuantityPerUnit")
	f.SetCellValue(requirementSheet, "E1", "AvailableStock")

	reqRow := 2
	for i, d := range rows {
		r := fmt.Sprint(i + 2)
		f.SetCellValue(costingSheet, "A"+r, d.SubjectId)
		f.SetCellValue(costingSheet, "B"+r, d.DisplayName)
		f.SetCellValue(costingSheet, "C"+r, d.UnitCost.Round(4).InexactFloat64())
		f.SetCellValue(costingSheet, "D"+r, d.Capacity.IntPart())
		f.SetCellValue(costingSheet, "E"+r, d.AllHaveStock)
		f.SetCellValue(costingSheet, "F"+r, strings.Join(d.Diagnostics, "; "))

		for _, req := range d.Requirements {
			r := fmt.Sprint(reqRow)
			f.SetCellValue(requirementSheet, "A"+r, d.SubjectId)
			f.SetCellValue(requirementSheet, "B"+r, req.RawItemCode)
			f.SetCellValue(requirementSheet, "C"+r, req.NativeUnit)
			f.SetCellValue(requirementSheet, "D"+r, req.QuantityPerUnit.InexactFloat64())
			f.SetCellValue(requirementSheet, "E"+r, req.AvailableStock.InexactFloat64())
			reqRow++
		}
	}

	if err := f.SaveAs(filename); err != nil {
		return err
	}
	return nil
}
