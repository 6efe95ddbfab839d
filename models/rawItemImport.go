package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// rawItemImportHeader is the expected first row of an import sheet.
var rawItemImportHeader = []string{"code", "name", "native_unit", "unit_cost", "current_stock"}

type RawItemImportResult struct {
	Created       []string `json:"created"`
	DuplicateRows []string `json:"duplicate_rows"`
}

// ImportRawItemsFromXlsx creates raw items from the first sheet of an xlsx
// workbook. Rows whose code already exists are skipped and reported. Every row
// is parsed before anything is written, so a malformed sheet creates nothing.
func ImportRawItemsFromXlsx(ctx context.Context, r io.Reader) (*RawItemImportResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) == 0 || !isRawItemHeader(rows[0]) {
		return nil, fmt.Errorf("first row must be %s", strings.Join(rawItemImportHeader, ", "))
	}

	inputs := make([]*NewRawItem, 0, len(rows)-1)
	rowNos := make([]int, 0, len(rows)-1)
	for idx, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		input, err := parseRawItemRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", idx+2, err)
		}
		if err := utils.ValidateStruct(input); err != nil {
			return nil, fmt.Errorf("row %d: invalid fields %v", idx+2, utils.ProcessValidationErrors(err))
		}
		inputs = append(inputs, input)
		rowNos = append(rowNos, idx+2)
	}

	unlock, err := utils.BusinessLock(ctx, businessId, "catalogLock", "rawItemImport.go", "ImportRawItemsFromXlsx")
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &RawItemImportResult{Created: make([]string, 0), DuplicateRows: make([]string, 0)}
	for i, input := range inputs {
		existing, err := utils.FetchModelWhere[RawItem](ctx, businessId, "code = ?", input.Code)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.DuplicateRows = append(result.DuplicateRows, fmt.Sprintf("Row %d: Duplicate found for raw item with Code: %s", rowNos[i], input.Code))
			continue
		}
		if _, err := CreateRawItem(ctx, input); err != nil {
			return result, fmt.Errorf("row %d: %w", rowNos[i], err)
		}
		result.Created = append(result.Created, input.Code)
	}
	return result, nil
}

func isRawItemHeader(row []string) bool {
	if len(row) < len(rawItemImportHeader) {
		return false
	}
	for i, h := range rawItemImportHeader {
		if strings.ToLower(strings.TrimSpace(row[i])) != h {
			return false
		}
	}
	return true
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseRawItemRow(row []string) (*NewRawItem, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	input := &NewRawItem{
		Code:       cell(0),
		Name:       cell(1),
		NativeUnit: cell(2),
	}
	var err error
	if input.UnitCost, err = parseImportDecimal(cell(3)); err != nil {
		return nil, fmt.Errorf("could not parse unit cost: %v", err)
	}
	if input.CurrentStock, err = parseImportDecimal(cell(4)); err != nil {
		return nil, fmt.Errorf("could not parse current stock: %v", err)
	}
	return input, nil
}

func parseImportDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}
