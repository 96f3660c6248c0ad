package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/request"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/stock"
)

// Balances выгружает текущие остатки в xlsx.
func Balances(w io.Writer, bals []stock.Balance) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{"code", "name", "uom", "available"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("заголовок: %w", err)
	}

	row := 2
	for _, b := range bals {
		line := []interface{}{b.Code, b.Name, b.UOM, b.Available.String()}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("ячейки: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("строка %d: %w", row, err)
		}
		row++
	}
	return f.Write(w)
}

// RequestLines выгружает лимитную ведомость заявки в xlsx.
func RequestLines(w io.Writer, lines []request.QuotaLine) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"request_item_id", "code", "name", "uom",
		"limit", "issued", "left", "available", "can_issue_now",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("заголовок: %w", err)
	}

	row := 2
	for _, l := range lines {
		line := []interface{}{
			l.ItemID, l.Code, l.Name, l.UOM,
			l.Limit.String(), l.Issued.String(), l.Left.String(),
			l.Available.String(), l.CanIssueNow.String(),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("ячейки: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("строка %d: %w", row, err)
		}
		row++
	}
	return f.Write(w)
}
