package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"contact-manager/model"
)

const exportSheetName = "Contacts"

// ExportService renders contact sets into xlsx bytes. The column order
// comes from contactColumns, so an exported file round-trips through
// the import reconciler unchanged.
type ExportService struct{}

// Export writes one "Contacts" worksheet: a header row followed by one
// row per contact, blanks for empty fields.
func (s *ExportService) Export(contacts []model.Contact) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	index, err := wb.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	wb.SetActiveSheet(index)
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	header := make([]interface{}, len(contactColumns))
	for i, col := range contactColumns {
		header[i] = col.header
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := wb.SetColWidth(exportSheetName, name, name, col.width); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	if err := wb.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	for i := range contacts {
		row := make([]interface{}, len(contactColumns))
		for j, col := range contactColumns {
			row[j] = col.get(&contacts[i])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := wb.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return buf.Bytes(), nil
}
