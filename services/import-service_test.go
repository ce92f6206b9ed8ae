package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"contact-manager/model"
)

// buildSheet renders a minimal import file: the stock header row
// followed by the given positional rows.
func buildSheet(t *testing.T, rows [][]string) []byte {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()

	header := make([]interface{}, len(contactColumns))
	for i, col := range contactColumns {
		header[i] = col.header
	}
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &header))

	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cell, &vals))
	}

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	return buf.Bytes()
}

func newImportService(t *testing.T) *ImportService {
	t.Helper()
	return &ImportService{DB: newTestDB(t), Log: zap.NewNop()}
}

func TestImportCreatesAndIsIdempotent(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	file := buildSheet(t, [][]string{
		{"12.345.678-5", "Ana Rojas", "+56911111111", "Calle 1", "Santiago", "RM"},
		{"98765432", "Juan Soto", "+56922222222", "Calle 2", "Providencia", "RM"},
		{"11.111.111-k", "Kari Vera"},
	})

	res, err := s.Import(ctx, "owner-1", file, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ImportedCount)
	assert.Equal(t, 0, res.UpdatedCount)
	assert.Contains(t, res.Message, "Se importaron 3")

	// Stored RUTs are canonical.
	var ruts []string
	require.NoError(t, s.DB.Model(&model.Contact{}).Where("user_id = ?", "owner-1").Order("rut").Pluck("rut", &ruts).Error)
	assert.Equal(t, []string{"11111111-K", "12345678-5", "9876543-2"}, ruts)

	// Second run without overwrite: nothing created, nothing touched.
	res, err = s.Import(ctx, "owner-1", file, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ImportedCount)
	assert.Equal(t, 0, res.UpdatedCount)
	assert.Equal(t, "No hay nuevos contactos para importar. Todos los contactos en el archivo ya existen en la base de datos.", res.Message)
}

func TestImportOverwrite(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	file := buildSheet(t, [][]string{
		{"12345678-5", "Ana Rojas"},
		{"9876543-2", "Juan Soto"},
	})

	res, err := s.Import(ctx, "owner-1", file, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Equal(t, 0, res.UpdatedCount)

	// Same file again: everything reported as updated, data unchanged.
	res, err = s.Import(ctx, "owner-1", file, true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ImportedCount)
	assert.Equal(t, 2, res.UpdatedCount)

	var n int64
	require.NoError(t, s.DB.Model(&model.Contact{}).Where("user_id = ?", "owner-1").Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestImportOverwriteRewritesFields(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	_, err := s.Import(ctx, "owner-1", buildSheet(t, [][]string{
		{"12345678-5", "Ana Rojas", "+56911111111"},
	}), false)
	require.NoError(t, err)

	// Same RUT in a different spelling, new name, phone dropped.
	res, err := s.Import(ctx, "owner-1", buildSheet(t, [][]string{
		{"12.345.6785", "Ana Maria Rojas"},
	}), true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ImportedCount)
	assert.Equal(t, 1, res.UpdatedCount)

	var c model.Contact
	require.NoError(t, s.DB.First(&c, "user_id = ? AND rut = ?", "owner-1", "12345678-5").Error)
	assert.Equal(t, "Ana Maria Rojas", c.FullName)
	assert.Equal(t, "", c.Phone)
}

func TestImportWithoutOverwriteSkipsExisting(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	_, err := s.Import(ctx, "owner-1", buildSheet(t, [][]string{
		{"12345678-5", "Original"},
	}), false)
	require.NoError(t, err)

	res, err := s.Import(ctx, "owner-1", buildSheet(t, [][]string{
		{"12345678-5", "Intruso"},
		{"9876543-2", "Nuevo"},
	}), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedCount)
	assert.Equal(t, 0, res.UpdatedCount)

	var c model.Contact
	require.NoError(t, s.DB.First(&c, "user_id = ? AND rut = ?", "owner-1", "12345678-5").Error)
	assert.Equal(t, "Original", c.FullName)
}

func TestImportScopedToTargetUser(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	file := buildSheet(t, [][]string{{"12345678-5", "Ana"}})

	_, err := s.Import(ctx, "owner-1", file, false)
	require.NoError(t, err)

	// The same RUT is "new" for a different user.
	res, err := s.Import(ctx, "owner-2", file, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedCount)
}

func TestImportParseErrorBeforeAnyWrite(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	_, err := s.Import(ctx, "owner-1", []byte("this is not a spreadsheet"), false)
	assert.ErrorIs(t, err, ErrParse)

	var n int64
	require.NoError(t, s.DB.Model(&model.Contact{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestImportMissingTargetUser(t *testing.T) {
	s := newImportService(t)
	_, err := s.Import(context.Background(), "", buildSheet(t, nil), false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestImportSkipsBlankRows(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	file := buildSheet(t, [][]string{
		{"12345678-5", "Ana"},
		{"", "", "", ""},
		{"9876543-2", "Juan"},
	})
	res, err := s.Import(ctx, "owner-1", file, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedCount)
}

func TestImportLargeBatch(t *testing.T) {
	s := newImportService(t)
	ctx := context.Background()

	rows := make([][]string, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, []string{fmt.Sprintf("%d-1", 10000000+i), fmt.Sprintf("Contacto %d", i)})
	}
	res, err := s.Import(ctx, "owner-1", buildSheet(t, rows), false)
	require.NoError(t, err)
	assert.Equal(t, 120, res.ImportedCount)
}
