package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contact-manager/model"
	"contact-manager/rut"
)

// importTimeout bounds one import batch; the transaction is cancelled
// and rolled back wholesale when it expires.
const importTimeout = 60 * time.Second

type ImportService struct {
	DB      *gorm.DB
	Storage *StorageService
	Log     *zap.Logger
}

// ImportResult reports what one reconciliation run did.
type ImportResult struct {
	Message       string `json:"message"`
	ImportedCount int    `json:"imported_count"`
	UpdatedCount  int    `json:"updated_count"`
}

// Import parses the spreadsheet and merges its rows into the target
// user's contacts inside one transaction: rows whose normalized RUT is
// unknown are created; known rows are rewritten only when overwrite is
// set, and silently skipped otherwise. A parse failure aborts before
// any write; a storage failure rolls the whole batch back.
func (s *ImportService) Import(ctx context.Context, userID string, file []byte, overwrite bool) (*ImportResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing target user", ErrValidation)
	}

	contacts, err := parseContactSheet(file, userID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	var created, updated int
	err = s.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		ruts := make([]string, 0, len(contacts))
		for i := range contacts {
			contacts[i].RUT = rut.Normalize(contacts[i].RUT)
			ruts = append(ruts, contacts[i].RUT)
		}

		var existing []string
		if err := tx.Model(&model.Contact{}).
			Where("user_id = ? AND rut IN ?", userID, ruts).
			Pluck("rut", &existing).Error; err != nil {
			return err
		}
		existingSet := make(map[string]bool, len(existing))
		for _, r := range existing {
			existingSet[r] = true
		}

		var toCreate, toUpdate []model.Contact
		for _, c := range contacts {
			if existingSet[c.RUT] {
				if overwrite {
					toUpdate = append(toUpdate, c)
				}
			} else {
				toCreate = append(toCreate, c)
			}
		}

		if len(toCreate) > 0 {
			if err := tx.Create(&toCreate).Error; err != nil {
				return err
			}
			created = len(toCreate)
		}

		for _, c := range toUpdate {
			updates := map[string]interface{}{
				"full_name":   c.FullName,
				"phone":       c.Phone,
				"address":     c.Address,
				"comuna":      c.Comuna,
				"region":      c.Region,
				"nationality": c.Nationality,
				"email":       c.Email,
				"instagram":   c.Instagram,
				"facebook":    c.Facebook,
				"twitter":     c.Twitter,
				"tag1":        c.Tag1,
				"tag2":        c.Tag2,
				"tag3":        c.Tag3,
				"comment":     c.Comment,
			}
			if err := tx.Model(&model.Contact{}).
				Where("user_id = ? AND rut = ?", userID, c.RUT).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		updated = len(toUpdate)
		return nil
	})
	if err != nil {
		s.Log.Error("import transaction failed",
			zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.archive(ctx, userID, file)

	result := &ImportResult{ImportedCount: created, UpdatedCount: updated}
	if created == 0 && updated == 0 {
		result.Message = "No hay nuevos contactos para importar. Todos los contactos en el archivo ya existen en la base de datos."
	} else {
		result.Message = fmt.Sprintf("Se importaron %d nuevos contactos y se actualizaron %d contactos existentes.", created, updated)
	}

	s.Log.Info("import finished",
		zap.String("user_id", userID),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Bool("overwrite", overwrite))
	return result, nil
}

// archive keeps the raw upload in S3 for audit. Best effort: a failed
// archive never fails an import that already committed.
func (s *ImportService) archive(ctx context.Context, userID string, file []byte) {
	if s.Storage == nil {
		return
	}
	key := fmt.Sprintf("imports/%s/%d.xlsx", userID, time.Now().UnixNano())
	if err := s.Storage.PutObject(ctx, key, file); err != nil {
		s.Log.Warn("failed to archive import file",
			zap.String("user_id", userID), zap.String("key", key), zap.Error(err))
	}
}

// parseContactSheet reads the first worksheet: row 1 is a header and is
// skipped, each following row maps onto contact fields by column
// position via contactColumns. Missing trailing cells become blanks.
func parseContactSheet(file []byte, userID string) ([]model.Contact, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no worksheet found in the uploaded file", ErrParse)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var contacts []model.Contact
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if isBlankRow(row) {
			continue
		}
		c := model.Contact{UserID: userID}
		for col, spec := range contactColumns {
			if col < len(row) {
				spec.set(&c, row[col])
			}
		}
		c.RUT = rut.Normalize(c.RUT)
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
