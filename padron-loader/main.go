// Command padron-loader bulk-loads the published voter registry file
// into the padron_data table. The file is semicolon-separated with a
// header row; rows are inserted in batches to keep memory flat.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contact-manager/db"
	"contact-manager/model"
)

const batchSize = 1000

func main() {
	var filePath string
	var truncate bool

	rootCmd := &cobra.Command{
		Use:   "padron-loader",
		Short: "Load the national voter registry CSV into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer logger.Sync()

			database, err := db.InitDB()
			if err != nil {
				return err
			}
			return run(database, logger, filePath, truncate)
		},
	}
	rootCmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the registry CSV (semicolon-separated)")
	rootCmd.Flags().BoolVar(&truncate, "truncate", false, "clear padron_data before loading")
	_ = rootCmd.MarkFlagRequired("file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(database *gorm.DB, logger *zap.Logger, path string, truncate bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()

	if truncate {
		if err := database.Exec("DELETE FROM padron_data").Error; err != nil {
			return fmt.Errorf("failed to clear padron_data: %w", err)
		}
		logger.Info("cleared padron_data")
	}

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var batch []model.PadronRow
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := database.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert batch at row %d: %w", total, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read registry row: %w", err)
		}

		batch = append(batch, model.PadronRow{
			Nombres:         field(record, "NOMBRES"),
			ApellidoPat:     field(record, "APELLIDO_PATERNO"),
			ApellidoMat:     field(record, "APELLIDO_MATERNO"),
			RUN:             field(record, "RUN"),
			DV:              field(record, "DV"),
			Sexo:            field(record, "SEXO"),
			Calle:           field(record, "CALLE"),
			Numero:          field(record, "NUMERO"),
			Letra:           field(record, "LETRA"),
			RestoDomicilio:  field(record, "RESTO_DOMICILIO"),
			Circunscripcion: field(record, "GLOSACIRCUNSCRIPCION"),
			Comuna:          field(record, "GLOSACOMUNA"),
			Provincia:       field(record, "GLOSAPROVINCIA"),
			Region:          field(record, "GLOSAREGION"),
			Pais:            field(record, "GLOSAPAIS"),
			Mesa:            field(record, "MESA"),
		})

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("registry loaded", zap.Int("rows", total), zap.String("file", path))
	return nil
}
