// Package template renders the downloadable PLANTILLA workbook for a
// processed batch.
package template

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/invoicebatch/internal/core"
	"github.com/JonMunkholm/invoicebatch/internal/domain"
)

// SheetName is the single sheet of the workbook.
const SheetName = "Plantilla"

// MaxSampleRows caps the example rows written below the header.
const MaxSampleRows = 8

// ContentType is the media type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Headers are the PLANTILLA columns in order.
var Headers = []string{
	"NOMBRE USUARIO (CLIENTE DEL CLIENTE)",
	"NIT USUARIO (CLIENTE DEL CLIENTE)",
	"CIUDAD DE ENTREGA DEL PRODUCTO",
	"FACT NRO",
	"FECHA",
	"FORMA DE PAGO",
	"PRODUCTO",
	"PRESENTACION",
	"CANTIDAD",
	"VALOR UNITARIO",
	"TOTAL",
	"% IVA PRODUCTO",
}

var (
	sampleCities   = []string{"Bogotá", "Medellín", "Cali", "Barranquilla"}
	sampleProducts = []string{"Fertilizante NPK", "Semilla de maíz", "Herbicida", "Concentrado bovino"}
	samplePacks    = []string{"Bulto 50kg", "Bolsa 20kg", "Galón", "Bulto 40kg"}
)

// FileName is the download name for the batch's workbook.
func FileName(batch domain.Batch) string {
	return "plantilla_lote_" + batch.ID + ".xlsx"
}

// Render builds the workbook for a Completed or CompletedWithWarnings batch.
// The caller closes the returned file.
func Render(batch domain.Batch) (*excelize.File, error) {
	if !batch.Downloadable() {
		return nil, fmt.Errorf("%w: state %s", core.ErrNotDownloadable, batch.State)
	}

	f := excelize.NewFile()
	if err := build(f, batch); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func build(f *excelize.File, batch domain.Batch) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetColWidth(SheetName, "A", lastCol, 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	rows := min(batch.RecordCount, MaxSampleRows)
	for i := 0; i < rows; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := sampleRow(batch, i)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

// sampleRow is a deterministic example line derived from the batch.
func sampleRow(batch domain.Batch, i int) []any {
	qty := i + 1
	unit := 10000 * (i%4 + 1)
	payment := "CONTADO"
	if i%2 == 1 {
		payment = "CREDITO"
	}
	return []any{
		batch.Client,
		fmt.Sprintf("90123456%02d", i),
		sampleCities[i%len(sampleCities)],
		fmt.Sprintf("F-%04d", i+1),
		batch.CreatedAt.Format("2006-01-02"),
		payment,
		sampleProducts[i%len(sampleProducts)],
		samplePacks[i%len(samplePacks)],
		qty,
		unit,
		qty * unit,
		19,
	}
}
