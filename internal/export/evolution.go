// Package export renders derived views as spreadsheet files.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/nogal/internal/service/estimation"
)

// EvolutionSheet is the sheet holding the evolution matrix.
const EvolutionSheet = "Evolucion"

var fixedColumns = []string{"Monte", "Hectareas", "Densidad", "Ano plantacion"}

// EvolutionWorkbook lays the matrix out with one row per plot and three
// columns (real, estimated, deviation) per campaign year. Cells of plots that
// did not exist yet stay blank, as do missing figures.
func EvolutionWorkbook(m *estimation.EvolutionMatrix) (*excelize.File, error) {
	if m == nil {
		return nil, errors.New("evolution matrix is nil")
	}

	wb := excelize.NewFile()
	if err := wb.SetSheetName("Sheet1", EvolutionSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, 0, len(fixedColumns)+3*len(m.Years))
	for _, c := range fixedColumns {
		header = append(header, c)
	}
	for _, year := range m.Years {
		header = append(header,
			fmt.Sprintf("%d real kg", year),
			fmt.Sprintf("%d estimado kg", year),
			fmt.Sprintf("%d desvio %%", year),
		)
	}
	if err := wb.SetSheetRow(EvolutionSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := wb.SetCellStyle(EvolutionSheet, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	row := 2
	for _, r := range m.Rows {
		values := []any{r.Monte.Name, r.Monte.Hectares, r.Monte.Density, r.Monte.PlantingYear}
		values = append(values, cellValues(r.Cells)...)
		if err := writeRow(wb, row, values); err != nil {
			return nil, err
		}
		row++
	}

	totals := []any{"Total", nil, nil, nil}
	totals = append(totals, cellValues(m.Totals)...)
	if err := writeRow(wb, row, totals); err != nil {
		return nil, err
	}
	if err := wb.SetCellStyle(EvolutionSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), bold); err != nil {
		return nil, fmt.Errorf("style totals: %w", err)
	}

	if err := wb.SetPanes(EvolutionSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	return wb, nil
}

// WriteEvolution writes the matrix as an xlsx document.
func WriteEvolution(w io.Writer, m *estimation.EvolutionMatrix) error {
	wb, err := EvolutionWorkbook(m)
	if err != nil {
		return err
	}
	defer func() { _ = wb.Close() }()

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellValues(cells []estimation.Cell) []any {
	out := make([]any, 0, 3*len(cells))
	for _, c := range cells {
		var realKg, estimated, deviation any
		if c.HasRecords {
			realKg = c.RealKg
		}
		if c.EstimatedKg != nil {
			estimated = *c.EstimatedKg
		}
		if c.DeviationPct != nil {
			deviation = math.Round(*c.DeviationPct*10) / 10
		}
		out = append(out, realKg, estimated, deviation)
	}
	return out
}

func writeRow(wb *excelize.File, row int, values []any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := wb.SetCellValue(EvolutionSheet, cell, v); err != nil {
			return fmt.Errorf("write %s: %w", cell, err)
		}
	}
	return nil
}
