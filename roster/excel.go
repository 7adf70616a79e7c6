package roster

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrNoSheet is returned when the workbook has no worksheet.
	ErrNoSheet = errors.New("roster: workbook does not contain any sheets")
	// ErrNoHeader is returned when the first sheet has no header row.
	ErrNoHeader = errors.New("roster: sheet has no header row")
	// ErrNoNameColumn is returned when none of NameColumns is in the header.
	ErrNoNameColumn = errors.New("roster: no name column found")
)

// NameColumns are the accepted headers for the student name, in priority
// order. Matching is case-sensitive.
var NameColumns = []string{"Nombres", "Alumnos", "Estudiante"}

const (
	gradeColumn = "Grado"
	rankColumn  = "Puesto"
	levelColumn = "Nivel"

	templateSheet = "Plantilla Estudiantes"
)

// Import reads a roster from the first sheet of an xlsx workbook. The first
// row is the header. Rows whose cells are all blank are skipped; rows with a
// blank name are kept and left for the exporter to filter out.
func Import(r io.Reader) (Roster, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("roster: opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("roster: reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := rows[0]
	nameCol := -1
	for _, want := range NameColumns {
		for i, h := range header {
			if h == want {
				nameCol = i
				break
			}
		}
		if nameCol >= 0 {
			break
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("%w (accepted: %s)", ErrNoNameColumn, strings.Join(NameColumns, ", "))
	}

	out := make(Roster, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		s := New("")
		for i, h := range header {
			if h == "" {
				continue
			}
			v := ""
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			switch {
			case i == nameCol:
				s.Name = v
			case h == gradeColumn:
				s.Grade = v
			case h == rankColumn:
				s.Rank = v
			case h == levelColumn:
				s.Level = v
			default:
				if s.Extra == nil {
					s.Extra = make(map[string]string)
				}
				s.Extra[h] = v
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteTemplate writes an empty roster workbook with the expected headers
// and a few example rows.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("roster: naming sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Nombres", gradeColumn, rankColumn},
		{"Ejemplo Primaria", "5° Grado", "1er Puesto"},
		{"Ejemplo Inicial", "5 Años", "Excelencia"},
		{"Ejemplo Secundaria", "5° Grado", "2do Puesto"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(templateSheet, cell, &row); err != nil {
			return fmt.Errorf("roster: writing row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("roster: writing workbook: %w", err)
	}
	return nil
}
