package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/werkzeit/werkzeit/internal/shared"
)

// BuildTimesheetWorkbook renders one project-week as an Excel workbook
// with a worksheet per worker: day rows and an hour total at the
// bottom.
func BuildTimesheetWorkbook(week shared.Week, rows []TimesheetRow) (*excelize.File, error) {
	f := excelize.NewFile()

	grouped := groupByWorker(rows)
	if len(grouped) == 0 {
		sheet := "Prazdny tyzden"
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, "A1", week.String()); err != nil {
			return nil, err
		}
		return f, nil
	}

	for i, group := range grouped {
		sheet := sheetName(group.worker)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}
		if err := writeWorkerSheet(f, sheet, week, group); err != nil {
			return nil, err
		}
	}
	return f, nil
}

type workerGroup struct {
	worker string
	rows   []TimesheetRow
}

func groupByWorker(rows []TimesheetRow) []workerGroup {
	var out []workerGroup
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.WorkerName]
		if !ok {
			i = len(out)
			index[row.WorkerName] = i
			out = append(out, workerGroup{worker: row.WorkerName})
		}
		out[i].rows = append(out[i].rows, row)
	}
	return out
}

func writeWorkerSheet(f *excelize.File, sheet string, week shared.Week, group workerGroup) error {
	header := []any{"Datum", "Od", "Do", "Hodiny", "Poznamka"}
	if err := f.SetCellValue(sheet, "A1", group.worker); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B1", week.String()); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return err
	}

	var total float64
	line := 3
	for _, row := range group.rows {
		values := []any{row.WorkDate.Format("02.01.2006"), row.Start, row.End, row.Hours, row.Note}
		cell := fmt.Sprintf("A%d", line)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		total += row.Hours
		line++
	}

	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", line), "Spolu"); err != nil {
		return err
	}
	return f.SetCellValue(sheet, fmt.Sprintf("D%d", line), total)
}

// sheetName trims worker names to Excel's 31 character worksheet limit
// and drops the characters Excel forbids.
func sheetName(name string) string {
	replacer := strings.NewReplacer("\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ", ":", " ")
	name = strings.TrimSpace(replacer.Replace(name))
	if name == "" {
		name = "Pracovnik"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}
