package tasks

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"taskboard/internal/store"
)

// buildWorkbook lays the tasks out on a single sheet, one row per
// task under a header row.
func buildWorkbook(tasks []*store.Task) (*excelize.File, error) {
	f := excelize.NewFile()

	sheet := "Tasks"
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	const timeLayout = "2006-01-02 15:04:05"
	for i, task := range tasks {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), task.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), task.Title)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), task.Description)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), task.Status)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), task.CreatedAt.Format(timeLayout))
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), task.UpdatedAt.Format(timeLayout))
		if task.CompletedAt != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), task.CompletedAt.Format(timeLayout))
		}
	}

	return f, nil
}
