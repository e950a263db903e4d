package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TimesheetSheet is the worksheet name of the XLSX export
const TimesheetSheet = "Attendance"

var timesheetHeader = []string{"Date", "Worker", "Work Site", "Check In Time", "Check Out Time", "Duration Worked"}

// WriteXLSX writes rows as a single-sheet workbook
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TimesheetSheet); err != nil {
		return err
	}

	for col, title := range timesheetHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(TimesheetSheet, cell, title); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(timesheetHeader), 1)
	if err := f.SetCellStyle(TimesheetSheet, "A1", last, bold); err != nil {
		return err
	}

	for i, r := range rows {
		values := []string{r.Date, r.Worker, r.Worksite, r.CheckIn, r.CheckOut, r.Duration}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(TimesheetSheet, cell, v); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
	}

	if err := f.SetColWidth(TimesheetSheet, "A", "F", 18); err != nil {
		return err
	}
	if err := f.SetPanes(TimesheetSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
