// Package manifest renders dispatch cycles as XLSX workbooks for
// dispatchers who work from spreadsheets.
package manifest

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"food-dispatch-service/internal/domain"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	summarySheet    = "Summary"
	stopsSheet      = "Stops"
	unassignedSheet = "Unassigned"
)

// Cycle is the slice of a dispatch cycle report the manifest prints.
type Cycle struct {
	CycleID           string
	FinishedAt        time.Time
	Plans             []domain.RoutePlan
	UnassignedTaskIDs []string
}

var stopHeaders = []any{
	"Vehicle", "Seq", "Task", "Priority", "Lat", "Lng",
	"Route km", "Route min", "Quality", "Pickup",
}

// Write renders c as a workbook with a summary sheet, one row per planned
// stop in visiting order, and the unassigned task IDs.
func Write(w io.Writer, c Cycle) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if _, err := f.NewSheet(stopsSheet); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if _, err := f.NewSheet(unassignedSheet); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	stops := 0
	for _, p := range c.Plans {
		stops += len(p.Stops)
	}

	summary := [][]any{
		{"Cycle", c.CycleID},
		{"Finished", c.FinishedAt.UTC().Format(time.RFC3339)},
		{"Vehicles", len(c.Plans)},
		{"Stops", stops},
		{"Unassigned", len(c.UnassignedTaskIDs)},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := setRow(f, stopsSheet, 1, stopHeaders); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(stopsSheet, 1, 1, style)
	}

	row := 2
	for _, p := range c.Plans {
		pickup := ""
		if p.Pickup != nil {
			pickup = p.Pickup.ID
		}
		for seq, s := range p.Stops {
			values := []any{
				p.VehicleID, seq + 1, s.ID, string(s.Priority), s.Location.Lat, s.Location.Lng,
				p.TotalDistanceMeters / 1000, p.TotalDurationSeconds / 60, string(p.Quality), pickup,
			}
			if err := setRow(f, stopsSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := setRow(f, unassignedSheet, 1, []any{"Task"}); err != nil {
		return err
	}
	for i, id := range c.UnassignedTaskIDs {
		if err := setRow(f, unassignedSheet, i+2, []any{id}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write manifest: sheet %s row %d: %w", sheet, row, err)
	}
	return nil
}
