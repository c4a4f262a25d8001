// Package export writes registrations to a spreadsheet workbook.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
)

const (
	SheetName = "Registrations"
	Filename  = "Impulse_Registrations.xlsx"
	// ContentType is the media type of the workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []interface{}{
	"id", "uid", "name", "email", "phone", "college", "year", "teamName",
	"catalogId", "eventName", "category", "pricePerPerson", "teamCount", "totalPrice",
	"teamMembers", "paymentId", "registeredAt", "odGenerated", "odGeneratedAt",
}

// Workbook renders regs as an xlsx file, one row per registration.
func Workbook(regs []model.Registration) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := range regs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := toRow(&regs[i])
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func toRow(r *model.Registration) []interface{} {
	names := make([]string, 0, len(r.TeamMembers))
	for _, m := range r.TeamMembers {
		names = append(names, m.Name)
	}
	var total interface{} = ""
	if r.TotalPrice != nil {
		total = *r.TotalPrice
	}
	odAt := ""
	if r.ODGeneratedAt != nil {
		odAt = r.ODGeneratedAt.UTC().Format(time.RFC3339)
	}
	return []interface{}{
		r.ID, r.UID, r.Name, r.Email, r.Phone, r.College, r.Year, r.TeamName,
		r.CatalogID, r.EventName, string(r.Category), r.PricePerPerson, r.TeamCount, total,
		strings.Join(names, ", "), r.PaymentID, r.RegisteredAt.UTC().Format(time.RFC3339), r.ODGenerated, odAt,
	}
}
