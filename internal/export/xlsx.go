package export

import (
	"context"
	"fmt"
	"time"

	"steam-market-harvester/internal/logger"
	"steam-market-harvester/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	ItemsSheet  = "Items"
	PricesSheet = "Prices"
)

// Reader is the read side of storage.Store used by the export.
type Reader interface {
	ListItems(ctx context.Context, skip, take int) ([]models.Item, error)
	ListPricePoints(ctx context.Context, skip, take int) ([]models.PricePoint, error)
}

type Result struct {
	Items  int
	Points int
}

// WriteWorkbook pages through stored items and price points and saves them
// to an .xlsx file at path.
func WriteWorkbook(ctx context.Context, r Reader, path string, pageSize int, log logrus.FieldLogger) (Result, error) {
	entry := logger.Component(log, "export")
	if pageSize <= 0 {
		pageSize = 500
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		return Result{}, err
	}
	if _, err := f.NewSheet(PricesSheet); err != nil {
		return Result{}, err
	}

	var res Result
	if err := writeRow(f, ItemsSheet, 1, "ID", "Item Name ID", "Hash Name", "Name", "Icon", "Game ID", "Created At"); err != nil {
		return res, err
	}
	for skip := 0; ; skip += pageSize {
		items, err := r.ListItems(ctx, skip, pageSize)
		if err != nil {
			return res, fmt.Errorf("read items: %w", err)
		}
		if len(items) == 0 {
			break
		}
		for _, it := range items {
			res.Items++
			if err := writeRow(f, ItemsSheet, res.Items+1,
				it.ID, it.ItemNameID, it.ItemHashName, it.ItemName, it.ItemIcon, it.GameID, it.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
				return res, err
			}
		}
	}

	if err := writeRow(f, PricesSheet, 1, "Item ID", "Date", "Price", "Volume"); err != nil {
		return res, err
	}
	for skip := 0; ; skip += pageSize {
		points, err := r.ListPricePoints(ctx, skip, pageSize)
		if err != nil {
			return res, fmt.Errorf("read price points: %w", err)
		}
		if len(points) == 0 {
			break
		}
		for _, p := range points {
			res.Points++
			price, _ := p.Price.Float64()
			if err := writeRow(f, PricesSheet, res.Points+1,
				p.ItemID, p.Date.UTC().Format("2006-01-02 15:04"), price, p.Volume); err != nil {
				return res, err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return res, fmt.Errorf("save workbook: %w", err)
	}
	entry.WithFields(logrus.Fields{"path": path, "items": res.Items, "points": res.Points}).Info("Workbook written")
	return res, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
