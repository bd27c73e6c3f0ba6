package models

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var articleExportHeaders = []string{
	"Code", "Name", "Label", "Commercial Description",
	"Purchase Price", "Margin", "Selling Price",
	"Sale Unit", "Purchase Unit", "Nature", "Conversion Coefficient",
}

// ExportArticlesXlsx renders the merged articles of a catalog as an xlsx
// workbook, the view the requesting tenant sees (overlays applied).
func ExportArticlesXlsx(ctx context.Context, catalogId int) (*bytes.Buffer, error) {
	catalog, err := GetCatalog(ctx, catalogId)
	if err != nil {
		return nil, err
	}
	articles, err := GetArticles(ctx, catalogId)
	if err != nil {
		return nil, err
	}

	unitNames := make(map[int]string)
	units, err := GetUnits(ctx)
	if err != nil {
		return nil, err
	}
	for _, unit := range units {
		unitNames[unit.ID] = unit.Name
	}
	natureNames := make(map[int]string)
	natures, err := GetNatures(ctx)
	if err != nil {
		return nil, err
	}
	for _, nature := range natures {
		natureNames[nature.ID] = nature.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := catalog.Name
	if sheet == "" {
		sheet = "Articles"
	}
	f.SetSheetName("Sheet1", sheet)

	for col, header := range articleExportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, article := range articles {
		values := []interface{}{
			article.Code,
			article.Name,
			article.Label,
			article.CommercialDescription,
			article.PurchasePrice.InexactFloat64(),
			article.Margin.InexactFloat64(),
			article.SellingPrice.InexactFloat64(),
			unitNames[article.SaleUnitId],
			unitNames[article.PurchaseUnitId],
			natureNames[article.NatureId],
			article.ConversionCoefficient.InexactFloat64(),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf, nil
}
