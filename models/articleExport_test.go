package models_test

import (
	"testing"

	"bitbucket.org/batisoft/catalog_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestExportArticlesXlsxContainsMergedView(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	catalog := seedCatalog(t, base, "Catalogue export", "")
	unit := seedUnit(t, base, "Metre")
	if _, err := models.SaveArticle(base, &models.NewArticle{
		CatalogId:     catalog.ID,
		Name:          "Câble",
		SaleUnitId:    unit.ID,
		PurchasePrice: decimal.NewFromInt(3),
	}); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}

	buf, err := models.ExportArticlesXlsx(tenantCtx("t1"), catalog.ID)
	if err != nil {
		t.Fatalf("ExportArticlesXlsx: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Catalogue export")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want header + 1 article, got %d rows", len(rows))
	}
	if rows[1][0] != "ART-000001" || rows[1][1] != "Câble" {
		t.Fatalf("article row = %v", rows[1])
	}
	if rows[1][7] != "Metre" {
		t.Fatalf("sale unit cell = %q", rows[1][7])
	}
}
