package models_test

import (
	"context"
	"testing"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/models"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

// Each test runs on its own in-memory sqlite database, migrated through the
// same gorm config (naming strategy, tenant guard) as production.
func setupTest(t *testing.T) {
	t.Helper()
	if err := config.ConnectTestDatabase(t.Name()); err != nil {
		t.Fatalf("ConnectTestDatabase: %v", err)
	}
	models.MigrateTable()
}

func tenantCtx(tenantId string) context.Context {
	return utils.SetTenantIdInContext(context.Background(), tenantId)
}

func baselineCtx() context.Context {
	return tenantCtx(models.BaselineTenant)
}

func seedCatalog(t *testing.T, ctx context.Context, name string, description string) *models.MergedCatalog {
	t.Helper()
	catalog, err := models.SaveCatalog(ctx, &models.NewCatalog{Name: name, Description: description})
	if err != nil {
		t.Fatalf("SaveCatalog(%q): %v", name, err)
	}
	return catalog
}

func seedFamily(t *testing.T, ctx context.Context, catalogId int, name string, parentId *int) *models.MergedFamily {
	t.Helper()
	family, err := models.SaveFamily(ctx, &models.NewFamily{CatalogId: catalogId, Name: name, ParentId: parentId})
	if err != nil {
		t.Fatalf("SaveFamily(%q): %v", name, err)
	}
	return family
}

func seedUnit(t *testing.T, ctx context.Context, name string) *models.Unit {
	t.Helper()
	unit, err := models.CreateUnit(ctx, &models.NewUnit{Name: name, Abbreviation: name[:1]})
	if err != nil {
		t.Fatalf("CreateUnit(%q): %v", name, err)
	}
	return unit
}
