package models_test

import (
	"testing"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/models"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

// The physical identity is (id, tenant_id): a baseline row and a tenant
// overlay sharing the same logical id must coexist as two distinct rows.
func TestBaselineAndOverlayRowsShareLogicalId(t *testing.T) {
	setupTest(t)

	seeded := seedCatalog(t, baselineCtx(), "Catalogue commun", "")

	t1 := tenantCtx("t1")
	if _, err := models.SaveCatalog(t1, &models.NewCatalog{
		Id:   &seeded.ID,
		Name: "Catalogue perso",
	}); err != nil {
		t.Fatalf("SaveCatalog overlay: %v", err)
	}

	var count int64
	err := config.GetDB().
		WithContext(utils.SetSkipTenantScopeInContext(t1, true)).
		Model(&models.Catalog{}).
		Where("id = ?", seeded.ID).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("want 2 physical rows for id %d, got %d", seeded.ID, count)
	}
}
