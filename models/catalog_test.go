package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/models"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

func TestCatalogBaselineVisibleToEveryTenant(t *testing.T) {
	setupTest(t)

	seeded := seedCatalog(t, baselineCtx(), "Catalogue commun", "contenu partagé")

	for _, tenant := range []string{"t1", "t2"} {
		got, err := models.GetCatalog(tenantCtx(tenant), seeded.ID)
		if err != nil {
			t.Fatalf("GetCatalog as %s: %v", tenant, err)
		}
		if got.Name != "Catalogue commun" || got.Description != "contenu partagé" {
			t.Fatalf("tenant %s sees %q/%q", tenant, got.Name, got.Description)
		}
	}

	// reading twice must not change the result
	again, err := models.GetCatalog(tenantCtx("t1"), seeded.ID)
	if err != nil {
		t.Fatalf("GetCatalog again: %v", err)
	}
	if again.Name != "Catalogue commun" {
		t.Fatalf("second read drifted: %q", again.Name)
	}
}

func TestCatalogOverrideBeatsBaselineAndStaysPrivate(t *testing.T) {
	setupTest(t)

	seeded := seedCatalog(t, baselineCtx(), "Catalogue commun", "description commune")

	t1 := tenantCtx("t1")
	if _, err := models.SaveCatalog(t1, &models.NewCatalog{
		Id:          &seeded.ID,
		Name:        "Catalogue perso",
		Description: "description commune",
	}); err != nil {
		t.Fatalf("SaveCatalog overlay: %v", err)
	}

	got, err := models.GetCatalog(t1, seeded.ID)
	if err != nil {
		t.Fatalf("GetCatalog t1: %v", err)
	}
	if got.Name != "Catalogue perso" {
		t.Fatalf("t1 name = %q, want override", got.Name)
	}

	other, err := models.GetCatalog(tenantCtx("t2"), seeded.ID)
	if err != nil {
		t.Fatalf("GetCatalog t2: %v", err)
	}
	if other.Name != "Catalogue commun" {
		t.Fatalf("t2 name = %q, overlay leaked", other.Name)
	}
}

// A field saved with the inherited value must be stored as null on the
// overlay, so a later baseline edit still reaches the tenant.
func TestCatalogUnchangedFieldFollowsBaselineEdit(t *testing.T) {
	setupTest(t)

	seeded := seedCatalog(t, baselineCtx(), "Catalogue commun", "description commune")

	t1 := tenantCtx("t1")
	if _, err := models.SaveCatalog(t1, &models.NewCatalog{
		Id:          &seeded.ID,
		Name:        "Catalogue perso",
		Description: "description commune",
	}); err != nil {
		t.Fatalf("SaveCatalog overlay: %v", err)
	}

	var overlay models.Catalog
	err := config.GetDB().
		WithContext(utils.SetSkipTenantScopeInContext(t1, true)).
		Where("id = ? AND tenant_id = ?", seeded.ID, "t1").
		Take(&overlay).Error
	if err != nil {
		t.Fatalf("fetch overlay row: %v", err)
	}
	if overlay.Name == nil {
		t.Fatalf("changed name must be stored explicitly")
	}
	if overlay.Description != nil {
		t.Fatalf("unchanged description must be suppressed, got %q", *overlay.Description)
	}

	if _, err := models.SaveCatalog(baselineCtx(), &models.NewCatalog{
		Id:          &seeded.ID,
		Name:        "Catalogue commun",
		Description: "description révisée",
	}); err != nil {
		t.Fatalf("baseline edit: %v", err)
	}

	got, err := models.GetCatalog(t1, seeded.ID)
	if err != nil {
		t.Fatalf("GetCatalog t1: %v", err)
	}
	if got.Description != "description révisée" {
		t.Fatalf("t1 description = %q, baseline edit did not propagate", got.Description)
	}
	if got.Name != "Catalogue perso" {
		t.Fatalf("t1 name = %q, override lost", got.Name)
	}
}

func TestCatalogNameConflict(t *testing.T) {
	setupTest(t)

	t1 := tenantCtx("t1")
	seedCatalog(t, t1, "Doublon", "")
	_, err := models.SaveCatalog(t1, &models.NewCatalog{Name: "Doublon"})
	if !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestCatalogDeleteIsTenantLocal(t *testing.T) {
	setupTest(t)

	seeded := seedCatalog(t, baselineCtx(), "Catalogue commun", "")

	t1 := tenantCtx("t1")
	if err := models.DeleteCatalog(t1, seeded.ID); err != nil {
		t.Fatalf("DeleteCatalog t1: %v", err)
	}

	if _, err := models.GetCatalog(t1, seeded.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("t1 should not see deleted catalog, got %v", err)
	}
	list, err := models.GetCatalogs(t1)
	if err != nil {
		t.Fatalf("GetCatalogs t1: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("t1 list should be empty, got %d", len(list))
	}

	other, err := models.GetCatalog(tenantCtx("t2"), seeded.ID)
	if err != nil {
		t.Fatalf("t2 must keep seeing the catalog: %v", err)
	}
	if other.Name != "Catalogue commun" {
		t.Fatalf("t2 name = %q", other.Name)
	}
}

func TestCatalogDeleteGuardLeavesNothingBehind(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	seeded := seedCatalog(t, base, "Catalogue commun", "")
	seedFamily(t, base, seeded.ID, "Électricité", nil)

	t1 := tenantCtx("t1")
	err := models.DeleteCatalog(t1, seeded.ID)
	if !errors.Is(err, utils.ErrorBadRequest) {
		t.Fatalf("want bad request, got %v", err)
	}

	// the refused delete must not have written a tombstone
	got, err := models.GetCatalog(t1, seeded.ID)
	if err != nil {
		t.Fatalf("catalog must still be visible: %v", err)
	}
	if got.Name != "Catalogue commun" {
		t.Fatalf("catalog mutated by refused delete: %q", got.Name)
	}
}

func TestCatalogSaveAfterDeleteRevives(t *testing.T) {
	setupTest(t)

	seeded := seedCatalog(t, baselineCtx(), "Catalogue commun", "")

	t1 := tenantCtx("t1")
	if err := models.DeleteCatalog(t1, seeded.ID); err != nil {
		t.Fatalf("DeleteCatalog: %v", err)
	}

	if _, err := models.SaveCatalog(t1, &models.NewCatalog{
		Id:   &seeded.ID,
		Name: "Catalogue perso",
	}); err != nil {
		t.Fatalf("save after delete: %v", err)
	}

	got, err := models.GetCatalog(t1, seeded.ID)
	if err != nil {
		t.Fatalf("revived catalog must be visible: %v", err)
	}
	if got.Name != "Catalogue perso" {
		t.Fatalf("revived name = %q", got.Name)
	}

	other, err := models.GetCatalog(tenantCtx("t2"), seeded.ID)
	if err != nil {
		t.Fatalf("GetCatalog t2: %v", err)
	}
	if other.Name != "Catalogue commun" {
		t.Fatalf("t2 name = %q, revive leaked", other.Name)
	}
}

// A live family hidden under a per-tenant-deleted parent is absent from the
// merged tree but must still block the catalog's removal.
func TestCatalogDeleteGuardSeesOrphanedFamilies(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	seeded := seedCatalog(t, base, "Catalogue commun", "")
	parent := seedFamily(t, base, seeded.ID, "Électricité", nil)

	t1 := tenantCtx("t1")
	if err := models.DeleteFamily(t1, parent.ID); err != nil {
		t.Fatalf("DeleteFamily t1: %v", err)
	}

	// the baseline adds a child afterwards; for t1 it hangs below a deleted
	// parent and never surfaces in the tree
	orphan := seedFamily(t, base, seeded.ID, "Câblage", &parent.ID)

	top, err := models.GetFamilies(t1, seeded.ID)
	if err != nil {
		t.Fatalf("GetFamilies t1: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("t1 tree should be empty, got %+v", top)
	}

	err = models.DeleteCatalog(t1, seeded.ID)
	if !errors.Is(err, utils.ErrorBadRequest) {
		t.Fatalf("want bad request, got %v", err)
	}

	if err := models.DeleteFamily(t1, orphan.ID); err != nil {
		t.Fatalf("DeleteFamily orphan: %v", err)
	}
	if err := models.DeleteCatalog(t1, seeded.ID); err != nil {
		t.Fatalf("DeleteCatalog after clearing families: %v", err)
	}
}
