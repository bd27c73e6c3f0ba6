package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/batisoft/catalog_backend/models"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

func TestFamilyTreeGrouping(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	catalog := seedCatalog(t, base, "Catalogue", "")
	elec := seedFamily(t, base, catalog.ID, "Électricité", nil)
	cables := seedFamily(t, base, catalog.ID, "Câbles", &elec.ID)
	seedFamily(t, base, catalog.ID, "Gaines", &elec.ID)

	top, err := models.GetFamilies(tenantCtx("t1"), catalog.ID)
	if err != nil {
		t.Fatalf("GetFamilies: %v", err)
	}
	if len(top) != 1 || top[0].ID != elec.ID {
		t.Fatalf("want one top family, got %+v", top)
	}
	if len(top[0].SubFamilies) != 2 {
		t.Fatalf("want 2 sub-families, got %d", len(top[0].SubFamilies))
	}
	// sorted by name
	if top[0].SubFamilies[0].ID != cables.ID {
		t.Fatalf("sub-families not sorted: %+v", top[0].SubFamilies)
	}

	subs, err := models.GetSubFamilies(tenantCtx("t1"), elec.ID)
	if err != nil {
		t.Fatalf("GetSubFamilies: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("want 2 subs, got %d", len(subs))
	}
}

// The two-tenant rename scenario: one tenant's rename stays local while the
// baseline rename keeps flowing to the other tenant.
func TestFamilyRenamePerTenant(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	catalog := seedCatalog(t, base, "Catalogue", "")
	elec := seedFamily(t, base, catalog.ID, "Électricité", nil)

	t1 := tenantCtx("t1")
	if _, err := models.SaveFamily(t1, &models.NewFamily{
		Id:        &elec.ID,
		CatalogId: catalog.ID,
		Name:      "Elec",
	}); err != nil {
		t.Fatalf("t1 rename: %v", err)
	}

	got, err := models.GetFamily(t1, elec.ID)
	if err != nil {
		t.Fatalf("GetFamily t1: %v", err)
	}
	if got.Name != "Elec" {
		t.Fatalf("t1 name = %q", got.Name)
	}

	other, err := models.GetFamily(tenantCtx("t2"), elec.ID)
	if err != nil {
		t.Fatalf("GetFamily t2: %v", err)
	}
	if other.Name != "Électricité" {
		t.Fatalf("t2 name = %q", other.Name)
	}

	if _, err := models.SaveFamily(base, &models.NewFamily{
		Id:        &elec.ID,
		CatalogId: catalog.ID,
		Name:      "Électricité générale",
	}); err != nil {
		t.Fatalf("baseline rename: %v", err)
	}

	other, err = models.GetFamily(tenantCtx("t2"), elec.ID)
	if err != nil {
		t.Fatalf("GetFamily t2 after baseline rename: %v", err)
	}
	if other.Name != "Électricité générale" {
		t.Fatalf("t2 name = %q, baseline rename did not propagate", other.Name)
	}
	got, err = models.GetFamily(t1, elec.ID)
	if err != nil {
		t.Fatalf("GetFamily t1 after baseline rename: %v", err)
	}
	if got.Name != "Elec" {
		t.Fatalf("t1 name = %q, override lost", got.Name)
	}
}

func TestFamilyNameConflictWithinCatalog(t *testing.T) {
	setupTest(t)

	t1 := tenantCtx("t1")
	catalog := seedCatalog(t, t1, "Catalogue", "")
	seedFamily(t, t1, catalog.ID, "Plomberie", nil)

	_, err := models.SaveFamily(t1, &models.NewFamily{CatalogId: catalog.ID, Name: "Plomberie"})
	if !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestFamilyDeleteGuardedBySubFamilies(t *testing.T) {
	setupTest(t)

	t1 := tenantCtx("t1")
	catalog := seedCatalog(t, t1, "Catalogue", "")
	parent := seedFamily(t, t1, catalog.ID, "Parent", nil)
	child := seedFamily(t, t1, catalog.ID, "Enfant", &parent.ID)

	if err := models.DeleteFamily(t1, parent.ID); !errors.Is(err, utils.ErrorBadRequest) {
		t.Fatalf("want bad request, got %v", err)
	}

	if err := models.DeleteFamily(t1, child.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	if err := models.DeleteFamily(t1, parent.ID); err != nil {
		t.Fatalf("delete parent after child removed: %v", err)
	}
	if _, err := models.GetFamily(t1, parent.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("parent should be gone, got %v", err)
	}
}

func TestFamilyParentCycleRejected(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	catalog := seedCatalog(t, base, "Catalogue", "")
	parent := seedFamily(t, base, catalog.ID, "Électricité", nil)
	child := seedFamily(t, base, catalog.ID, "Câblage", &parent.ID)

	_, err := models.SaveFamily(base, &models.NewFamily{
		Id:        &parent.ID,
		CatalogId: catalog.ID,
		Name:      "Électricité",
		ParentId:  &parent.ID,
	})
	if !errors.Is(err, utils.ErrorBadRequest) {
		t.Fatalf("self-parent: want bad request, got %v", err)
	}

	_, err = models.SaveFamily(base, &models.NewFamily{
		Id:        &parent.ID,
		CatalogId: catalog.ID,
		Name:      "Électricité",
		ParentId:  &child.ID,
	})
	if !errors.Is(err, utils.ErrorBadRequest) {
		t.Fatalf("descendant as parent: want bad request, got %v", err)
	}

	// the tree survived both refusals intact
	top, err := models.GetFamilies(base, catalog.ID)
	if err != nil {
		t.Fatalf("GetFamilies: %v", err)
	}
	if len(top) != 1 || top[0].ID != parent.ID {
		t.Fatalf("top level mutated: %+v", top)
	}
	if len(top[0].SubFamilies) != 1 || top[0].SubFamilies[0].ID != child.ID {
		t.Fatalf("sub-families mutated: %+v", top[0].SubFamilies)
	}
}

func TestFamilySaveAfterDeleteRevives(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	catalog := seedCatalog(t, base, "Catalogue", "")
	family := seedFamily(t, base, catalog.ID, "Électricité", nil)

	t1 := tenantCtx("t1")
	if err := models.DeleteFamily(t1, family.ID); err != nil {
		t.Fatalf("DeleteFamily: %v", err)
	}

	if _, err := models.SaveFamily(t1, &models.NewFamily{
		Id:        &family.ID,
		CatalogId: catalog.ID,
		Name:      "Elec",
	}); err != nil {
		t.Fatalf("save after delete: %v", err)
	}

	got, err := models.GetFamily(t1, family.ID)
	if err != nil {
		t.Fatalf("revived family must be visible: %v", err)
	}
	if got.Name != "Elec" {
		t.Fatalf("revived name = %q", got.Name)
	}

	other, err := models.GetFamily(tenantCtx("t2"), family.ID)
	if err != nil {
		t.Fatalf("GetFamily t2: %v", err)
	}
	if other.Name != "Électricité" {
		t.Fatalf("t2 name = %q, revive leaked", other.Name)
	}
}
