package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/batisoft/catalog_backend/models"
	"bitbucket.org/batisoft/catalog_backend/utils"
	"github.com/shopspring/decimal"
)

func TestOuvrageSaveWithLines(t *testing.T) {
	setupTest(t)

	t1 := tenantCtx("t1")
	catalog := seedCatalog(t, t1, "Catalogue", "")
	unit := seedUnit(t, t1, "Unite")
	article, err := models.SaveArticle(t1, &models.NewArticle{CatalogId: catalog.ID, Name: "Câble"})
	if err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}

	ouvrage, err := models.SaveOuvrage(t1, &models.NewOuvrage{
		CatalogId:   catalog.ID,
		Designation: "Pose point lumineux",
		Prix:        decimal.NewFromInt(45),
		UnitId:      unit.ID,
		Lignes: []*models.NewLigneOuvrage{
			{NoOrdre: 2, TypeLigne: models.LigneTypeArticle, ArticleId: article.ID, Quantite: decimal.NewFromInt(12)},
			{NoOrdre: 1, TypeLigne: models.LigneTypeCommentaire, Commentaire: "Depuis le tableau"},
		},
	})
	if err != nil {
		t.Fatalf("SaveOuvrage: %v", err)
	}

	if ouvrage.Designation != "Pose point lumineux" || !ouvrage.Prix.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("merged ouvrage = %+v", ouvrage)
	}
	if len(ouvrage.Lignes) != 2 {
		t.Fatalf("want 2 lines, got %d", len(ouvrage.Lignes))
	}
	// ordered by no_ordre, not by insertion
	if ouvrage.Lignes[0].TypeLigne != models.LigneTypeCommentaire {
		t.Fatalf("first line = %+v", ouvrage.Lignes[0])
	}
	artLine := ouvrage.Lignes[1]
	if artLine.TypeLigne != models.LigneTypeArticle || artLine.Article == nil || artLine.Article.ID != article.ID {
		t.Fatalf("article line = %+v", artLine)
	}
	if !artLine.Quantite.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("quantity = %s", artLine.Quantite)
	}
}

// Omitting a known line from the payload tombstones it for the saving tenant
// only; the baseline line keeps serving other tenants.
func TestOuvrageOmittedLineTombstonedPerTenant(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	catalog := seedCatalog(t, base, "Catalogue", "")
	seeded, err := models.SaveOuvrage(base, &models.NewOuvrage{
		CatalogId:   catalog.ID,
		Designation: "Pose prise",
		Lignes: []*models.NewLigneOuvrage{
			{NoOrdre: 1, TypeLigne: models.LigneTypeCommentaire, Commentaire: "Première étape"},
			{NoOrdre: 2, TypeLigne: models.LigneTypeCommentaire, Commentaire: "Seconde étape"},
		},
	})
	if err != nil {
		t.Fatalf("SaveOuvrage baseline: %v", err)
	}
	if len(seeded.Lignes) != 2 {
		t.Fatalf("baseline lines = %d", len(seeded.Lignes))
	}
	kept := seeded.Lignes[0]

	t1 := tenantCtx("t1")
	saved, err := models.SaveOuvrage(t1, &models.NewOuvrage{
		Id:          &seeded.ID,
		CatalogId:   catalog.ID,
		Designation: "Pose prise",
		Lignes: []*models.NewLigneOuvrage{
			{Id: &kept.ID, NoOrdre: 1, TypeLigne: models.LigneTypeCommentaire, Commentaire: "Première étape"},
		},
	})
	if err != nil {
		t.Fatalf("SaveOuvrage t1: %v", err)
	}
	if len(saved.Lignes) != 1 || saved.Lignes[0].ID != kept.ID {
		t.Fatalf("t1 lines = %+v", saved.Lignes)
	}

	other, err := models.GetOuvrage(tenantCtx("t2"), seeded.ID)
	if err != nil {
		t.Fatalf("GetOuvrage t2: %v", err)
	}
	if len(other.Lignes) != 2 {
		t.Fatalf("t2 lines = %d, tombstone leaked", len(other.Lignes))
	}

	// naming the tombstoned line again revives it
	dropped := seeded.Lignes[1]
	revived, err := models.SaveOuvrage(t1, &models.NewOuvrage{
		Id:          &seeded.ID,
		CatalogId:   catalog.ID,
		Designation: "Pose prise",
		Lignes: []*models.NewLigneOuvrage{
			{Id: &kept.ID, NoOrdre: 1, TypeLigne: models.LigneTypeCommentaire, Commentaire: "Première étape"},
			{Id: &dropped.ID, NoOrdre: 2, TypeLigne: models.LigneTypeCommentaire, Commentaire: "Seconde étape"},
		},
	})
	if err != nil {
		t.Fatalf("SaveOuvrage revive: %v", err)
	}
	if len(revived.Lignes) != 2 {
		t.Fatalf("revived lines = %d", len(revived.Lignes))
	}
}

func TestOuvrageLineValidation(t *testing.T) {
	setupTest(t)

	t1 := tenantCtx("t1")
	catalog := seedCatalog(t, t1, "Catalogue", "")

	_, err := models.SaveOuvrage(t1, &models.NewOuvrage{
		CatalogId:   catalog.ID,
		Designation: "Ouvrage",
		Lignes: []*models.NewLigneOuvrage{
			{NoOrdre: 1, TypeLigne: models.LigneTypeCommentaire, Commentaire: "   "},
		},
	})
	if !errors.Is(err, utils.ErrorBadRequest) {
		t.Fatalf("blank comment: want bad request, got %v", err)
	}

	_, err = models.SaveOuvrage(t1, &models.NewOuvrage{
		CatalogId:   catalog.ID,
		Designation: "Ouvrage",
		Lignes: []*models.NewLigneOuvrage{
			{NoOrdre: 1, TypeLigne: models.LigneTypeArticle},
		},
	})
	if !errors.Is(err, utils.ErrorBadRequest) {
		t.Fatalf("missing article ref: want bad request, got %v", err)
	}

	_, err = models.SaveOuvrage(t1, &models.NewOuvrage{
		CatalogId:   catalog.ID,
		Designation: "Ouvrage",
		Lignes: []*models.NewLigneOuvrage{
			{NoOrdre: 1, TypeLigne: models.LigneTypeArticle, ArticleId: 999},
		},
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("unknown article: want not found, got %v", err)
	}

	// a failed save must leave nothing behind
	list, listErr := models.GetOuvrages(t1, catalog.ID)
	if listErr != nil {
		t.Fatalf("GetOuvrages: %v", listErr)
	}
	if len(list) != 0 {
		t.Fatalf("rolled-back ouvrage persisted: %+v", list)
	}
}

func TestOuvrageDesignationConflict(t *testing.T) {
	setupTest(t)

	t1 := tenantCtx("t1")
	catalog := seedCatalog(t, t1, "Catalogue", "")
	if _, err := models.SaveOuvrage(t1, &models.NewOuvrage{CatalogId: catalog.ID, Designation: "Doublon"}); err != nil {
		t.Fatalf("SaveOuvrage: %v", err)
	}
	_, err := models.SaveOuvrage(t1, &models.NewOuvrage{CatalogId: catalog.ID, Designation: "Doublon"})
	if !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestOuvrageDeleteIsTenantLocal(t *testing.T) {
	setupTest(t)

	base := baselineCtx()
	catalog := seedCatalog(t, base, "Catalogue", "")
	seeded, err := models.SaveOuvrage(base, &models.NewOuvrage{CatalogId: catalog.ID, Designation: "Commun"})
	if err != nil {
		t.Fatalf("SaveOuvrage baseline: %v", err)
	}

	t1 := tenantCtx("t1")
	if err := models.DeleteOuvrage(t1, seeded.ID); err != nil {
		t.Fatalf("DeleteOuvrage t1: %v", err)
	}
	if _, err := models.GetOuvrage(t1, seeded.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("t1 should not see the ouvrage, got %v", err)
	}
	if _, err := models.GetOuvrage(tenantCtx("t2"), seeded.ID); err != nil {
		t.Fatalf("t2 must keep seeing the ouvrage: %v", err)
	}
}

func TestOuvragesByFamilyUnknownFamilyNotFound(t *testing.T) {
	setupTest(t)

	_, err := models.GetOuvragesByFamily(tenantCtx("t1"), 999)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}
