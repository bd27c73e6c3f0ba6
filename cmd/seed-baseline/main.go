package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/models"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

// Seeds the reference tables and a small demo baseline catalog. Baseline
// content is written under the shared tenant and becomes visible to every
// tenant through the merge layer. Safe to re-run: existing names are skipped.

func main() {
	_ = godotenv.Load()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := utils.SetTenantIdInContext(context.Background(), models.BaselineTenant)

	unitIds := seedUnits(ctx, []models.NewUnit{
		{Name: "Unité", Abbreviation: "u"},
		{Name: "Mètre", Abbreviation: "m"},
		{Name: "Mètre carré", Abbreviation: "m²"},
		{Name: "Mètre cube", Abbreviation: "m³"},
		{Name: "Kilogramme", Abbreviation: "kg"},
		{Name: "Heure", Abbreviation: "h"},
		{Name: "Forfait", Abbreviation: "fft"},
	})
	natureIds := seedNatures(ctx, []models.NewNature{
		{Name: "Fourniture"},
		{Name: "Main d'œuvre"},
		{Name: "Matériel"},
	})

	existing, err := models.GetCatalogs(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range existing {
		if c.Name == "Catalogue général" {
			log.Printf("catalog %d already seeded", c.ID)
			return
		}
	}

	catalog := mustSave(models.SaveCatalog(ctx, &models.NewCatalog{
		Name:        "Catalogue général",
		Description: "Catalogue de démonstration",
	}))
	log.Printf("catalog %d (%s)", catalog.ID, catalog.Name)

	elec := mustSave(models.SaveFamily(ctx, &models.NewFamily{
		CatalogId: catalog.ID,
		Name:      "Électricité",
	}))
	cables := mustSave(models.SaveFamily(ctx, &models.NewFamily{
		CatalogId: catalog.ID,
		Name:      "Câbles",
		ParentId:  &elec.ID,
	}))

	article := mustSave(models.SaveArticle(ctx, &models.NewArticle{
		CatalogId:             catalog.ID,
		Name:                  "Câble R2V 3G2,5",
		Label:                 "Câble rigide R2V 3G2,5mm²",
		PurchasePrice:         decimal.NewFromFloat(1.20),
		Margin:                decimal.NewFromFloat(0.25),
		SellingPrice:          decimal.NewFromFloat(1.50),
		SaleUnitId:            unitIds["Mètre"],
		PurchaseUnitId:        unitIds["Mètre"],
		NatureId:              natureIds["Fourniture"],
		ConversionCoefficient: decimal.NewFromInt(1),
		FamilyIds:             []int{cables.ID},
	}))
	log.Printf("article %d (%s)", article.ID, article.Code)

	ouvrage := mustSave(models.SaveOuvrage(ctx, &models.NewOuvrage{
		CatalogId:   catalog.ID,
		Designation: "Pose point lumineux",
		Prix:        decimal.NewFromFloat(45),
		UnitId:      unitIds["Unité"],
		FamilyIds:   []int{elec.ID},
		Lignes: []*models.NewLigneOuvrage{
			{NoOrdre: 1, TypeLigne: models.LigneTypeCommentaire, Commentaire: "Alimentation depuis le tableau"},
			{NoOrdre: 2, TypeLigne: models.LigneTypeArticle, ArticleId: article.ID, Quantite: decimal.NewFromInt(12)},
		},
	}))
	log.Printf("ouvrage %d (%s)", ouvrage.ID, ouvrage.Designation)

	log.Println("baseline seed complete")
}

func seedUnits(ctx context.Context, units []models.NewUnit) map[string]int {
	existing, err := models.GetUnits(ctx)
	if err != nil {
		log.Fatal(err)
	}
	ids := make(map[string]int, len(units))
	for _, u := range existing {
		ids[u.Name] = u.ID
	}
	for i := range units {
		if _, ok := ids[units[i].Name]; ok {
			continue
		}
		created, err := models.CreateUnit(ctx, &units[i])
		if err != nil {
			log.Fatal(err)
		}
		ids[created.Name] = created.ID
	}
	return ids
}

func seedNatures(ctx context.Context, natures []models.NewNature) map[string]int {
	existing, err := models.GetNatures(ctx)
	if err != nil {
		log.Fatal(err)
	}
	ids := make(map[string]int, len(natures))
	for _, n := range existing {
		ids[n.Name] = n.ID
	}
	for i := range natures {
		if _, ok := ids[natures[i].Name]; ok {
			continue
		}
		created, err := models.CreateNature(ctx, &natures[i])
		if err != nil {
			log.Fatal(err)
		}
		ids[created.Name] = created.ID
	}
	return ids
}

func mustSave[T any](v *T, err error) *T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}
