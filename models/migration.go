package models

import (
	"log"

	"bitbucket.org/batisoft/catalog_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Catalog{}, &Family{},
		&Article{}, &Ouvrage{}, &LigneOuvrage{}, &LigneOuvrageArticle{},
		&FamilyArticle{}, &FamilyOuvrage{},
		&Unit{}, &Nature{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
