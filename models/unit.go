package models

import (
	"context"
	"time"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

// Units and natures are plain platform-wide reference tables; they are not
// layered and are shared by every tenant.

type Unit struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Abbreviation string    `gorm:"size:20" json:"abbreviation"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Nature struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUnit struct {
	Name         string `json:"name" binding:"required"`
	Abbreviation string `json:"abbreviation"`
}

type NewNature struct {
	Name string `json:"name" binding:"required"`
}

func CreateUnit(ctx context.Context, input *NewUnit) (*Unit, error) {
	unit := Unit{
		Name:         input.Name,
		Abbreviation: input.Abbreviation,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&unit).Error; err != nil {
		return nil, err
	}
	if err := utils.ClearRedisList[Unit](); err != nil {
		config.LogError(config.GetLogger(), "models", "CreateUnit", "clear cache", nil, err)
	}
	return &unit, nil
}

func CreateNature(ctx context.Context, input *NewNature) (*Nature, error) {
	nature := Nature{Name: input.Name}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&nature).Error; err != nil {
		return nil, err
	}
	if err := utils.ClearRedisList[Nature](); err != nil {
		config.LogError(config.GetLogger(), "models", "CreateNature", "clear cache", nil, err)
	}
	return &nature, nil
}

// read unit list, redis or db, cache result
func GetUnits(ctx context.Context) ([]*Unit, error) {
	results, err := utils.RetrieveRedisList[Unit]()
	if err != nil {
		return nil, err
	}
	if results == nil {
		db := config.GetDB()
		if err := db.WithContext(ctx).Order("name").Find(&results).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList(results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func GetNatures(ctx context.Context) ([]*Nature, error) {
	results, err := utils.RetrieveRedisList[Nature]()
	if err != nil {
		return nil, err
	}
	if results == nil {
		db := config.GetDB()
		if err := db.WithContext(ctx).Order("name").Find(&results).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList(results); err != nil {
			return nil, err
		}
	}
	return results, nil
}
