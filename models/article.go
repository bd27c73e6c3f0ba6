package models

import (
	"context"
	"errors"
	"sort"
	"time"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
	"github.com/shopspring/decimal"
)

type Article struct {
	ID                    int              `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantId              string           `gorm:"primaryKey;size:64" json:"tenant_id"`
	CatalogId             int              `gorm:"index;not null" json:"catalog_id"`
	Code                  *string          `gorm:"index;size:20" json:"code"`
	Name                  *string          `gorm:"size:100" json:"name"`
	Label                 *string          `gorm:"size:200" json:"label"`
	CommercialDescription *string          `gorm:"type:text" json:"commercial_description"`
	Photo                 *string          `gorm:"size:500" json:"photo"`
	PurchasePrice         *decimal.Decimal `gorm:"type:decimal(20,4)" json:"purchase_price"`
	Margin                *decimal.Decimal `gorm:"type:decimal(20,4)" json:"margin"`
	SellingPrice          *decimal.Decimal `gorm:"type:decimal(20,4)" json:"selling_price"`
	SaleUnitId            *int             `json:"sale_unit_id"`
	PurchaseUnitId        *int             `json:"purchase_unit_id"`
	NatureId              *int             `json:"nature_id"`
	ConversionCoefficient *decimal.Decimal `gorm:"type:decimal(20,4)" json:"conversion_coefficient"`
	IsDeleted             *bool            `json:"is_deleted"`
	CreatedAt             time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a Article) LogicalId() int      { return a.ID }
func (a Article) OwnerTenant() string { return a.TenantId }

type NewArticle struct {
	Id                    *int            `json:"id"`
	CatalogId             int             `json:"catalog_id" binding:"required"`
	Code                  string          `json:"code"`
	Name                  string          `json:"name" binding:"required"`
	Label                 string          `json:"label"`
	CommercialDescription string          `json:"commercial_description"`
	Photo                 string          `json:"photo"`
	PurchasePrice         decimal.Decimal `json:"purchase_price"`
	Margin                decimal.Decimal `json:"margin"`
	SellingPrice          decimal.Decimal `json:"selling_price"`
	SaleUnitId            int             `json:"sale_unit_id"`
	PurchaseUnitId        int             `json:"purchase_unit_id"`
	NatureId              int             `json:"nature_id"`
	ConversionCoefficient decimal.Decimal `json:"conversion_coefficient"`
	FamilyIds             []int           `json:"family_ids"`
}

type MergedArticle struct {
	ID                    int             `json:"id"`
	CatalogId             int             `json:"catalog_id"`
	Code                  string          `json:"code"`
	Name                  string          `json:"name"`
	Label                 string          `json:"label"`
	CommercialDescription string          `json:"commercial_description"`
	Photo                 string          `json:"photo"`
	PurchasePrice         decimal.Decimal `json:"purchase_price"`
	Margin                decimal.Decimal `json:"margin"`
	SellingPrice          decimal.Decimal `json:"selling_price"`
	SaleUnitId            int             `json:"sale_unit_id"`
	PurchaseUnitId        int             `json:"purchase_unit_id"`
	NatureId              int             `json:"nature_id"`
	ConversionCoefficient decimal.Decimal `json:"conversion_coefficient"`
}

func mergeArticle(pair LayerPair[Article]) *MergedArticle {
	base := pair.Base()
	fallback := pair.Fallback()
	return &MergedArticle{
		ID:                    base.ID,
		CatalogId:             base.CatalogId,
		Code:                  utils.DereferencePtr(utils.Coalesce(base.Code, fallback.Code)),
		Name:                  utils.DereferencePtr(utils.Coalesce(base.Name, fallback.Name)),
		Label:                 utils.DereferencePtr(utils.Coalesce(base.Label, fallback.Label)),
		CommercialDescription: utils.DereferencePtr(utils.Coalesce(base.CommercialDescription, fallback.CommercialDescription)),
		Photo:                 utils.DereferencePtr(utils.Coalesce(base.Photo, fallback.Photo)),
		PurchasePrice:         mergedDecimal(base.PurchasePrice, fallback.PurchasePrice),
		Margin:                mergedDecimal(base.Margin, fallback.Margin),
		SellingPrice:          mergedDecimal(base.SellingPrice, fallback.SellingPrice),
		SaleUnitId:            utils.DereferencePtr(utils.Coalesce(base.SaleUnitId, fallback.SaleUnitId)),
		PurchaseUnitId:        utils.DereferencePtr(utils.Coalesce(base.PurchaseUnitId, fallback.PurchaseUnitId)),
		NatureId:              utils.DereferencePtr(utils.Coalesce(base.NatureId, fallback.NatureId)),
		ConversionCoefficient: mergedDecimal(base.ConversionCoefficient, fallback.ConversionCoefficient),
	}
}

func articleDeleted(pair LayerPair[Article]) bool {
	return utils.DereferencePtr(pair.Base().IsDeleted)
}

func GetArticle(ctx context.Context, id int) (*MergedArticle, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Article](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if !pair.Exists() || articleDeleted(pair) {
		return nil, utils.NotFoundf("article %d", id)
	}
	return mergeArticle(pair), nil
}

// GetArticles lists the merged articles of a catalog, sorted by name.
func GetArticles(ctx context.Context, catalogId int) ([]*MergedArticle, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pairs, err := fetchLayerPairsWhere[Article](ctx, tenantId, "catalog_id = ?", catalogId)
	if err != nil {
		return nil, err
	}
	results := make([]*MergedArticle, 0, len(pairs))
	for _, id := range utils.SortedKeys(pairs) {
		pair := pairs[id]
		if articleDeleted(*pair) {
			continue
		}
		results = append(results, mergeArticle(*pair))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

// GetArticlesByFamily lists the merged articles linked to a family. A link can
// outlive its article (per-tenant tombstone), so vanished articles are skipped.
func GetArticlesByFamily(ctx context.Context, familyId int) ([]*MergedArticle, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	familyPair, err := fetchLayerPair[Family](ctx, tenantId, familyId)
	if err != nil {
		return nil, err
	}
	if !familyPair.Exists() || familyDeleted(familyPair) {
		return nil, utils.NotFoundf("family %d", familyId)
	}

	ids, err := linkedArticleIds(ctx, tenantId, familyId)
	if err != nil {
		return nil, err
	}
	results := make([]*MergedArticle, 0, len(ids))
	for _, id := range ids {
		article, err := GetArticle(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, article)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

// SaveArticle creates an article or writes the tenant overlay of an existing
// one, then links it to the given families. The code is never suppressed: it
// is stored explicitly, generated when absent on create.
func SaveArticle(ctx context.Context, input *NewArticle) (*MergedArticle, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	catalogPair, err := fetchLayerPair[Catalog](ctx, tenantId, input.CatalogId)
	if err != nil {
		return nil, err
	}
	if !catalogPair.Exists() || catalogDeleted(catalogPair) {
		return nil, utils.NotFoundf("catalog %d", input.CatalogId)
	}

	if input.SaleUnitId > 0 {
		if err := utils.ValidateResourceId[Unit](ctx, input.SaleUnitId); err != nil {
			return nil, utils.NotFoundf("sale unit %d", input.SaleUnitId)
		}
	}
	if input.PurchaseUnitId > 0 {
		if err := utils.ValidateResourceId[Unit](ctx, input.PurchaseUnitId); err != nil {
			return nil, utils.NotFoundf("purchase unit %d", input.PurchaseUnitId)
		}
	}
	if input.NatureId > 0 {
		if err := utils.ValidateResourceId[Nature](ctx, input.NatureId); err != nil {
			return nil, utils.NotFoundf("nature %d", input.NatureId)
		}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var row Article
	hasFallback := false
	var fallback *Article

	if input.Id != nil {
		pair, err := fetchLayerPair[Article](ctx, tenantId, *input.Id)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if !pair.Exists() {
			tx.Rollback()
			return nil, utils.NotFoundf("article %d", *input.Id)
		}
		fallback = pair.Baseline
		hasFallback = fallback != nil && tenantId != BaselineTenant
		if pair.Overlay != nil {
			row = *pair.Overlay
		} else {
			row = Article{ID: fallback.ID, TenantId: tenantId, CatalogId: fallback.CatalogId}
		}
	} else {
		id, err := nextLogicalId[Article](ctx, tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		row = Article{ID: id, TenantId: tenantId, CatalogId: input.CatalogId}
	}

	// the code is always explicit on the written row, never inherited implicitly
	code := input.Code
	if code == "" {
		if row.Code != nil {
			code = *row.Code
		} else if hasFallback && fallback.Code != nil {
			code = *fallback.Code
		} else {
			code, err = nextArticleCodeTx(ctx, tx, tenantId)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}
	count, err := utils.ResourceCountWhere[Article](ctx,
		"code = ? AND tenant_id = ? AND id <> ? AND (is_deleted IS NULL OR is_deleted = ?)",
		code, tenantId, row.ID, false)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if count > 0 {
		tx.Rollback()
		return nil, utils.Conflictf("article code %q already exists", code)
	}
	row.Code = &code

	var fb Article
	if hasFallback {
		fb = *fallback
	}
	row.Name = layerValue(row.Name, input.Name, hasFallback, fb.Name)
	row.Label = layerValue(row.Label, input.Label, hasFallback, fb.Label)
	row.CommercialDescription = layerValue(row.CommercialDescription, input.CommercialDescription, hasFallback, fb.CommercialDescription)
	row.Photo = layerValue(row.Photo, input.Photo, hasFallback, fb.Photo)
	row.PurchasePrice = layerDecimal(row.PurchasePrice, input.PurchasePrice, hasFallback, fb.PurchasePrice)
	row.Margin = layerDecimal(row.Margin, input.Margin, hasFallback, fb.Margin)
	row.SellingPrice = layerDecimal(row.SellingPrice, input.SellingPrice, hasFallback, fb.SellingPrice)
	row.SaleUnitId = layerValue(row.SaleUnitId, input.SaleUnitId, hasFallback, fb.SaleUnitId)
	row.PurchaseUnitId = layerValue(row.PurchaseUnitId, input.PurchaseUnitId, hasFallback, fb.PurchaseUnitId)
	row.NatureId = layerValue(row.NatureId, input.NatureId, hasFallback, fb.NatureId)
	row.ConversionCoefficient = layerDecimal(row.ConversionCoefficient, input.ConversionCoefficient, hasFallback, fb.ConversionCoefficient)
	row.IsDeleted = nil

	if err := tx.Save(&row).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := syncFamilyArticles(ctx, tx, tenantId, row.ID, row.TenantId, input.FamilyIds); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetArticle(ctx, row.ID)
}

// DeleteArticle tombstones an article for the requesting tenant.
func DeleteArticle(ctx context.Context, id int) error {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Article](ctx, tenantId, id)
	if err != nil {
		return err
	}
	if !pair.Exists() || articleDeleted(pair) {
		return utils.NotFoundf("article %d", id)
	}

	db := config.GetDB()
	if pair.Overlay != nil {
		pair.Overlay.IsDeleted = utils.NewTrue()
		return db.WithContext(ctx).Save(pair.Overlay).Error
	}
	tombstone := Article{
		ID:        pair.Baseline.ID,
		TenantId:  tenantId,
		CatalogId: pair.Baseline.CatalogId,
		Code:      pair.Baseline.Code,
		IsDeleted: utils.NewTrue(),
	}
	return db.WithContext(ctx).Create(&tombstone).Error
}
