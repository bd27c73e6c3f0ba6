package models

import (
	"context"
	"time"

	"bitbucket.org/batisoft/catalog_backend/utils"
	"gorm.io/gorm"
)

// Family membership is itself layered: a tenant link row can add an article or
// ouvrage to a family, or tombstone an inherited baseline link, independently
// of the linked entities.

type FamilyArticle struct {
	FamilyId        int       `gorm:"primaryKey;autoIncrement:false" json:"family_id"`
	ArticleId       int       `gorm:"primaryKey;autoIncrement:false" json:"article_id"`
	TenantId        string    `gorm:"primaryKey;size:64" json:"tenant_id"`
	FamilyTenantId  string    `gorm:"size:64" json:"family_tenant_id"`
	ArticleTenantId string    `gorm:"size:64" json:"article_tenant_id"`
	IsDeleted       *bool     `json:"is_deleted"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// the logical id of a link, with the family fixed, is the linked entity id
func (fa FamilyArticle) LogicalId() int      { return fa.ArticleId }
func (fa FamilyArticle) OwnerTenant() string { return fa.TenantId }

type FamilyOuvrage struct {
	FamilyId        int       `gorm:"primaryKey;autoIncrement:false" json:"family_id"`
	OuvrageId       int       `gorm:"primaryKey;autoIncrement:false" json:"ouvrage_id"`
	TenantId        string    `gorm:"primaryKey;size:64" json:"tenant_id"`
	FamilyTenantId  string    `gorm:"size:64" json:"family_tenant_id"`
	OuvrageTenantId string    `gorm:"size:64" json:"ouvrage_tenant_id"`
	IsDeleted       *bool     `json:"is_deleted"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (fo FamilyOuvrage) LogicalId() int      { return fo.OuvrageId }
func (fo FamilyOuvrage) OwnerTenant() string { return fo.TenantId }

// linkedArticleIds resolves the live merged article links of a family.
func linkedArticleIds(ctx context.Context, tenantId string, familyId int) ([]int, error) {
	pairs, err := fetchLayerPairsWhere[FamilyArticle](ctx, tenantId, "family_id = ?", familyId)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(pairs))
	for _, id := range utils.SortedKeys(pairs) {
		if utils.DereferencePtr(pairs[id].Base().IsDeleted) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func linkedOuvrageIds(ctx context.Context, tenantId string, familyId int) ([]int, error) {
	pairs, err := fetchLayerPairsWhere[FamilyOuvrage](ctx, tenantId, "family_id = ?", familyId)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(pairs))
	for _, id := range utils.SortedKeys(pairs) {
		if utils.DereferencePtr(pairs[id].Base().IsDeleted) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// syncFamilyArticles inserts fresh tenant link rows for the given families.
// Existing links are revived when tombstoned; links to families not named in
// the input are left alone (removal is a separate concern).
func syncFamilyArticles(ctx context.Context, tx *gorm.DB, tenantId string, articleId int, articleTenantId string, familyIds []int) error {
	for _, familyId := range utils.UniqueSlice(familyIds) {
		familyPair, err := fetchLayerPair[Family](ctx, tenantId, familyId)
		if err != nil {
			return err
		}
		if !familyPair.Exists() || familyDeleted(familyPair) {
			return utils.NotFoundf("family %d", familyId)
		}

		var existing []*FamilyArticle
		err = tx.Where("family_id = ? AND article_id = ? AND tenant_id IN ?",
			familyId, articleId, layerTenants(tenantId)).Find(&existing).Error
		if err != nil {
			return err
		}
		linkPair := groupLayers(existing, tenantId)[articleId]

		if linkPair != nil && linkPair.Overlay != nil {
			if utils.DereferencePtr(linkPair.Overlay.IsDeleted) {
				linkPair.Overlay.IsDeleted = nil
				if err := tx.Save(linkPair.Overlay).Error; err != nil {
					return err
				}
			}
			continue
		}
		if linkPair != nil && linkPair.Baseline != nil && !utils.DereferencePtr(linkPair.Baseline.IsDeleted) {
			// inherited live link, nothing to materialize
			continue
		}

		link := FamilyArticle{
			FamilyId:        familyId,
			ArticleId:       articleId,
			TenantId:        tenantId,
			FamilyTenantId:  familyPair.Base().TenantId,
			ArticleTenantId: articleTenantId,
		}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

func syncFamilyOuvrages(ctx context.Context, tx *gorm.DB, tenantId string, ouvrageId int, ouvrageTenantId string, familyIds []int) error {
	for _, familyId := range utils.UniqueSlice(familyIds) {
		familyPair, err := fetchLayerPair[Family](ctx, tenantId, familyId)
		if err != nil {
			return err
		}
		if !familyPair.Exists() || familyDeleted(familyPair) {
			return utils.NotFoundf("family %d", familyId)
		}

		var existing []*FamilyOuvrage
		err = tx.Where("family_id = ? AND ouvrage_id = ? AND tenant_id IN ?",
			familyId, ouvrageId, layerTenants(tenantId)).Find(&existing).Error
		if err != nil {
			return err
		}
		linkPair := groupLayers(existing, tenantId)[ouvrageId]

		if linkPair != nil && linkPair.Overlay != nil {
			if utils.DereferencePtr(linkPair.Overlay.IsDeleted) {
				linkPair.Overlay.IsDeleted = nil
				if err := tx.Save(linkPair.Overlay).Error; err != nil {
					return err
				}
			}
			continue
		}
		if linkPair != nil && linkPair.Baseline != nil && !utils.DereferencePtr(linkPair.Baseline.IsDeleted) {
			continue
		}

		link := FamilyOuvrage{
			FamilyId:        familyId,
			OuvrageId:       ouvrageId,
			TenantId:        tenantId,
			FamilyTenantId:  familyPair.Base().TenantId,
			OuvrageTenantId: ouvrageTenantId,
		}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}
