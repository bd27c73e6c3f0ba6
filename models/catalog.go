package models

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

type Catalog struct {
	ID          int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantId    string    `gorm:"primaryKey;size:64" json:"tenant_id"`
	Name        *string   `gorm:"size:100" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	IsDeleted   *bool     `json:"is_deleted"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c Catalog) LogicalId() int      { return c.ID }
func (c Catalog) OwnerTenant() string { return c.TenantId }

type NewCatalog struct {
	Id          *int   `json:"id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// MergedCatalog is the per-tenant projection of the baseline and overlay rows.
type MergedCatalog struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Families    []*MergedFamily `json:"families"`
}

func mergeCatalog(pair LayerPair[Catalog]) *MergedCatalog {
	base := pair.Base()
	fallback := pair.Fallback()
	return &MergedCatalog{
		ID:          base.ID,
		Name:        utils.DereferencePtr(utils.Coalesce(base.Name, fallback.Name)),
		Description: utils.DereferencePtr(utils.Coalesce(base.Description, fallback.Description)),
	}
}

func catalogDeleted(pair LayerPair[Catalog]) bool {
	return utils.DereferencePtr(pair.Base().IsDeleted)
}

// GetCatalogs lists the tenant's merged catalogs with their top-level family
// tree attached.
func GetCatalogs(ctx context.Context) ([]*MergedCatalog, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pairs, err := fetchLayerPairsWhere[Catalog](ctx, tenantId, "")
	if err != nil {
		return nil, err
	}

	results := make([]*MergedCatalog, 0, len(pairs))
	for _, id := range utils.SortedKeys(pairs) {
		pair := pairs[id]
		if catalogDeleted(*pair) {
			continue
		}
		merged := mergeCatalog(*pair)
		merged.Families, err = GetFamilies(ctx, merged.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, merged)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func GetCatalog(ctx context.Context, id int) (*MergedCatalog, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Catalog](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if !pair.Exists() || catalogDeleted(pair) {
		return nil, utils.NotFoundf("catalog %d", id)
	}
	merged := mergeCatalog(pair)
	merged.Families, err = GetFamilies(ctx, merged.ID)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// SaveCatalog creates a catalog or writes the tenant overlay of an existing
// one, suppressing fields inheritance would already produce.
func SaveCatalog(ctx context.Context, input *NewCatalog) (*MergedCatalog, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var row Catalog
	hasFallback := false
	var fallback *Catalog

	if input.Id != nil {
		pair, err := fetchLayerPair[Catalog](ctx, tenantId, *input.Id)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if !pair.Exists() {
			tx.Rollback()
			return nil, utils.NotFoundf("catalog %d", *input.Id)
		}
		fallback = pair.Baseline
		// the baseline tenant writes the baseline row itself, nothing to inherit
		hasFallback = fallback != nil && tenantId != BaselineTenant
		if pair.Overlay != nil {
			row = *pair.Overlay
		} else {
			// lazy overlay creation: clone identity from the baseline row
			row = Catalog{ID: fallback.ID, TenantId: tenantId}
		}
	} else {
		id, err := nextLogicalId[Catalog](ctx, tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		row = Catalog{ID: id, TenantId: tenantId}
	}

	count, err := utils.ResourceCountWhere[Catalog](ctx,
		"name = ? AND tenant_id = ? AND id <> ? AND (is_deleted IS NULL OR is_deleted = ?)",
		input.Name, tenantId, row.ID, false)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if count > 0 {
		tx.Rollback()
		return nil, utils.Conflictf("catalog name %q already exists", input.Name)
	}

	var inheritedName, inheritedDesc *string
	if hasFallback {
		inheritedName = fallback.Name
		inheritedDesc = fallback.Description
	}
	row.Name = layerValue(row.Name, input.Name, hasFallback, inheritedName)
	row.Description = layerValue(row.Description, input.Description, hasFallback, inheritedDesc)
	row.IsDeleted = nil

	if err := tx.Save(&row).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetCatalog(ctx, row.ID)
}

// DeleteCatalog tombstones the catalog for the requesting tenant. A catalog
// that still has live families, articles or ouvrages cannot be removed.
func DeleteCatalog(ctx context.Context, id int) error {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Catalog](ctx, tenantId, id)
	if err != nil {
		return err
	}
	if !pair.Exists() || catalogDeleted(pair) {
		return utils.NotFoundf("catalog %d", id)
	}

	// scan the family rows directly: a live family orphaned under a deleted
	// parent is invisible in the merged tree but still blocks the removal
	familyPairs, err := fetchLayerPairsWhere[Family](ctx, tenantId, "catalog_id = ?", id)
	if err != nil {
		return err
	}
	for _, familyPair := range familyPairs {
		if !familyDeleted(*familyPair) {
			return utils.BadRequestf("catalog %d has families", id)
		}
	}
	articles, err := GetArticles(ctx, id)
	if err != nil {
		return err
	}
	if len(articles) > 0 {
		return utils.BadRequestf("catalog %d has articles", id)
	}
	ouvrages, err := GetOuvrages(ctx, id)
	if err != nil {
		return err
	}
	if len(ouvrages) > 0 {
		return utils.BadRequestf("catalog %d has ouvrages", id)
	}

	db := config.GetDB()
	if pair.Overlay != nil {
		pair.Overlay.IsDeleted = utils.NewTrue()
		return db.WithContext(ctx).Save(pair.Overlay).Error
	}
	// tombstone overlay: the baseline row stays untouched for other tenants
	tombstone := Catalog{
		ID:        pair.Baseline.ID,
		TenantId:  tenantId,
		IsDeleted: utils.NewTrue(),
	}
	return db.WithContext(ctx).Create(&tombstone).Error
}
