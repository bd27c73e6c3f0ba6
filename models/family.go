package models

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
)

// Family is one node of a catalog's category tree. The parent link carries its
// own tenant so it can point at either a baseline or an overlay parent row.
type Family struct {
	ID             int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantId       string    `gorm:"primaryKey;size:64" json:"tenant_id"`
	CatalogId      int       `gorm:"index;not null" json:"catalog_id"`
	Name           *string   `gorm:"size:100" json:"name"`
	ParentId       *int      `gorm:"index" json:"parent_id"`
	ParentTenantId *string   `gorm:"size:64" json:"parent_tenant_id"`
	IsDeleted      *bool     `json:"is_deleted"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (f Family) LogicalId() int      { return f.ID }
func (f Family) OwnerTenant() string { return f.TenantId }

type NewFamily struct {
	Id        *int   `json:"id"`
	CatalogId int    `json:"catalog_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	ParentId  *int   `json:"parent_id"`
}

type MergedFamily struct {
	ID          int             `json:"id"`
	CatalogId   int             `json:"catalog_id"`
	Name        string          `json:"name"`
	ParentId    *int            `json:"parent_id"`
	SubFamilies []*MergedFamily `json:"sub_families"`
}

func mergeFamily(pair LayerPair[Family]) *MergedFamily {
	base := pair.Base()
	fallback := pair.Fallback()
	return &MergedFamily{
		ID:        base.ID,
		CatalogId: base.CatalogId,
		Name:      utils.DereferencePtr(utils.Coalesce(base.Name, fallback.Name)),
		ParentId:  utils.Coalesce(base.ParentId, fallback.ParentId),
	}
}

func familyDeleted(pair LayerPair[Family]) bool {
	return utils.DereferencePtr(pair.Base().IsDeleted)
}

// mergedFamilyArena merges every family row of a catalog and groups the result
// into child lists keyed by parent logical id (0 = top level). Building the
// tree by one grouping scan avoids chasing parent pointers through cycles.
func mergedFamilyArena(ctx context.Context, tenantId string, catalogId int) (map[int][]*MergedFamily, error) {
	pairs, err := fetchLayerPairsWhere[Family](ctx, tenantId, "catalog_id = ?", catalogId)
	if err != nil {
		return nil, err
	}

	children := make(map[int][]*MergedFamily)
	for _, id := range utils.SortedKeys(pairs) {
		pair := pairs[id]
		if familyDeleted(*pair) {
			continue
		}
		merged := mergeFamily(*pair)
		parentKey := utils.DereferencePtr(merged.ParentId)
		children[parentKey] = append(children[parentKey], merged)
	}
	for _, list := range children {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		for _, node := range list {
			node.SubFamilies = children[node.ID]
		}
	}
	return children, nil
}

// GetFamilies returns the merged top-level families of a catalog, each with
// its sub-family tree attached.
func GetFamilies(ctx context.Context, catalogId int) ([]*MergedFamily, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	arena, err := mergedFamilyArena(ctx, tenantId, catalogId)
	if err != nil {
		return nil, err
	}
	top := arena[0]
	if top == nil {
		top = []*MergedFamily{}
	}
	return top, nil
}

func GetSubFamilies(ctx context.Context, familyId int) ([]*MergedFamily, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Family](ctx, tenantId, familyId)
	if err != nil {
		return nil, err
	}
	if !pair.Exists() || familyDeleted(pair) {
		return nil, utils.NotFoundf("family %d", familyId)
	}
	arena, err := mergedFamilyArena(ctx, tenantId, pair.Base().CatalogId)
	if err != nil {
		return nil, err
	}
	subs := arena[familyId]
	if subs == nil {
		subs = []*MergedFamily{}
	}
	return subs, nil
}

func GetFamily(ctx context.Context, id int) (*MergedFamily, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Family](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if !pair.Exists() || familyDeleted(pair) {
		return nil, utils.NotFoundf("family %d", id)
	}
	merged := mergeFamily(pair)
	arena, err := mergedFamilyArena(ctx, tenantId, pair.Base().CatalogId)
	if err != nil {
		return nil, err
	}
	merged.SubFamilies = arena[id]
	return merged, nil
}

// ensureNotDescendant walks the merged ancestor chain of a candidate parent
// and rejects it when the family itself shows up: re-parenting onto itself or
// onto one of its own descendants would close a cycle in the tree.
func ensureNotDescendant(ctx context.Context, tenantId string, familyId int, parentPair LayerPair[Family]) error {
	visited := make(map[int]bool)
	pair := parentPair
	for {
		base := pair.Base()
		if base.ID == familyId {
			return utils.BadRequestf("family %d cannot be its own ancestor", familyId)
		}
		if visited[base.ID] {
			return nil
		}
		visited[base.ID] = true
		ancestorId := utils.Coalesce(base.ParentId, pair.Fallback().ParentId)
		if ancestorId == nil || *ancestorId == 0 {
			return nil
		}
		next, err := fetchLayerPair[Family](ctx, tenantId, *ancestorId)
		if err != nil {
			return err
		}
		if !next.Exists() {
			return nil
		}
		pair = next
	}
}

// SaveFamily creates a family or writes the tenant overlay of an existing one.
// A field equal to the inherited value is stored as null so a later baseline
// edit still propagates to tenants that never overrode it.
func SaveFamily(ctx context.Context, input *NewFamily) (*MergedFamily, error) {
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

	var parentId *int
	var parentTenantId *string
	if input.ParentId != nil {
		parentPair, err := fetchLayerPair[Family](ctx, tenantId, *input.ParentId)
		if err != nil {
			return nil, err
		}
		if !parentPair.Exists() || familyDeleted(parentPair) {
			return nil, utils.NotFoundf("parent family %d", *input.ParentId)
		}
		if input.Id != nil {
			if err := ensureNotDescendant(ctx, tenantId, *input.Id, parentPair); err != nil {
				return nil, err
			}
		}
		parentId = input.ParentId
		parentTenantId = utils.Ptr(parentPair.Base().TenantId)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var row Family
	hasFallback := false
	var fallback *Family

	if input.Id != nil {
		pair, err := fetchLayerPair[Family](ctx, tenantId, *input.Id)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if !pair.Exists() {
			tx.Rollback()
			return nil, utils.NotFoundf("family %d", *input.Id)
		}
		fallback = pair.Baseline
		hasFallback = fallback != nil && tenantId != BaselineTenant
		if pair.Overlay != nil {
			row = *pair.Overlay
		} else {
			row = Family{ID: fallback.ID, TenantId: tenantId, CatalogId: fallback.CatalogId}
		}
	} else {
		id, err := nextLogicalId[Family](ctx, tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		row = Family{ID: id, TenantId: tenantId, CatalogId: input.CatalogId}
	}

	count, err := utils.ResourceCountWhere[Family](ctx,
		"name = ? AND catalog_id = ? AND tenant_id = ? AND id <> ? AND (is_deleted IS NULL OR is_deleted = ?)",
		input.Name, row.CatalogId, tenantId, row.ID, false)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if count > 0 {
		tx.Rollback()
		return nil, utils.Conflictf("family name %q already exists", input.Name)
	}

	var inheritedName *string
	var inheritedParent *int
	var inheritedParentTenant *string
	if hasFallback {
		inheritedName = fallback.Name
		inheritedParent = fallback.ParentId
		inheritedParentTenant = fallback.ParentTenantId
	}
	row.Name = layerValue(row.Name, input.Name, hasFallback, inheritedName)
	if parentId != nil {
		row.ParentId = layerValue(row.ParentId, *parentId, hasFallback, inheritedParent)
		if row.ParentId != nil {
			row.ParentTenantId = layerValue(row.ParentTenantId, *parentTenantId, hasFallback, inheritedParentTenant)
		}
	}
	row.IsDeleted = nil

	if err := tx.Save(&row).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetFamily(ctx, row.ID)
}

// DeleteFamily tombstones a family for the requesting tenant. A family that
// still has live sub-families, articles or ouvrages cannot be removed.
func DeleteFamily(ctx context.Context, id int) error {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Family](ctx, tenantId, id)
	if err != nil {
		return err
	}
	if !pair.Exists() || familyDeleted(pair) {
		return utils.NotFoundf("family %d", id)
	}

	subs, err := GetSubFamilies(ctx, id)
	if err != nil {
		return err
	}
	if len(subs) > 0 {
		return utils.BadRequestf("family %d has sub-families", id)
	}
	articles, err := GetArticlesByFamily(ctx, id)
	if err != nil {
		return err
	}
	if len(articles) > 0 {
		return utils.BadRequestf("family %d has articles", id)
	}
	ouvrages, err := GetOuvragesByFamily(ctx, id)
	if err != nil {
		return err
	}
	if len(ouvrages) > 0 {
		return utils.BadRequestf("family %d has ouvrages", id)
	}

	db := config.GetDB()
	if pair.Overlay != nil {
		pair.Overlay.IsDeleted = utils.NewTrue()
		return db.WithContext(ctx).Save(pair.Overlay).Error
	}
	tombstone := Family{
		ID:             pair.Baseline.ID,
		TenantId:       tenantId,
		CatalogId:      pair.Baseline.CatalogId,
		ParentId:       pair.Baseline.ParentId,
		ParentTenantId: pair.Baseline.ParentTenantId,
		IsDeleted:      utils.NewTrue(),
	}
	return db.WithContext(ctx).Create(&tombstone).Error
}
