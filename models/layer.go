package models

import (
	"context"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Every catalog entity lives in a two-tier store: at most one baseline row
// (tenant_id = "NIL") and at most one overlay row per tenant share a logical id.
// Reads merge the two layers field by field; writes materialize or mutate the
// overlay only, so the baseline seen by other tenants never changes.

type LayeredRow interface {
	LogicalId() int
	OwnerTenant() string
}

func layerTenants(tenantId string) []string {
	return []string{tenantId, BaselineTenant}
}

// LayerPair holds the physical rows backing one logical id for one tenant.
// The three cases (only baseline, only overlay, both) are distinguished by
// which pointers are set.
type LayerPair[T LayeredRow] struct {
	Overlay  *T
	Baseline *T
}

func (p LayerPair[T]) Exists() bool {
	return p.Overlay != nil || p.Baseline != nil
}

func (p LayerPair[T]) HasBoth() bool {
	return p.Overlay != nil && p.Baseline != nil
}

// Base is the row whose explicit values win: the overlay when present.
func (p LayerPair[T]) Base() *T {
	if p.Overlay != nil {
		return p.Overlay
	}
	return p.Baseline
}

// Fallback is the row inherited from: the baseline when present.
// Base and Fallback coincide when only one row exists.
func (p LayerPair[T]) Fallback() *T {
	if p.Baseline != nil {
		return p.Baseline
	}
	return p.Overlay
}

func (p *LayerPair[T]) add(row *T, tenantId string) {
	// for the baseline tenant itself, the baseline row fills both slots so
	// writes mutate it directly instead of cloning a second row
	if (*row).OwnerTenant() == tenantId {
		p.Overlay = row
	}
	if (*row).OwnerTenant() == BaselineTenant {
		p.Baseline = row
	}
}

// groupLayers buckets physical rows by logical id.
func groupLayers[T LayeredRow](rows []*T, tenantId string) map[int]*LayerPair[T] {
	pairs := make(map[int]*LayerPair[T], len(rows))
	for _, row := range rows {
		id := (*row).LogicalId()
		pair, ok := pairs[id]
		if !ok {
			pair = &LayerPair[T]{}
			pairs[id] = pair
		}
		pair.add(row, tenantId)
	}
	return pairs
}

// fetchLayerPair loads the <=2 physical rows for one logical id.
func fetchLayerPair[T LayeredRow](ctx context.Context, tenantId string, id int) (LayerPair[T], error) {
	return fetchLayerPairTx[T](ctx, config.GetDB(), tenantId, id)
}

// fetchLayerPairTx is fetchLayerPair inside a caller-owned transaction, so the
// ouvrage cascade reads its own uncommitted writes.
func fetchLayerPairTx[T LayeredRow](ctx context.Context, tx *gorm.DB, tenantId string, id int) (LayerPair[T], error) {
	var rows []*T
	err := tx.WithContext(ctx).
		Where("id = ? AND tenant_id IN ?", id, layerTenants(tenantId)).
		Find(&rows).Error
	if err != nil {
		return LayerPair[T]{}, err
	}
	pairs := groupLayers(rows, tenantId)
	if pair, ok := pairs[id]; ok {
		return *pair, nil
	}
	return LayerPair[T]{}, nil
}

// fetchLayerPairsWhere loads all rows matching the condition for both layers
// and groups them by logical id.
func fetchLayerPairsWhere[T LayeredRow](ctx context.Context, tenantId string, condition string, values ...interface{}) (map[int]*LayerPair[T], error) {
	return fetchLayerPairsWhereTx[T](ctx, config.GetDB(), tenantId, condition, values...)
}

func fetchLayerPairsWhereTx[T LayeredRow](ctx context.Context, tx *gorm.DB, tenantId string, condition string, values ...interface{}) (map[int]*LayerPair[T], error) {
	var rows []*T
	dbCtx := tx.WithContext(ctx).Where("tenant_id IN ?", layerTenants(tenantId))
	if condition != "" {
		dbCtx = dbCtx.Where(condition, values...)
	}
	if err := dbCtx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return groupLayers(rows, tenantId), nil
}

// layerValue applies the write-side suppression rule for one field: the value
// is stored on the overlay only when inheritance would not already produce it.
// An existing explicit override (current != nil) is kept explicit even when
// the incoming value matches the fallback.
func layerValue[T comparable](current *T, incoming T, hasFallback bool, inherited *T) *T {
	if hasFallback && current == nil {
		var effective T
		if inherited != nil {
			effective = *inherited
		}
		if effective == incoming {
			return nil
		}
	}
	return &incoming
}

// layerDecimal is layerValue for decimals (== is not a semantic comparison there).
func layerDecimal(current *decimal.Decimal, incoming decimal.Decimal, hasFallback bool, inherited *decimal.Decimal) *decimal.Decimal {
	if hasFallback && current == nil {
		effective := decimal.Zero
		if inherited != nil {
			effective = *inherited
		}
		if effective.Equal(incoming) {
			return nil
		}
	}
	return &incoming
}

// nextLogicalId allocates a logical id across every tenant layer. Composite
// primary keys rule out auto-increment here, so ids come from a MAX+1 scan.
func nextLogicalId[T any](ctx context.Context, tx *gorm.DB) (int, error) {
	var model T
	// id allocation must see all tenants
	scanCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	var maxId int
	err := tx.WithContext(scanCtx).Model(&model).
		Select("COALESCE(MAX(id), 0)").Scan(&maxId).Error
	if err != nil {
		return 0, err
	}
	return maxId + 1, nil
}

func mergedDecimal(base, fallback *decimal.Decimal) decimal.Decimal {
	if base != nil {
		return *base
	}
	if fallback != nil {
		return *fallback
	}
	return decimal.Zero
}
