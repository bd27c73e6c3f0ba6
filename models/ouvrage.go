package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ouvrage is a composite priced bundle: an ordered list of lines, each either
// a quantified article reference or a free-text comment.
type Ouvrage struct {
	ID          int              `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantId    string           `gorm:"primaryKey;size:64" json:"tenant_id"`
	CatalogId   int              `gorm:"index;not null" json:"catalog_id"`
	Designation *string          `gorm:"size:200" json:"designation"`
	Prix        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"prix"`
	UnitId      *int             `json:"unit_id"`
	IsDeleted   *bool            `json:"is_deleted"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o Ouvrage) LogicalId() int      { return o.ID }
func (o Ouvrage) OwnerTenant() string { return o.TenantId }

type LigneOuvrage struct {
	ID          int        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantId    string     `gorm:"primaryKey;size:64" json:"tenant_id"`
	OuvrageId   int        `gorm:"index;not null" json:"ouvrage_id"`
	NoOrdre     *int       `json:"no_ordre"`
	TypeLigne   *LigneType `gorm:"size:20" json:"type_ligne"`
	Commentaire *string    `gorm:"type:text" json:"commentaire"`
	IsDeleted   *bool      `json:"is_deleted"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l LigneOuvrage) LogicalId() int      { return l.ID }
func (l LigneOuvrage) OwnerTenant() string { return l.TenantId }

// LigneOuvrageArticle carries the article reference of an ARTICLE-typed line.
// The article ref names its physical row (id + catalog + tenant); the quantity
// follows the suppression rule like any other field.
type LigneOuvrageArticle struct {
	LigneOuvrageId   int              `gorm:"primaryKey;autoIncrement:false" json:"ligne_ouvrage_id"`
	TenantId         string           `gorm:"primaryKey;size:64" json:"tenant_id"`
	ArticleId        int              `gorm:"not null" json:"article_id"`
	ArticleTenantId  string           `gorm:"size:64" json:"article_tenant_id"`
	ArticleCatalogId int              `json:"article_catalog_id"`
	Quantite         *decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantite"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (la LigneOuvrageArticle) LogicalId() int      { return la.LigneOuvrageId }
func (la LigneOuvrageArticle) OwnerTenant() string { return la.TenantId }

type NewOuvrage struct {
	Id          *int               `json:"id"`
	CatalogId   int                `json:"catalog_id" binding:"required"`
	Designation string             `json:"designation" binding:"required"`
	Prix        decimal.Decimal    `json:"prix"`
	UnitId      int                `json:"unit_id"`
	Lignes      []*NewLigneOuvrage `json:"lignes"`
	FamilyIds   []int              `json:"family_ids"`
}

type NewLigneOuvrage struct {
	Id          *int            `json:"id"`
	NoOrdre     int             `json:"no_ordre"`
	TypeLigne   LigneType       `json:"type_ligne" binding:"required,ligne_type"`
	ArticleId   int             `json:"article_id"`
	Quantite    decimal.Decimal `json:"quantite"`
	Commentaire string          `json:"commentaire"`
}

type MergedOuvrage struct {
	ID          int                   `json:"id"`
	CatalogId   int                   `json:"catalog_id"`
	Designation string                `json:"designation"`
	Prix        decimal.Decimal       `json:"prix"`
	UnitId      int                   `json:"unit_id"`
	Lignes      []*MergedLigneOuvrage `json:"lignes"`
}

type MergedLigneOuvrage struct {
	ID          int             `json:"id"`
	NoOrdre     int             `json:"no_ordre"`
	TypeLigne   LigneType       `json:"type_ligne"`
	Commentaire string          `json:"commentaire"`
	Quantite    decimal.Decimal `json:"quantite"`
	Article     *MergedArticle  `json:"article"`
}

func mergeOuvrage(pair LayerPair[Ouvrage]) *MergedOuvrage {
	base := pair.Base()
	fallback := pair.Fallback()
	return &MergedOuvrage{
		ID:          base.ID,
		CatalogId:   base.CatalogId,
		Designation: utils.DereferencePtr(utils.Coalesce(base.Designation, fallback.Designation)),
		Prix:        mergedDecimal(base.Prix, fallback.Prix),
		UnitId:      utils.DereferencePtr(utils.Coalesce(base.UnitId, fallback.UnitId)),
	}
}

func ouvrageDeleted(pair LayerPair[Ouvrage]) bool {
	return utils.DereferencePtr(pair.Base().IsDeleted)
}

// mergedLignes merges the lines of an ouvrage, resolving the referenced
// article of each ARTICLE line through the full article merge path.
func mergedLignes(ctx context.Context, tenantId string, ouvrageId int) ([]*MergedLigneOuvrage, error) {
	pairs, err := fetchLayerPairsWhere[LigneOuvrage](ctx, tenantId, "ouvrage_id = ?", ouvrageId)
	if err != nil {
		return nil, err
	}

	lignes := make([]*MergedLigneOuvrage, 0, len(pairs))
	for _, id := range utils.SortedKeys(pairs) {
		pair := pairs[id]
		base := pair.Base()
		fallback := pair.Fallback()
		if utils.DereferencePtr(base.IsDeleted) {
			continue
		}
		ligne := &MergedLigneOuvrage{
			ID:          base.ID,
			NoOrdre:     utils.DereferencePtr(utils.Coalesce(base.NoOrdre, fallback.NoOrdre)),
			TypeLigne:   utils.DereferencePtr(utils.Coalesce(base.TypeLigne, fallback.TypeLigne)),
			Commentaire: utils.DereferencePtr(utils.Coalesce(base.Commentaire, fallback.Commentaire)),
		}

		if ligne.TypeLigne == LigneTypeArticle {
			refPairs, err := fetchLayerPairsWhere[LigneOuvrageArticle](ctx, tenantId, "ligne_ouvrage_id = ?", id)
			if err != nil {
				return nil, err
			}
			if refPair, ok := refPairs[id]; ok {
				refBase := refPair.Base()
				refFallback := refPair.Fallback()
				ligne.Quantite = mergedDecimal(refBase.Quantite, refFallback.Quantite)
				article, err := GetArticle(ctx, refBase.ArticleId)
				if err != nil {
					if !errors.Is(err, utils.ErrorRecordNotFound) {
						return nil, err
					}
					// referenced article hidden for this tenant; keep the line bare
				} else {
					ligne.Article = article
				}
			}
		}
		lignes = append(lignes, ligne)
	}
	sort.SliceStable(lignes, func(i, j int) bool { return lignes[i].NoOrdre < lignes[j].NoOrdre })
	return lignes, nil
}

func GetOuvrage(ctx context.Context, id int) (*MergedOuvrage, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Ouvrage](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	if !pair.Exists() || ouvrageDeleted(pair) {
		return nil, utils.NotFoundf("ouvrage %d", id)
	}
	merged := mergeOuvrage(pair)
	merged.Lignes, err = mergedLignes(ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// GetOuvrages lists the merged ouvrages of a catalog (lines attached), sorted
// by designation.
func GetOuvrages(ctx context.Context, catalogId int) ([]*MergedOuvrage, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	pairs, err := fetchLayerPairsWhere[Ouvrage](ctx, tenantId, "catalog_id = ?", catalogId)
	if err != nil {
		return nil, err
	}
	results := make([]*MergedOuvrage, 0, len(pairs))
	for _, id := range utils.SortedKeys(pairs) {
		pair := pairs[id]
		if ouvrageDeleted(*pair) {
			continue
		}
		merged := mergeOuvrage(*pair)
		merged.Lignes, err = mergedLignes(ctx, tenantId, id)
		if err != nil {
			return nil, err
		}
		results = append(results, merged)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Designation < results[j].Designation })
	return results, nil
}

func GetOuvragesByFamily(ctx context.Context, familyId int) ([]*MergedOuvrage, error) {
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

	ids, err := linkedOuvrageIds(ctx, tenantId, familyId)
	if err != nil {
		return nil, err
	}
	results := make([]*MergedOuvrage, 0, len(ids))
	for _, id := range ids {
		ouvrage, err := GetOuvrage(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, ouvrage)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Designation < results[j].Designation })
	return results, nil
}

// SaveOuvrage writes the ouvrage, reconciles all of its lines and syncs the
// family links inside one transaction. The whole cascade runs under a
// deadline so a deep line fan-out cannot hold a connection forever.
func SaveOuvrage(ctx context.Context, input *NewOuvrage) (*MergedOuvrage, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, utils.BadRequestf("tenant id is required")
	}

	timeout := time.Duration(config.IntFromEnv("OUVRAGE_SAVE_TIMEOUT_SECONDS", 30)) * time.Second
	saveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db := config.GetDB()
	tx := db.WithContext(saveCtx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	id, err := saveOuvrageTx(saveCtx, tx, tenantId, input)
	if err != nil {
		tx.Rollback()
		if utils.IsDomainError(err) {
			return nil, err
		}
		config.LogError(config.GetLogger(), "models", "SaveOuvrage", "transaction", input, err)
		return nil, fmt.Errorf("save ouvrage: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("save ouvrage: %w", err)
	}
	return GetOuvrage(ctx, id)
}

func saveOuvrageTx(ctx context.Context, tx *gorm.DB, tenantId string, input *NewOuvrage) (int, error) {
	catalogPair, err := fetchLayerPairTx[Catalog](ctx, tx, tenantId, input.CatalogId)
	if err != nil {
		return 0, err
	}
	if !catalogPair.Exists() || catalogDeleted(catalogPair) {
		return 0, utils.NotFoundf("catalog %d", input.CatalogId)
	}
	if input.UnitId > 0 {
		if err := utils.ValidateResourceId[Unit](ctx, input.UnitId); err != nil {
			return 0, utils.NotFoundf("unit %d", input.UnitId)
		}
	}
	for _, ligne := range input.Lignes {
		if !ligne.TypeLigne.Valid() {
			return 0, utils.BadRequestf("invalid line type %q", ligne.TypeLigne)
		}
		switch ligne.TypeLigne {
		case LigneTypeCommentaire:
			if strings.TrimSpace(ligne.Commentaire) == "" {
				return 0, utils.BadRequestf("comment line requires a non-empty comment")
			}
		case LigneTypeArticle:
			if ligne.ArticleId <= 0 {
				return 0, utils.BadRequestf("article line requires an article reference")
			}
		}
	}

	var row Ouvrage
	hasFallback := false
	var fallback *Ouvrage

	if input.Id != nil {
		pair, err := fetchLayerPairTx[Ouvrage](ctx, tx, tenantId, *input.Id)
		if err != nil {
			return 0, err
		}
		if !pair.Exists() {
			return 0, utils.NotFoundf("ouvrage %d", *input.Id)
		}
		fallback = pair.Baseline
		hasFallback = fallback != nil && tenantId != BaselineTenant
		if pair.Overlay != nil {
			row = *pair.Overlay
		} else {
			row = Ouvrage{ID: fallback.ID, TenantId: tenantId, CatalogId: fallback.CatalogId}
		}
	} else {
		id, err := nextLogicalId[Ouvrage](ctx, tx)
		if err != nil {
			return 0, err
		}
		row = Ouvrage{ID: id, TenantId: tenantId, CatalogId: input.CatalogId}
	}

	var count int64
	err = tx.WithContext(ctx).Model(&Ouvrage{}).
		Where("designation = ? AND catalog_id = ? AND tenant_id = ? AND id <> ? AND (is_deleted IS NULL OR is_deleted = ?)",
			input.Designation, row.CatalogId, tenantId, row.ID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, utils.Conflictf("ouvrage designation %q already exists", input.Designation)
	}

	var fb Ouvrage
	if hasFallback {
		fb = *fallback
	}
	row.Designation = layerValue(row.Designation, input.Designation, hasFallback, fb.Designation)
	row.Prix = layerDecimal(row.Prix, input.Prix, hasFallback, fb.Prix)
	row.UnitId = layerValue(row.UnitId, input.UnitId, hasFallback, fb.UnitId)
	row.IsDeleted = nil

	// lines reference the ouvrage by id, persist it first
	if err := tx.Save(&row).Error; err != nil {
		return 0, err
	}

	if err := reconcileLignes(ctx, tx, tenantId, row.ID, input.Lignes); err != nil {
		return 0, err
	}

	if err := syncFamilyOuvrages(ctx, tx, tenantId, row.ID, row.TenantId, input.FamilyIds); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// reconcileLignes partitions the incoming lines against the existing line
// groups: no id = add, matching id = layered update, existing group with no
// incoming line = tombstone.
func reconcileLignes(ctx context.Context, tx *gorm.DB, tenantId string, ouvrageId int, lignes []*NewLigneOuvrage) error {
	existing, err := fetchLayerPairsWhereTx[LigneOuvrage](ctx, tx, tenantId, "ouvrage_id = ?", ouvrageId)
	if err != nil {
		return err
	}

	seen := make(map[int]bool, len(lignes))
	for _, in := range lignes {
		if in.Id == nil {
			if err := addLigne(ctx, tx, tenantId, ouvrageId, in); err != nil {
				return err
			}
			continue
		}
		pair, ok := existing[*in.Id]
		if !ok {
			return utils.NotFoundf("ligne %d of ouvrage %d", *in.Id, ouvrageId)
		}
		seen[*in.Id] = true
		if err := updateLigne(ctx, tx, tenantId, ouvrageId, *pair, in); err != nil {
			return err
		}
	}

	// implicit delete: line groups the caller no longer names get tombstoned
	for id, pair := range existing {
		if seen[id] {
			continue
		}
		if utils.DereferencePtr(pair.Base().IsDeleted) {
			continue
		}
		if pair.Overlay != nil {
			pair.Overlay.IsDeleted = utils.NewTrue()
			if err := tx.Save(pair.Overlay).Error; err != nil {
				return err
			}
			continue
		}
		tombstone := LigneOuvrage{
			ID:        pair.Baseline.ID,
			TenantId:  tenantId,
			OuvrageId: pair.Baseline.OuvrageId,
			IsDeleted: utils.NewTrue(),
		}
		if err := tx.Create(&tombstone).Error; err != nil {
			return err
		}
	}
	return nil
}

func addLigne(ctx context.Context, tx *gorm.DB, tenantId string, ouvrageId int, in *NewLigneOuvrage) error {
	id, err := nextLogicalId[LigneOuvrage](ctx, tx)
	if err != nil {
		return err
	}
	row := LigneOuvrage{
		ID:        id,
		TenantId:  tenantId,
		OuvrageId: ouvrageId,
		NoOrdre:   utils.Ptr(in.NoOrdre),
		TypeLigne: utils.Ptr(in.TypeLigne),
	}
	if in.TypeLigne == LigneTypeCommentaire {
		row.Commentaire = utils.Ptr(in.Commentaire)
	}
	if err := tx.Create(&row).Error; err != nil {
		return err
	}
	if in.TypeLigne == LigneTypeArticle {
		return saveLigneArticleRef(ctx, tx, tenantId, id, LayerPair[LigneOuvrageArticle]{}, in)
	}
	return nil
}

func updateLigne(ctx context.Context, tx *gorm.DB, tenantId string, ouvrageId int, pair LayerPair[LigneOuvrage], in *NewLigneOuvrage) error {
	var row LigneOuvrage
	fallback := pair.Baseline
	hasFallback := fallback != nil && tenantId != BaselineTenant
	if pair.Overlay != nil {
		row = *pair.Overlay
	} else {
		row = LigneOuvrage{ID: fallback.ID, TenantId: tenantId, OuvrageId: ouvrageId}
	}

	var fb LigneOuvrage
	if hasFallback {
		fb = *fallback
	}
	row.NoOrdre = layerValue(row.NoOrdre, in.NoOrdre, hasFallback, fb.NoOrdre)
	row.TypeLigne = layerValue(row.TypeLigne, in.TypeLigne, hasFallback, fb.TypeLigne)
	if in.TypeLigne == LigneTypeCommentaire {
		row.Commentaire = layerValue(row.Commentaire, in.Commentaire, hasFallback, fb.Commentaire)
	}
	// naming a tombstoned line in the DTO revives it
	row.IsDeleted = nil
	if err := tx.Save(&row).Error; err != nil {
		return err
	}

	if in.TypeLigne == LigneTypeArticle {
		refPairs, err := fetchLayerPairsWhereTx[LigneOuvrageArticle](ctx, tx, tenantId, "ligne_ouvrage_id = ?", row.ID)
		if err != nil {
			return err
		}
		refPair := LayerPair[LigneOuvrageArticle]{}
		if p, ok := refPairs[row.ID]; ok {
			refPair = *p
		}
		return saveLigneArticleRef(ctx, tx, tenantId, row.ID, refPair, in)
	}
	return nil
}

// saveLigneArticleRef attaches the physical article version that exists for
// this tenant and applies the suppression rule to the quantity.
func saveLigneArticleRef(ctx context.Context, tx *gorm.DB, tenantId string, ligneId int, refPair LayerPair[LigneOuvrageArticle], in *NewLigneOuvrage) error {
	articlePair, err := fetchLayerPairTx[Article](ctx, tx, tenantId, in.ArticleId)
	if err != nil {
		return err
	}
	if !articlePair.Exists() || articleDeleted(articlePair) {
		return utils.NotFoundf("article %d", in.ArticleId)
	}
	attach := articlePair.Base()

	var row LigneOuvrageArticle
	fallback := refPair.Baseline
	hasFallback := fallback != nil && tenantId != BaselineTenant
	creating := false
	if refPair.Overlay != nil {
		row = *refPair.Overlay
	} else {
		row = LigneOuvrageArticle{LigneOuvrageId: ligneId, TenantId: tenantId}
		creating = true
	}

	var fb LigneOuvrageArticle
	if hasFallback {
		fb = *fallback
	}
	row.ArticleId = in.ArticleId
	row.ArticleTenantId = attach.TenantId
	row.ArticleCatalogId = attach.CatalogId
	row.Quantite = layerDecimal(row.Quantite, in.Quantite, hasFallback, fb.Quantite)

	if creating {
		return tx.Create(&row).Error
	}
	return tx.Save(&row).Error
}

// DeleteOuvrage tombstones an ouvrage for the requesting tenant. Its lines
// stay in place; they are invisible while the parent is hidden.
func DeleteOuvrage(ctx context.Context, id int) error {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return utils.BadRequestf("tenant id is required")
	}

	pair, err := fetchLayerPair[Ouvrage](ctx, tenantId, id)
	if err != nil {
		return err
	}
	if !pair.Exists() || ouvrageDeleted(pair) {
		return utils.NotFoundf("ouvrage %d", id)
	}

	db := config.GetDB()
	if pair.Overlay != nil {
		pair.Overlay.IsDeleted = utils.NewTrue()
		return db.WithContext(ctx).Save(pair.Overlay).Error
	}
	tombstone := Ouvrage{
		ID:        pair.Baseline.ID,
		TenantId:  tenantId,
		CatalogId: pair.Baseline.CatalogId,
		IsDeleted: utils.NewTrue(),
	}
	return db.WithContext(ctx).Create(&tombstone).Error
}
