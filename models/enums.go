package models

import "bitbucket.org/batisoft/catalog_backend/config"

// BaselineTenant owns the shared catalog content visible to every tenant.
const BaselineTenant = config.BaselineTenant

type LigneType string

const (
	LigneTypeArticle     LigneType = "ARTICLE"
	LigneTypeCommentaire LigneType = "COMMENTAIRE"
)

func (t LigneType) Valid() bool {
	return t == LigneTypeArticle || t == LigneTypeCommentaire
}
