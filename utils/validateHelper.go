package utils

import (
	"context"

	"bitbucket.org/batisoft/catalog_backend/config"
)

// count records matching condition (caller includes any tenant scoping in the condition)
func ResourceCountWhere[T any](ctx context.Context, condition string, values ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where(condition, values...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// check if id exists for any of the given tenants, return RecordNotFound error
func ValidateLayeredResourceId[T any](ctx context.Context, id int, tenantIds []string) error {
	count, err := ResourceCountWhere[T](ctx, "id = ? AND tenant_id IN ?", id, tenantIds)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// check if a global reference id exists (units, natures)
func ValidateResourceId[T any](ctx context.Context, id int) error {
	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}
