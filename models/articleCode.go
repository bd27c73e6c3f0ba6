package models

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"bitbucket.org/batisoft/catalog_backend/config"
	"bitbucket.org/batisoft/catalog_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

const articleCodePrefix = "ART-"

var articleCodePattern = regexp.MustCompile(`^ART-(\d{6})$`)

// NextArticleCode allocates the next free tenant-scoped article code, format
// ART-NNNNNN. When redis is configured, allocation is serialized per tenant
// with a redislock so concurrent saves do not hand out the same candidate.
func NextArticleCode(ctx context.Context) (string, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return "", utils.BadRequestf("tenant id is required")
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "article-code:"+tenantId, 5*time.Second, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
		})
		if err == nil {
			defer lock.Release(ctx)
		}
	}

	return nextArticleCodeTx(ctx, config.GetDB(), tenantId)
}

func nextArticleCodeTx(ctx context.Context, tx *gorm.DB, tenantId string) (string, error) {
	var lastCode string
	err := tx.WithContext(ctx).Model(&Article{}).
		Where("tenant_id = ? AND code LIKE ? AND LENGTH(code) = 10", tenantId, articleCodePrefix+"%").
		Order("code DESC").
		Limit(1).
		Select("code").
		Scan(&lastCode).Error
	if err != nil {
		return "", err
	}

	candidate := 1
	if m := articleCodePattern.FindStringSubmatch(lastCode); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			candidate = n + 1
		}
	}

	// linear probing until a free code is found
	for {
		code := fmt.Sprintf("%s%06d", articleCodePrefix, candidate)
		var count int64
		err := tx.WithContext(ctx).Model(&Article{}).
			Where("tenant_id = ? AND code = ?", tenantId, code).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
		candidate++
	}
}
