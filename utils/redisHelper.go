package utils

import (
	"os"
	"strconv"
	"time"

	"bitbucket.org/batisoft/catalog_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* Redis list cache for reference data (units, natures).
   All helpers are no-ops when redis is not configured. */

func listKey[T any]() string {
	return GetTypeName[T]() + ":list"
}

// store list, objs should be a slice of pointers
func StoreRedisList[T any](objs []*T) error {
	return config.SetRedisObject(listKey[T](), &objs, GetCacheLifespan())
}

// retrieve list, returns nil when not cached
func RetrieveRedisList[T any]() ([]*T, error) {
	var objs []*T
	exists, err := config.GetRedisObject(listKey[T](), &objs)
	if err != nil || !exists {
		return nil, err
	}
	return objs, nil
}

func ClearRedisList[T any]() error {
	return config.RemoveRedisKey(listKey[T]())
}
