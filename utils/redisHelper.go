package utils

import (
	"os"
	"strconv"
	"time"
)

// GetCacheLifespan reads CACHE_LIFESPAN in hours, 1 hour when unset or invalid.
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

// Mapping:$business_id:$subject_id
func MappingCacheKey(businessId string, subjectId string) string {
	return "Mapping:" + businessId + ":" + subjectId
}

// UnitList:$business_id
func UnitListCacheKey(businessId string) string {
	return "UnitList:" + businessId
}
