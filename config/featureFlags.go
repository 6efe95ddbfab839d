package config

import (
	"os"
	"strings"
)

const defaultBomMaxDepth = 64

// BomMaxDepth bounds composite nesting during one resolution. Deeper levels
// contribute zero and are reported as depth_exceeded diagnostics.
//
// Set via env:
// - BOM_MAX_DEPTH=64
func BomMaxDepth() int {
	n := intFromEnv("BOM_MAX_DEPTH", defaultBomMaxDepth)
	if n <= 0 {
		return defaultBomMaxDepth
	}
	return n
}

// BomMappingCacheEnabled turns on the redis mapping cache in front of the catalog store.
//
// Set via env:
// - BOM_MAPPING_CACHE=true
func BomMappingCacheEnabled() bool {
	return envBool("BOM_MAPPING_CACHE")
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// BomDepletionTopic is where stock depletion requests for composite sales go.
func BomDepletionTopic() string {
	return envString("BOM_DEPLETION_TOPIC", "bom-stock-depletion")
}

// BomSaleSubscription is the subscription the sale worker pulls composite sales from.
func BomSaleSubscription() string {
	return envString("BOM_SALE_SUBSCRIPTION", "bom-composite-sale")
}

// BomSaleTopic is the topic BomSaleSubscription is attached to.
func BomSaleTopic() string {
	return envString("BOM_SALE_TOPIC", "bom-composite-sale")
}

func envString(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
