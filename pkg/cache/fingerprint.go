package cache

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
)

// keyPrefix is prepended to every fingerprint to namespace route-cache
// entries within a shared key-value store.
const keyPrefix = "route:loop:"

// Fingerprint computes the stable cache key for a generation request, per
// spec §6: round(lat*1000) and round(lng*1000) collapse nearby starts onto
// the same key, round(distance*2) buckets distance to the nearest 500m,
// and categories are sorted so request-order never affects the key.
func Fingerprint(start geo.Location, targetDistanceKm float64, mode poi.TransportMode, categories []poi.Category, hiddenGems bool) string {
	sortedCategories := make([]string, len(categories))
	for i, c := range categories {
		sortedCategories[i] = string(c)
	}
	sort.Strings(sortedCategories)

	hiddenGemsFlag := "0"
	if hiddenGems {
		hiddenGemsFlag = "1"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%d|%s|%s|%s",
		int64(math.Round(start.Latitude*1000)),
		int64(math.Round(start.Longitude*1000)),
		int64(math.Round(targetDistanceKm*2)),
		mode,
		strings.Join(sortedCategories, ","),
		hiddenGemsFlag,
	)

	sum := xxhash.Sum64String(b.String())
	return fmt.Sprintf("%s%016x", keyPrefix, sum)
}
