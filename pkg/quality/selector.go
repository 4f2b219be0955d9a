package quality

import (
	"log"
	"sync"
	"time"

	"hushfeed/pkg/netquality"
	"hushfeed/pkg/sharedTypes"
)

// Nominal bitrates (kbps) assumed when the backend omits variant bitrates.
var nominalBitrate = map[string]int{
	"240p":  400,
	"360p":  700,
	"480p":  1200,
	"720p":  2500,
	"1080p": 4500,
}

// Sustainable bitrate budget (kbps) per network tier.
var tierBudget = map[netquality.Tier]int{
	netquality.TierOffline: 0,
	netquality.TierLow:     700,
	netquality.TierMid:     1500,
	netquality.TierHigh:    5000,
}

// Selection is the cached outcome of picking a variant for one source URI.
type Selection struct {
	SourceKey   string
	Quality     string
	ResolvedUri string
	BitrateKbps int
	Tier        netquality.Tier
	Timestamp   time.Time
}

// Selector picks a media variant per item based on the network tier and
// remembers the choice per source URI. One cache entry per URI, overwritten
// on re-selection, so the cache never grows past the number of distinct
// sources. Construct one per feed screen; never a package global.
type Selector struct {
	mu      sync.Mutex
	cache   map[string]Selection
	maxTier netquality.Tier // data-saver cap
}

// NewSelector creates a selector with no tier cap.
func NewSelector() *Selector {
	return &Selector{
		cache:   make(map[string]Selection),
		maxTier: netquality.TierHigh,
	}
}

// SetMaxTier caps the effective network tier. Used by the data-saver
// setting to keep cellular users on small variants.
func (s *Selector) SetMaxTier(t netquality.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTier = t
}

// Select resolves the source URI to play for an item at the given network
// tier. Deterministic for identical (item, tier, variants) inputs: the
// highest-bitrate variant within the tier budget wins, falling back to the
// lowest variant when none qualify and to the original media URI when the
// item carries no variant list.
func (s *Selector) Select(item sharedTypes.ContentItem, tier netquality.Tier) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tier > s.maxTier {
		tier = s.maxTier
	}

	sel := choose(item, tier)
	sel.Timestamp = time.Now()
	s.cache[sel.SourceKey] = sel
	return sel
}

// Cached returns the remembered selection for a source URI, if any.
func (s *Selector) Cached(sourceKey string) (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.cache[sourceKey]
	return sel, ok
}

// CanUpgrade reports whether re-selecting the given source at the current
// tier would produce a strictly better variant. True only when the tier has
// strictly improved since the cached choice and a higher-quality variant
// exists that is not already selected.
func (s *Selector) CanUpgrade(item sharedTypes.ContentItem, tier netquality.Tier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tier > s.maxTier {
		tier = s.maxTier
	}

	cached, ok := s.cache[item.MediaUri]
	if !ok || tier <= cached.Tier {
		return false
	}

	next := choose(item, tier)
	return next.BitrateKbps > cached.BitrateKbps
}

// Forget drops the cached selection for a source URI. Called when an item
// is evicted from the in-memory feed.
func (s *Selector) Forget(sourceKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, sourceKey)
}

// FallbackSource returns the alternate source to try after the chosen one
// fails to decode or load: the item's lowest-bitrate variant, or the
// original media URI when that variant is what already failed (or no
// variants exist).
func FallbackSource(item sharedTypes.ContentItem, failedUri string) (string, bool) {
	lowest, ok := lowestVariant(item.Variants)
	if ok && lowest.Uri != failedUri {
		return lowest.Uri, true
	}
	if item.MediaUri != failedUri {
		return item.MediaUri, true
	}
	return "", false
}

func choose(item sharedTypes.ContentItem, tier netquality.Tier) Selection {
	if len(item.Variants) == 0 {
		return Selection{
			SourceKey:   item.MediaUri,
			Quality:     "source",
			ResolvedUri: item.MediaUri,
			Tier:        tier,
		}
	}

	budget := tierBudget[tier]
	var best *sharedTypes.MediaVariant
	bestRate := -1
	for i := range item.Variants {
		v := &item.Variants[i]
		rate := variantBitrate(*v)
		if rate <= budget && rate > bestRate {
			best = v
			bestRate = rate
		}
	}

	if best == nil {
		lowest, _ := lowestVariant(item.Variants)
		log.Printf("choose: no variant of %s fits tier %s, using lowest (%s)",
			item.Id, tier, lowest.Quality)
		best = &lowest
		bestRate = variantBitrate(lowest)
	}

	return Selection{
		SourceKey:   item.MediaUri,
		Quality:     best.Quality,
		ResolvedUri: best.Uri,
		BitrateKbps: bestRate,
		Tier:        tier,
	}
}

func lowestVariant(variants []sharedTypes.MediaVariant) (sharedTypes.MediaVariant, bool) {
	if len(variants) == 0 {
		return sharedTypes.MediaVariant{}, false
	}
	lowest := variants[0]
	for _, v := range variants[1:] {
		if variantBitrate(v) < variantBitrate(lowest) {
			lowest = v
		}
	}
	return lowest, true
}

func variantBitrate(v sharedTypes.MediaVariant) int {
	if v.BitrateKbps > 0 {
		return v.BitrateKbps
	}
	if rate, ok := nominalBitrate[v.Quality]; ok {
		return rate
	}
	return 1200 // mid-rung assumption for unknown labels
}
