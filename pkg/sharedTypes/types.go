package sharedTypes

// MediaVariant is one encoded rendition of a confession video. BitrateKbps
// may be zero when the backend omits it; consumers fall back to a nominal
// bitrate derived from the quality label.
type MediaVariant struct {
	Quality     string `json:"quality"` // "240p", "360p", "480p", "720p", "1080p"
	Uri         string `json:"uri"`
	BitrateKbps int    `json:"bitrateKbps,omitempty"`
}

// ContentItem is a single confession in the feed. Likes and IsLiked are the
// only fields mutated after creation (optimistic updates from user
// interaction); everything else is immutable once loaded.
type ContentItem struct {
	Id            string         `json:"id"`
	MediaUri      string         `json:"mediaUri"`
	DurationSec   float64        `json:"duration,omitempty"`
	Variants      []MediaVariant `json:"variants,omitempty"`
	Likes         int            `json:"likes"`
	Views         int            `json:"views"`
	IsLiked       bool           `json:"isLiked"`
	Transcription string         `json:"transcription,omitempty"`
	Hashtags      []string       `json:"hashtags,omitempty"`
}

// TrendingHashtag is one entry in the trending overlay.
type TrendingHashtag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
