package feed

import (
	"context"
	"time"

	"hushfeed/pkg/feedapi"
	"hushfeed/pkg/input"
	"hushfeed/pkg/performance"
	"hushfeed/pkg/playback"
	"hushfeed/pkg/preload"
	"hushfeed/pkg/quality"
	"hushfeed/pkg/recovery"
	"hushfeed/pkg/sharedTypes"

	"hushfeed/widgets/banner"
	"hushfeed/widgets/share"
	"hushfeed/widgets/trending"

	"hushfeed/pkg/netquality"

	"github.com/veandco/go-sdl2/sdl"
)

// Phase is the feed's top-level lifecycle state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseRefreshing
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "Loading"
	case PhaseReady:
		return "Ready"
	case PhaseRefreshing:
		return "Refreshing"
	case PhaseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Backend is the slice of the API client the controller uses.
type Backend interface {
	FetchFeedPage(ctx context.Context, cursor string, pageSize int) (feedapi.FeedPage, error)
	FetchTrending(ctx context.Context, windowHours, limit int) ([]sharedTypes.TrendingHashtag, error)
	RecordView(ctx context.Context, id string) (int, error)
	RecordLikeDelta(ctx context.Context, id string, liked bool) (int, error)
	SubmitReport(ctx context.Context, id, reason string) error
}

// MediaStore fetches remote media to local disk.
type MediaStore interface {
	EnsureLocal(ctx context.Context, contentId, uri string) (string, error)
	Evict(contentId string)
}

// HandleOpener turns a local media path into a playback handle.
// Production uses playback.NewAVHandle; tests substitute fakes.
type HandleOpener func(path string) (playback.Handle, error)

type Controller struct {
	backend Backend
	media   MediaStore
	pool    *playback.Pool
	sel     *quality.Selector
	breaker *recovery.Breaker
	coord   *recovery.Coordinator
	profile preload.DeviceProfile
	metrics *performance.FeedMetrics

	opener        HandleOpener
	prepareHandle func(playback.Handle) error // screen hooks the renderer in here

	ctx    context.Context
	cancel context.CancelFunc

	// Feed state, touched only from the Update loop
	phase       Phase
	items       []sharedTypes.ContentItem
	cursor      string
	activeIndex int
	networkTier netquality.Tier
	background  bool
	errorText   string
	itemErrors  map[string]string

	// Out-of-window unit release is debounced so fast scrolling
	// doesn't thrash the decoder pool
	cleanupDelay   time.Duration
	cleanupDue     time.Time
	cleanupPending bool

	trendingTags []sharedTypes.TrendingHashtag

	// Channels receiving async results, drained in Update
	pageCh     chan pageResult
	mediaCh    chan mediaResult
	trendingCh chan trendingResult
	engageCh   chan engageResult
	recoveryCh chan recoveryEvent

	pagePending     bool
	trendingPending bool
	mediaPending    map[string]bool

	lastPerfLog time.Time
}

// Struct used to communicate results of background feed page fetches.
type pageResult struct {
	items      []sharedTypes.ContentItem
	nextCursor string
	refresh    bool
	err        error
}

// Struct used to communicate results of background media downloads.
type mediaResult struct {
	contentId string
	path      string
	elapsed   time.Duration
	err       error
}

// Struct used to communicate results of background trending fetches.
type trendingResult struct {
	tags []sharedTypes.TrendingHashtag
	err  error
}

type engageKind int

const (
	engageView engageKind = iota
	engageLike
	engageReport
)

// Struct used to communicate results of view/like/report calls.
type engageResult struct {
	kind      engageKind
	contentId string
	count     int
	liked     bool
	err       error
}

type recoveryKind int

const (
	recoveryRetry recoveryKind = iota
	recoveryFallback
	recoveryGiveUp
)

// Struct used to route recovery timer callbacks back onto the Update loop.
type recoveryEvent struct {
	kind      recoveryKind
	contentId string
	class     recovery.Class
}

// Overlay identifies which overlay panel, if any, is open on the feed screen.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayTrending
	OverlayShare
)

// FeedScreen wires the controller to SDL rendering and input.
type FeedScreen struct {
	controller *Controller
	renderer   *sdl.Renderer

	overlay       Overlay
	trendingPanel *trending.Widget
	sharePanel    *share.Widget
	banners       *banner.Widget

	shareBaseURL string
	captionsOn   bool

	keys input.KeyPressTracker

	skipper      *playback.FrameSkipper
	lastActiveId string
}
