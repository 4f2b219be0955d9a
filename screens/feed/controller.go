package feed

import (
	"context"
	"log"
	"time"

	"hushfeed/pkg/netquality"
	"hushfeed/pkg/performance"
	"hushfeed/pkg/playback"
	"hushfeed/pkg/preload"
	"hushfeed/pkg/quality"
	"hushfeed/pkg/recovery"
	"hushfeed/pkg/settings"
	"hushfeed/pkg/sharedTypes"
)

const (
	pageSize        = 20
	cleanupDebounce = 2 * time.Second

	breakerFailureThreshold = 5
	breakerCooldown         = 30 * time.Second

	trendingWindowHours = 24
	trendingLimit       = 10
)

// NewController assembles the feed state machine around its collaborators.
// All mutation happens on the Update loop; goroutines only deliver results
// through the controller's channels.
func NewController(backend Backend, media MediaStore, profile preload.DeviceProfile, cfg settings.Settings) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		backend: backend,
		media:   media,
		pool:    playback.NewPool(),
		sel:     quality.NewSelector(),
		breaker: recovery.NewBreaker(breakerFailureThreshold, breakerCooldown),
		profile: profile,
		metrics: performance.NewFeedMetrics(64),

		opener: func(path string) (playback.Handle, error) {
			return playback.NewAVHandle(path)
		},

		ctx:    ctx,
		cancel: cancel,

		phase:        PhaseLoading,
		networkTier:  netquality.TierMid,
		itemErrors:   make(map[string]string),
		cleanupDelay: cleanupDebounce,

		pageCh:       make(chan pageResult, 2),
		mediaCh:      make(chan mediaResult, 8),
		trendingCh:   make(chan trendingResult, 1),
		engageCh:     make(chan engageResult, 8),
		recoveryCh:   make(chan recoveryEvent, 8),
		mediaPending: make(map[string]bool),
	}

	c.coord = recovery.NewCoordinator(c.breaker, recovery.Callbacks{
		Retry: func(contentId string) {
			c.recoveryCh <- recoveryEvent{kind: recoveryRetry, contentId: contentId}
		},
		Fallback: func(contentId string) {
			c.recoveryCh <- recoveryEvent{kind: recoveryFallback, contentId: contentId}
		},
		GiveUp: func(contentId string, class recovery.Class) {
			c.recoveryCh <- recoveryEvent{kind: recoveryGiveUp, contentId: contentId, class: class}
		},
	})

	c.pool.SetMuted(cfg.StartMuted())
	if cfg.DataSaverEnabled() {
		c.sel.SetMaxTier(netquality.TierLow)
	}

	return c
}

// SetOpener swaps how local media paths become playback handles.
func (c *Controller) SetOpener(opener HandleOpener) {
	c.opener = opener
}

// SetPrepareHandle installs a hook run on every freshly opened handle
// before it is bound, used to attach the renderer.
func (c *Controller) SetPrepareHandle(fn func(playback.Handle) error) {
	c.prepareHandle = fn
}

// Start kicks the initial feed and trending fetches.
func (c *Controller) Start() {
	c.phase = PhaseLoading
	c.fetchPage("", false)
	c.fetchTrending()
}

// Update drains async results and advances timers. Called once per frame.
func (c *Controller) Update() {
	c.drainPages()
	c.drainMedia()
	c.drainRecovery()
	c.drainTrending()
	c.drainEngagement()
	c.runDebouncedCleanup()
	c.logPerformanceMetrics()
}

// Close stops all in-flight work and releases every player.
func (c *Controller) Close() {
	c.cancel()
	c.coord.CancelAll()
	c.pool.ReleaseAll()
}

// --- page lifecycle ---

func (c *Controller) fetchPage(cursor string, refresh bool) {
	if c.pagePending {
		return
	}
	c.pagePending = true

	go func() {
		page, err := c.backend.FetchFeedPage(c.ctx, cursor, pageSize)
		c.pageCh <- pageResult{
			items:      page.Items,
			nextCursor: page.NextCursor,
			refresh:    refresh,
			err:        err,
		}
	}()
}

func (c *Controller) drainPages() {
	select {
	case res := <-c.pageCh:
		c.pagePending = false
		if res.err != nil {
			c.handlePageError(res)
			return
		}

		switch {
		case res.refresh:
			log.Printf("drainPages: refresh delivered %d item(s)", len(res.items))
			c.applyRefresh(res)
		case c.phase == PhaseLoading:
			log.Printf("drainPages: initial page delivered %d item(s)", len(res.items))
			c.items = res.items
			c.cursor = res.nextCursor
			c.activeIndex = 0
			c.phase = PhaseReady
			c.errorText = ""
			c.reconcileNow()
			c.markViewed()
		default:
			log.Printf("drainPages: appended %d item(s)", len(res.items))
			c.items = append(c.items, res.items...)
			c.cursor = res.nextCursor
			c.reconcileNow()
		}
	default:
	}
}

func (c *Controller) handlePageError(res pageResult) {
	log.Printf("drainPages: fetch failed: %v", res.err)
	switch c.phase {
	case PhaseLoading:
		c.phase = PhaseError
		c.errorText = "Couldn't load the feed"
	case PhaseRefreshing:
		// Keep the stale items rather than blanking the screen
		c.phase = PhaseReady
		c.errorText = "Refresh failed"
	default:
		c.errorText = "Couldn't load more confessions"
	}
}

func (c *Controller) applyRefresh(res pageResult) {
	c.coord.CancelAll()
	c.pool.ReleaseAll()
	c.itemErrors = make(map[string]string)

	c.items = res.items
	c.cursor = res.nextCursor
	c.activeIndex = 0
	c.phase = PhaseReady
	c.errorText = ""
	c.reconcileNow()
	c.markViewed()
}

// Refresh re-fetches the feed from the top while keeping the current
// items on screen until the new page lands.
func (c *Controller) Refresh() {
	if c.phase != PhaseReady {
		return
	}
	c.phase = PhaseRefreshing
	c.fetchPage("", true)
}

// Retry recovers from the error phase, or re-kicks the active item's
// load after a per-item give-up. Manual intent closes the breaker.
func (c *Controller) Retry() {
	c.breaker.Reset()

	if c.phase == PhaseError {
		c.phase = PhaseLoading
		c.errorText = ""
		c.fetchPage("", false)
		return
	}

	item, ok := c.ActiveItem()
	if !ok {
		return
	}
	if _, failed := c.itemErrors[item.Id]; failed {
		delete(c.itemErrors, item.Id)
		c.errorText = ""
		c.coord.Cancel(item.Id)
		c.pool.ResetRetry(item.Id)
		c.sel.Forget(item.MediaUri)
		c.loadMedia(item)
	}
}

// --- navigation ---

// Step moves the active item by direction (+1 next, -1 previous),
// reconciling the preload window and debouncing unit release.
func (c *Controller) Step(direction int) {
	if c.phase != PhaseReady && c.phase != PhaseRefreshing {
		return
	}

	next := c.activeIndex + direction
	if next < 0 || next >= len(c.items) {
		return
	}
	c.activeIndex = next

	c.ensureWindow()
	c.pool.SetActive(c.items[next].Id)
	c.markViewed()

	c.cleanupDue = time.Now().Add(c.cleanupDelay)
	c.cleanupPending = true

	c.maybePaginate()
}

// ensureWindow creates units and starts loads for everything inside the
// preload window without releasing anything. Release happens in the
// debounced cleanup pass so rapid swipes don't thrash decoders.
func (c *Controller) ensureWindow() {
	ids := c.itemIds()
	window := c.windowSize()

	// Widen the reconcile window to cover everything already tracked
	effective := window
	tracked := make(map[string]bool)
	for _, id := range c.pool.Tracked() {
		tracked[id] = true
	}
	for i, id := range ids {
		if tracked[id] {
			if d := abs(i - c.activeIndex); d > effective {
				effective = d
			}
		}
	}

	added, _ := c.pool.Reconcile(c.activeIndex, ids, effective)
	for _, id := range added {
		if item, ok := c.itemById(id); ok {
			c.loadMedia(item)
		}
	}
}

// reconcileNow applies the exact preload window immediately (initial
// load, refresh, pagination) and kicks loads for new units.
func (c *Controller) reconcileNow() {
	ids := c.itemIds()
	added, removed := c.pool.Reconcile(c.activeIndex, ids, c.windowSize())
	for _, id := range removed {
		c.coord.Cancel(id)
	}
	for _, id := range added {
		if item, ok := c.itemById(id); ok {
			c.loadMedia(item)
		}
	}
	if len(ids) > 0 && c.pool.ActiveId() == "" {
		c.pool.SetActive(ids[c.activeIndex])
	}
}

func (c *Controller) runDebouncedCleanup() {
	if !c.cleanupPending || time.Now().Before(c.cleanupDue) {
		return
	}
	c.cleanupPending = false

	_, removed := c.pool.Reconcile(c.activeIndex, c.itemIds(), c.windowSize())
	for _, id := range removed {
		c.coord.Cancel(id)
	}
	if len(removed) > 0 {
		log.Printf("runDebouncedCleanup: released %d unit(s)", len(removed))
	}
}

func (c *Controller) maybePaginate() {
	if c.cursor == "" || c.pagePending {
		return
	}
	remaining := len(c.items) - 1 - c.activeIndex
	if remaining <= c.windowSize() {
		log.Printf("maybePaginate: %d item(s) ahead, fetching next page", remaining)
		c.fetchPage(c.cursor, false)
	}
}

// --- media pipeline ---

// loadMedia resolves the source for an item and downloads it in the
// background. The handle is opened and bound when the result lands.
func (c *Controller) loadMedia(item sharedTypes.ContentItem) {
	if c.mediaPending[item.Id] {
		return
	}

	uri := c.sourceFor(item)
	if uri == "" {
		c.itemErrors[item.Id] = "No playable source"
		return
	}

	c.mediaPending[item.Id] = true
	c.pool.MarkLoading(item.Id)

	go func(id, uri string) {
		start := time.Now()
		path, err := c.media.EnsureLocal(c.ctx, id, uri)
		c.mediaCh <- mediaResult{
			contentId: id,
			path:      path,
			elapsed:   time.Since(start),
			err:       err,
		}
	}(item.Id, uri)
}

// sourceFor picks the item's source, honoring an active fallback swap.
func (c *Controller) sourceFor(item sharedTypes.ContentItem) string {
	sel := c.sel.Select(item, c.networkTier)
	if c.coord.UsingFallback(item.Id) {
		if uri, ok := quality.FallbackSource(item, sel.ResolvedUri); ok {
			return uri
		}
	}
	return sel.ResolvedUri
}

func (c *Controller) drainMedia() {
	for {
		select {
		case res := <-c.mediaCh:
			delete(c.mediaPending, res.contentId)
			if res.err != nil {
				c.handleItemError(res.contentId, res.err)
				continue
			}
			c.bindItem(res)
		default:
			return
		}
	}
}

func (c *Controller) bindItem(res mediaResult) {
	if !c.trackedId(res.contentId) {
		// Scrolled out of the window while downloading
		return
	}

	h, err := c.opener(res.path)
	if err != nil {
		c.handleItemError(res.contentId, err)
		return
	}
	if c.prepareHandle != nil {
		if err := c.prepareHandle(h); err != nil {
			h.Release()
			c.handleItemError(res.contentId, err)
			return
		}
	}

	bindStart := time.Now()
	if err := c.pool.Bind(res.contentId, h); err != nil {
		c.handleItemError(res.contentId, err)
		return
	}
	c.metrics.RecordMediaLoad(res.elapsed)
	c.metrics.RecordBind(time.Since(bindStart))

	c.coord.ReportSuccess(res.contentId)
	c.pool.ResetRetry(res.contentId)
	delete(c.itemErrors, res.contentId)
	if res.contentId == c.pool.ActiveId() {
		c.metrics.RecordItemPlayed()
	}
}

// ReportPlaybackError feeds a runtime playback failure (decode errors
// surfaced while rendering) into the recovery pipeline.
func (c *Controller) ReportPlaybackError(contentId string, err error) {
	c.handleItemError(contentId, err)
}

func (c *Controller) handleItemError(contentId string, err error) {
	c.pool.MarkError(contentId, err)
	c.metrics.RecordStall()

	decision := c.coord.ReportError(contentId, err)
	log.Printf("handleItemError: %s class=%s outcome=%s attempt=%d delay=%s err=%v",
		contentId, decision.Class, decision.Outcome, decision.Attempt, decision.Delay, err)
}

func (c *Controller) drainRecovery() {
	for {
		select {
		case ev := <-c.recoveryCh:
			c.applyRecovery(ev)
		default:
			return
		}
	}
}

func (c *Controller) applyRecovery(ev recoveryEvent) {
	item, ok := c.itemById(ev.contentId)
	if !ok || !c.trackedId(ev.contentId) {
		c.coord.Cancel(ev.contentId)
		return
	}

	switch ev.kind {
	case recoveryRetry:
		c.metrics.RecordRetry()
		c.loadMedia(item)
	case recoveryFallback:
		c.metrics.RecordRetry()
		c.sel.Forget(item.MediaUri)
		c.loadMedia(item)
	case recoveryGiveUp:
		log.Printf("applyRecovery: giving up on %s (%s)", ev.contentId, ev.class)
		c.itemErrors[ev.contentId] = errorTextFor(ev.class)
		if ev.contentId == c.pool.ActiveId() {
			c.errorText = c.itemErrors[ev.contentId]
		}
	}
}

func errorTextFor(class recovery.Class) string {
	switch class {
	case recovery.ClassRateLimited:
		return "Slow down, trying again later"
	case recovery.ClassPermissionDenied:
		return "This confession isn't available"
	case recovery.ClassNetwork:
		return "Connection trouble"
	default:
		return "Playback failed"
	}
}

// --- engagement ---

// ToggleLike flips the like state of the active item optimistically and
// reconciles with the server count when the call returns.
func (c *Controller) ToggleLike() {
	item, ok := c.ActiveItem()
	if !ok {
		return
	}

	idx := c.activeIndex
	liked := !c.items[idx].IsLiked
	c.items[idx].IsLiked = liked
	if liked {
		c.items[idx].Likes++
	} else if c.items[idx].Likes > 0 {
		c.items[idx].Likes--
	}

	go func(id string, liked bool) {
		count, err := c.backend.RecordLikeDelta(c.ctx, id, liked)
		c.engageCh <- engageResult{kind: engageLike, contentId: id, count: count, liked: liked, err: err}
	}(item.Id, liked)
}

// Report submits a report for the active item.
func (c *Controller) Report(reason string) {
	item, ok := c.ActiveItem()
	if !ok {
		return
	}
	go func(id string) {
		err := c.backend.SubmitReport(c.ctx, id, reason)
		c.engageCh <- engageResult{kind: engageReport, contentId: id, err: err}
	}(item.Id)
}

func (c *Controller) markViewed() {
	item, ok := c.ActiveItem()
	if !ok {
		return
	}
	go func(id string) {
		count, err := c.backend.RecordView(c.ctx, id)
		c.engageCh <- engageResult{kind: engageView, contentId: id, count: count, err: err}
	}(item.Id)
}

func (c *Controller) drainEngagement() {
	for {
		select {
		case res := <-c.engageCh:
			if res.err != nil {
				// Engagement is fire-and-forget; the next fetch reconciles
				log.Printf("drainEngagement: %v", res.err)
				continue
			}
			switch res.kind {
			case engageView:
				c.setItemViews(res.contentId, res.count)
			case engageLike:
				c.setItemLikes(res.contentId, res.count, res.liked)
			}
		default:
			return
		}
	}
}

func (c *Controller) setItemViews(contentId string, count int) {
	for i := range c.items {
		if c.items[i].Id == contentId && count > 0 {
			c.items[i].Views = count
		}
	}
}

func (c *Controller) setItemLikes(contentId string, count int, liked bool) {
	for i := range c.items {
		if c.items[i].Id == contentId {
			if count >= 0 {
				c.items[i].Likes = count
			}
			c.items[i].IsLiked = liked
		}
	}
}

// --- trending ---

func (c *Controller) fetchTrending() {
	if c.trendingPending {
		return
	}
	c.trendingPending = true
	go func() {
		tags, err := c.backend.FetchTrending(c.ctx, trendingWindowHours, trendingLimit)
		c.trendingCh <- trendingResult{tags: tags, err: err}
	}()
}

func (c *Controller) drainTrending() {
	select {
	case res := <-c.trendingCh:
		c.trendingPending = false
		if res.err != nil {
			log.Printf("drainTrending: %v", res.err)
			return
		}
		c.trendingTags = res.tags
	default:
	}
}

// --- app lifecycle and environment ---

// EnterBackground pauses every unit without tearing any of them down.
func (c *Controller) EnterBackground() {
	if c.background {
		return
	}
	c.background = true
	c.pool.PauseAll()
	log.Printf("EnterBackground: paused all units")
}

// EnterForeground resumes only the active unit.
func (c *Controller) EnterForeground() {
	if !c.background {
		return
	}
	c.background = false
	c.pool.ResumeActive()
	log.Printf("EnterForeground: resumed active unit")
}

// ToggleMute flips the pool-wide mute policy.
func (c *Controller) ToggleMute() {
	c.pool.SetMuted(!c.pool.Muted())
}

// OnNetworkState reacts to connectivity changes: the preload window is
// recomputed and the active item gets a better variant when one is
// affordable at the new tier.
func (c *Controller) OnNetworkState(s netquality.State) {
	tier := s.Tier()
	if tier == c.networkTier {
		return
	}
	old := c.networkTier
	c.networkTier = tier
	log.Printf("OnNetworkState: tier %s -> %s", old, tier)

	c.cleanupDue = time.Now().Add(c.cleanupDelay)
	c.cleanupPending = true

	if tier > old {
		if item, ok := c.ActiveItem(); ok && c.sel.CanUpgrade(item, tier) {
			log.Printf("OnNetworkState: upgrading quality for %s", item.Id)
			c.sel.Forget(item.MediaUri)
			c.loadMedia(item)
		}
	}
}

func (c *Controller) windowSize() int {
	return preload.WindowSize(c.profile, c.networkTier)
}

// --- accessors ---

func (c *Controller) Phase() Phase { return c.phase }

func (c *Controller) Items() []sharedTypes.ContentItem { return c.items }

func (c *Controller) ActiveIndex() int { return c.activeIndex }

// ActiveItem returns the item under the active index.
func (c *Controller) ActiveItem() (sharedTypes.ContentItem, bool) {
	if c.activeIndex < 0 || c.activeIndex >= len(c.items) {
		return sharedTypes.ContentItem{}, false
	}
	return c.items[c.activeIndex], true
}

func (c *Controller) Pool() *playback.Pool { return c.pool }

func (c *Controller) Trending() []sharedTypes.TrendingHashtag { return c.trendingTags }

func (c *Controller) ErrorText() string { return c.errorText }

// ItemError returns the sticky error text for an item that exhausted recovery.
func (c *Controller) ItemError(contentId string) (string, bool) {
	text, ok := c.itemErrors[contentId]
	return text, ok
}

func (c *Controller) NetworkTier() netquality.Tier { return c.networkTier }

func (c *Controller) Muted() bool { return c.pool.Muted() }

func (c *Controller) Background() bool { return c.background }

func (c *Controller) Metrics() *performance.FeedMetrics { return c.metrics }

func (c *Controller) itemIds() []string {
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.Id
	}
	return ids
}

func (c *Controller) itemById(id string) (sharedTypes.ContentItem, bool) {
	for _, item := range c.items {
		if item.Id == id {
			return item, true
		}
	}
	return sharedTypes.ContentItem{}, false
}

func (c *Controller) trackedId(id string) bool {
	_, ok := c.pool.State(id)
	return ok
}

func (c *Controller) logPerformanceMetrics() {
	now := time.Now()
	if now.Sub(c.lastPerfLog) < 10*time.Second {
		return
	}
	c.lastPerfLog = now

	report := c.metrics.GetReport()
	healthStatus := "OK"
	if !report.IsHealthy {
		healthStatus = "DEGRADED"
	}
	log.Printf("Feed[%s]: Load=%.0fms Bind=%.0fms Played=%d Stalls=%d Retries=%d Window=%d Tier=%s Uptime=%ds",
		healthStatus,
		report.AvgMediaLoadMs,
		report.AvgBindMs,
		report.ItemsPlayed,
		report.Stalls,
		report.Retries,
		c.windowSize(),
		c.networkTier,
		report.UptimeSeconds)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
