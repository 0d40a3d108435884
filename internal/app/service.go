// Package service owns the host connection state: the resolved picker
// slots, the installed scoreboard and the static badges, and renders them
// through the export pipeline.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/aol-b30/internal/adapters/export"
	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/adapters/mq/queue"
	"github.com/okian/aol-b30/internal/adapters/mq/worker"
	"github.com/okian/aol-b30/internal/app/picker"
	"github.com/okian/aol-b30/internal/domain/dedupe"
	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/pkg/logger"
	"github.com/okian/aol-b30/pkg/metrics"
)

// Default service configuration.
const (
	DefaultBrandAsset = "img/title.png"
	DefaultFontAsset  = "fonts/exo.ttf"

	defaultScale       = 2
	defaultQueueSize   = 16
	shutdownTimeout    = 5 * time.Second
	minScale, maxScale = 1, 4
)

// ErrQueueFull is returned when a scoreboard push cannot be queued.
var ErrQueueFull = errors.New("scoreboard queue full")

// Service implements the API dependencies for the scoreboard renderer.
type Service struct {
	api      host.API
	arena    *resource.Arena
	pipeline *export.Pipeline
	pickers  *picker.Set

	queue      *queue.InMemoryQueue
	dispatcher *worker.Dispatcher
	deduper    dedupe.Deduper
	duplicates int

	// Configuration
	brandAsset   string
	fontAsset    string
	defaultScale float64
	queueSize    int
	blobPrefix   string
	concurrency  int
	dedupeWindow int
	clock        func() time.Time

	// Startup resources, immutable once prepared is closed.
	prepared   chan struct{}
	prepareErr error
	static     *resource.Scope
	badges     map[model.Difficulty]*resource.Resource
	grades     map[string]*resource.Resource
	brand      *resource.Resource
	font       *resource.Resource

	mu         sync.RWMutex
	board      *model.ScoreboardData
	boardScope *resource.Scope
	installs   int
	started    bool
	cancel     context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBrandAsset sets the asset path of the brand mark.
func WithBrandAsset(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.brandAsset = path
		}
	}
}

// WithFontAsset sets the asset path of the Exo font.
func WithFontAsset(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.fontAsset = path
		}
	}
}

// WithDefaultScale sets the scale used when a request names none.
func WithDefaultScale(scale float64) Option {
	return func(s *Service) {
		if scale >= minScale && scale <= maxScale {
			s.defaultScale = scale
		}
	}
}

// WithQueueSize sets how many scoreboard pushes may wait.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBlobPrefix sets the URL path ephemeral handles are served under.
func WithBlobPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.blobPrefix = prefix
		}
	}
}

// WithDecodeConcurrency bounds concurrent image decodes.
func WithDecodeConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDedupeWindow sets how many recent pushes are compared against a new
// one.
func WithDedupeWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeWindow = n
		}
	}
}

// WithClock sets the clock used to name exports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// New constructs a Service bound to api.
func New(api host.API, opts ...Option) *Service {
	s := &Service{
		api:          api,
		brandAsset:   DefaultBrandAsset,
		fontAsset:    DefaultFontAsset,
		defaultScale: defaultScale,
		queueSize:    defaultQueueSize,
		dedupeWindow: 1,
		clock:        time.Now,
		prepared:     make(chan struct{}),
		logger:       logger.OrNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("service")

	s.arena = resource.NewArena(
		resource.WithPrefix(s.blobPrefix),
		resource.WithConcurrency(s.concurrency),
		resource.WithLogger(s.logger),
	)
	s.pipeline = export.NewPipeline(resource.NewResolver(s.arena), api,
		export.WithClock(s.clock),
		export.WithLogger(s.logger.Named("export")),
	)
	s.pickers = picker.NewSet(api, s.arena, picker.WithLogger(s.logger))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeWindow))
	return s
}

// Start launches the dispatcher and loads startup resources in the
// background. Ready is closed when loading has finished.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.dispatcher = worker.NewDispatcher(s.queue, s, worker.WithLogger(s.logger))
	s.dispatcher.Start(runCtx)

	go s.prepare(runCtx)

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Int("queueSize", s.queueSize),
		logger.Float64("defaultScale", s.defaultScale),
	)
	return nil
}

// Ready is closed once startup resources are loaded or failed to load.
func (s *Service) Ready() <-chan struct{} { return s.prepared }

func (s *Service) prepare(ctx context.Context) {
	defer close(s.prepared)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loadStatic(gctx) })
	for _, p := range s.pickers.All() {
		g.Go(func() error {
			if _, err := p.Fetch(gctx); err != nil {
				s.logger.Warn(gctx, "picker slot unavailable",
					logger.String("slot", string(p.Slot())),
					logger.Error(err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.prepareErr = err
		s.logger.Error(ctx, "startup resources failed", logger.Error(err))
		return
	}
	s.logger.Info(ctx, "startup resources ready")
}

func (s *Service) loadStatic(ctx context.Context) error {
	paths := make([]string, 0, len(model.Difficulties)+2)
	for _, d := range model.Difficulties {
		paths = append(paths, d.BadgePath())
	}
	paths = append(paths, s.brandAsset, s.fontAsset)

	urls, err := s.api.ResolveAssets(ctx, paths)
	if err != nil {
		return fmt.Errorf("resolve assets: %w", err)
	}
	gradeURLs, err := s.api.ResolveGradeImages(ctx, model.Grades)
	if err != nil {
		return fmt.Errorf("resolve grades: %w", err)
	}
	files, err := s.api.GetImages(ctx, append(urls, gradeURLs...))
	if err != nil {
		return fmt.Errorf("load static images: %w", err)
	}
	if len(files) != len(paths)+len(model.Grades) {
		return fmt.Errorf("static images: got %d files: %w", len(files), errs.ErrResourceNotFound)
	}

	scope := s.arena.Scope()
	fontIdx := len(model.Difficulties) + 1
	images := append(append([]resource.File{}, files[:fontIdx]...), files[fontIdx+1:]...)
	detailed, err := scope.DetailAll(ctx, images)
	if err != nil {
		scope.Release()
		return err
	}
	font, err := scope.Font(files[fontIdx])
	if err != nil {
		scope.Release()
		return err
	}

	s.badges = make(map[model.Difficulty]*resource.Resource, len(model.Difficulties))
	for i, d := range model.Difficulties {
		s.badges[d] = detailed[i]
	}
	s.brand = detailed[len(model.Difficulties)]
	s.grades = make(map[string]*resource.Resource, len(model.Grades))
	for i, g := range model.Grades {
		s.grades[g] = detailed[len(model.Difficulties)+1+i]
	}
	s.font = font
	s.static = scope
	return nil
}

// Enqueue queues a scoreboard push for installation.
func (s *Service) Enqueue(ctx context.Context, resp host.Best30Response) error {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return fmt.Errorf("enqueue: %w", errs.ErrNotReady)
	}
	key, err := pushKey(resp)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if s.deduper.SeenAndRecord(ctx, key) {
		s.mu.Lock()
		s.duplicates++
		s.mu.Unlock()
		s.logger.Info(ctx, "duplicate scoreboard push skipped", logger.String("key", key))
		return nil
	}
	if !q.Enqueue(ctx, queue.NewNotification(resp)) {
		s.deduper.Unrecord(ctx, key)
		return ErrQueueFull
	}
	return nil
}

func pushKey(resp host.Best30Response) (string, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return dedupe.Key(payload), nil
}

// forget lets a push that failed to install be retried.
func (s *Service) forget(ctx context.Context, resp host.Best30Response) {
	if key, err := pushKey(resp); err == nil {
		s.deduper.Unrecord(ctx, key)
	}
}

// Install replaces the scoreboard. The current one is cleared first; if the
// new one cannot be built the scoreboard stays empty.
func (s *Service) Install(ctx context.Context, resp host.Best30Response) (err error) {
	defer func() {
		metrics.RecordScoreboardInstall(err)
		if err != nil {
			s.forget(ctx, resp)
		}
	}()

	s.mu.Lock()
	old := s.boardScope
	s.board, s.boardScope = nil, nil
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}

	select {
	case <-s.prepared:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.prepareErr != nil {
		return fmt.Errorf("install: %w: %w", errs.ErrNotReady, s.prepareErr)
	}

	scope := s.arena.Scope()
	board, err := s.build(ctx, scope, resp)
	if err != nil {
		scope.Release()
		return fmt.Errorf("install: %w", err)
	}

	s.mu.Lock()
	s.board, s.boardScope = &board, scope
	s.installs++
	s.mu.Unlock()
	s.logger.Info(ctx, "scoreboard installed",
		logger.String("player", board.Player),
		logger.Int("items", len(board.Items)),
	)
	return nil
}

func (s *Service) build(ctx context.Context, scope *resource.Scope, resp host.Best30Response) (model.ScoreboardData, error) {
	potential, err := resp.PotentialValue()
	if err != nil {
		return model.ScoreboardData{}, err
	}
	entries := resp.B30
	if len(entries) > model.MaxItems {
		entries = entries[:model.MaxItems]
	}
	difficulties := make([]model.Difficulty, len(entries))
	refs := make([]host.CoverRef, len(entries))
	for i, e := range entries {
		d, err := model.ParseDifficulty(e.Chart.Difficulty)
		if err != nil {
			return model.ScoreboardData{}, fmt.Errorf("entry %d: %w", i, err)
		}
		difficulties[i] = d
		refs[i] = host.CoverRef{SongID: e.Song.ID, Difficulty: int(d)}
	}

	var (
		badge  *resource.Resource
		covers []*resource.Resource
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.api.ResolvePotentialBadge(gctx, resp.Rating)
		if err != nil {
			return fmt.Errorf("potential badge: %w", err)
		}
		files, err := s.api.GetImages(gctx, []string{u})
		if err != nil {
			return fmt.Errorf("potential badge: %w", err)
		}
		badge, err = scope.Detail(gctx, files[0])
		return err
	})
	g.Go(func() error {
		if len(refs) == 0 {
			return nil
		}
		urls, err := s.api.ResolveCovers(gctx, refs)
		if err != nil {
			return fmt.Errorf("covers: %w", err)
		}
		files, err := s.api.GetImages(gctx, urls)
		if err != nil {
			return fmt.Errorf("covers: %w", err)
		}
		covers, err = scope.DetailAll(gctx, files)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ScoreboardData{}, err
	}

	items := make([]model.PlayResultItem, len(entries))
	for i, e := range entries {
		grade, ok := s.grades[e.Score.Grade]
		if !ok {
			return model.ScoreboardData{}, fmt.Errorf("entry %d: grade %q: %w", i, e.Score.Grade, errs.ErrResourceNotFound)
		}
		items[i] = model.PlayResultItem{
			Rank:            e.No,
			DifficultyBadge: s.badges[difficulties[i]],
			Level:           e.Chart.Level,
			Plus:            e.Chart.Plus,
			Potential:       e.Score.Potential,
			Side:            e.Song.Side,
			Cover:           covers[i],
			RankBadge:       grade,
			Score:           e.Score.Score,
			Title:           e.Title(),
			Clear:           model.ClearFromHost(e.Clear),
		}
	}
	return model.ScoreboardData{
		Player:      resp.Username,
		QueryDate:   resp.QueriedAt(),
		Potential:   potential,
		RatingBadge: badge,
		Items:       items,
	}, nil
}

// Scoreboard returns the installed scoreboard.
func (s *Service) Scoreboard() (model.ScoreboardData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.board == nil {
		return model.ScoreboardData{}, false
	}
	return *s.board, true
}

func (s *Service) scale(scale float64) (float64, error) {
	if scale == 0 {
		return s.defaultScale, nil
	}
	if !(scale >= minScale && scale <= maxScale) {
		return 0, fmt.Errorf("scale %v outside [%d, %d]: %w", scale, minScale, maxScale, errs.ErrInvalidArgument)
	}
	return scale, nil
}

// RenderContext snapshots everything a render needs. A zero scale selects
// the default scale.
func (s *Service) RenderContext(scale float64, kind resource.Kind) (model.RenderContext, error) {
	scale, err := s.scale(scale)
	if err != nil {
		return model.RenderContext{}, err
	}
	select {
	case <-s.prepared:
	default:
		return model.RenderContext{}, fmt.Errorf("startup resources loading: %w", errs.ErrNotReady)
	}
	if s.prepareErr != nil {
		return model.RenderContext{}, fmt.Errorf("%w: %w", errs.ErrNotReady, s.prepareErr)
	}
	board, ok := s.Scoreboard()
	if !ok {
		return model.RenderContext{}, fmt.Errorf("no scoreboard installed: %w", errs.ErrNotReady)
	}
	rc := model.RenderContext{
		Scoreboard: board,
		Avatar:     s.pickers.Avatar.Current().Resource,
		Background: s.pickers.Background.Current().Resource,
		Course:     s.pickers.Course.Current().Resource,
		Brand:      s.brand,
		Font:       s.font,
		Theme:      s.pickers.Theme(),
		Scale:      scale,
		Kind:       kind,
	}
	if err := rc.Validate(); err != nil {
		return model.RenderContext{}, err
	}
	return rc, nil
}

// Preview returns markup bound to ephemeral handles, for display by this
// process only.
func (s *Service) Preview(scale float64) ([]byte, error) {
	rc, err := s.RenderContext(scale, resource.Ephemeral)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Markup(rc)
}

// Render produces an artifact without handing it to the host.
func (s *Service) Render(ctx context.Context, f export.Format, scale float64) (export.Artifact, error) {
	rc, err := s.RenderContext(scale, f.Kind())
	if err != nil {
		return export.Artifact{}, err
	}
	return s.pipeline.Render(ctx, rc, f)
}

// Export renders f and sends it to the host export sink.
func (s *Service) Export(ctx context.Context, f export.Format, scale float64) (export.Artifact, error) {
	rc, err := s.RenderContext(scale, f.Kind())
	if err != nil {
		return export.Artifact{}, err
	}
	return s.pipeline.Export(ctx, rc, f)
}

// Pick runs the host picker for slot.
func (s *Service) Pick(ctx context.Context, slot picker.Slot) (bool, error) {
	p, err := s.pickers.Get(slot)
	if err != nil {
		return false, err
	}
	return p.Pick(ctx)
}

// Blob returns the live resource served at path.
func (s *Service) Blob(path string) (*resource.Resource, bool) {
	return s.arena.Resolve(path)
}

// Quality labels the PNG detail of a scale.
func Quality(scale float64) string {
	switch {
	case scale < 2:
		return "low"
	case scale < 3:
		return "ok"
	default:
		return "high"
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ready := false
	select {
	case <-s.prepared:
		ready = s.prepareErr == nil
	default:
	}
	stats := map[string]interface{}{
		"started":      s.started,
		"ready":        ready,
		"defaultScale": s.defaultScale,
		"quality":      Quality(s.defaultScale),
		"liveHandles":  s.arena.Len(),
		"installs":     s.installs,
		"duplicates":   s.duplicates,
		"theme":        s.pickers.Theme(),
	}
	if s.board != nil {
		stats["player"] = s.board.Player
		stats["potential"] = s.board.Potential
		stats["items"] = len(s.board.Cards())
		stats["queryDate"] = s.board.DateLabel()
	}
	if s.queue != nil {
		stats["queueLength"] = s.queue.Len()
	}
	if s.dispatcher != nil {
		d := s.dispatcher.Stats()
		stats["processed"] = d.Processed
		stats["failed"] = d.Failed
		if d.LastError != "" {
			stats["lastError"] = d.LastError
		}
	}
	return stats
}

// Stop shuts the dispatcher down and releases every handle.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	dispatcher, q, cancel := s.dispatcher, s.queue, s.cancel
	s.queue = nil
	board := s.boardScope
	s.board, s.boardScope = nil, nil
	s.mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	s.logger.Info(ctx, "stopping scoreboard service")

	_ = q.Close()
	if err := dispatcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
	}
	cancel()

	select {
	case <-s.prepared:
	case <-ctx.Done():
	}
	if board != nil {
		board.Release()
	}
	s.pickers.Close()
	if s.static != nil {
		s.static.Release()
	}
	s.logger.Info(ctx, "scoreboard service stopped")
}
