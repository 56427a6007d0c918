package imageprocessor

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"fishtank/database"
	"fishtank/types"
)

// Pool drains ingest events through a fixed set of extraction workers
// and emits completed sprites. The sprite channel is the handoff point
// to the render thread, which is its sole consumer; the final AddSprite
// and texture upload never happen here.
type Pool struct {
	extractor *Extractor
	db        *sql.DB
	events    <-chan types.IngestEvent
	sprites   chan *types.Sprite

	workers int
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	// seen tracks path -> modtime handled this run, so a duplicate
	// event for an unchanged file cannot spawn a second fish.
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewPool creates an extraction pool over the ingest event queue.
func NewPool(workers int, extractor *Extractor, db *sql.DB, events <-chan types.IngestEvent) *Pool {
	return &Pool{
		extractor: extractor,
		db:        db,
		events:    events,
		sprites:   make(chan *types.Sprite, workers*2),
		workers:   workers,
		seen:      make(map[string]time.Time),
	}
}

// Sprites is the completed-sprite queue the render thread drains.
func (p *Pool) Sprites() <-chan *types.Sprite {
	return p.sprites
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	slog.Info("imageprocessor: extraction pool started", "workers", p.workers)
}

// Stop cancels in-flight work and joins the workers. Queued results
// that nobody drained are discarded, which keeps shutdown prompt.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	close(p.sprites)
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.events:
			if !ok {
				return
			}
			p.process(ctx, ev)
		}
	}
}

func (p *Pool) process(ctx context.Context, ev types.IngestEvent) {
	if p.alreadyHandled(ev) {
		slog.Debug("imageprocessor: unchanged photo, skipping", "path", ev.Path)
		return
	}

	// A file already rejected at this exact modification time will
	// reject again; don't burn a worker re-proving it.
	if unchanged, err := database.IsUnchanged(p.db, ev.Path, ev.ModTime); err == nil && unchanged {
		if rec, err := database.GetRecord(p.db, ev.Path); err == nil && rec.Status == types.StatusRejected {
			p.markHandled(ev)
			return
		}
	}

	if err := database.UpsertPending(p.db, ev.Path, ev.ModTime); err != nil {
		slog.Error("imageprocessor: cannot record photo", "path", ev.Path, "error", err)
		return
	}

	result, err := p.extractor.Extract(ev.Path)
	if err != nil {
		if !IsRejection(err) {
			slog.Error("imageprocessor: extraction failed", "path", ev.Path, "error", err)
		} else {
			slog.Warn("imageprocessor: photo rejected", "path", ev.Path, "reason", err)
		}
		if dberr := database.MarkRejected(p.db, ev.Path, err.Error()); dberr != nil {
			slog.Error("imageprocessor: cannot mark rejection", "path", ev.Path, "error", dberr)
		}
		p.markHandled(ev)
		return
	}

	if err := database.MarkAccepted(p.db, ev.Path, result.Width, result.Height); err != nil {
		slog.Error("imageprocessor: cannot mark acceptance", "path", ev.Path, "error", err)
	}
	p.markHandled(ev)

	// Sprites are expensive; block here rather than drop, the render
	// thread drains this queue every frame.
	select {
	case p.sprites <- result.Sprite:
	case <-ctx.Done():
	}
}

func (p *Pool) alreadyHandled(ev types.IngestEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.seen[ev.Path]
	return ok && !ev.ModTime.After(t)
}

func (p *Pool) markHandled(ev types.IngestEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[ev.Path] = ev.ModTime
}
