// Package scheduler runs the salience decay cycle as a long-lived
// periodic worker: cursor-paginated scans of items then facts, the decay
// engine applied per row, results persisted, and a run metric recorded.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bojanni/Chronicle/internal/decay"
	"github.com/bojanni/Chronicle/internal/similarity"
	"github.com/bojanni/Chronicle/internal/store"
)

// batchYield is the pause between batches within one table scan (§4.4
// step 2d), giving the read path room between decay writes.
const batchYield = 100 * time.Millisecond

// entropyRingSize bounds the in-memory sample history surfaced by
// GetDecayMetrics (SPEC_FULL supplemented feature 4).
const entropyRingSize = 100

// Config holds the scheduler's tunables; zero values fall back to the
// documented defaults.
type Config struct {
	IntervalMs      int64
	BatchSize       int
	MetricRetention time.Duration
}

func (c Config) withDefaults() Config {
	if c.IntervalMs <= 0 {
		c.IntervalMs = 900_000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MetricRetention <= 0 {
		c.MetricRetention = 30 * 24 * time.Hour
	}
	return c
}

// CycleResult is what RunCycle and the scheduled loop report.
type CycleResult struct {
	Processed   int
	Decayed     int
	Entropy     float64
	DurationMs  int64
	Batches     int
	Errors      int
	decaySum    float64
}

// Scheduler is the decay cycle's periodic driver. One Scheduler owns
// exactly one in-flight cycle at a time, enforced by the is_running
// latch (mu + cycleInFlight bool, equivalent to a size-1 channel
// semaphore). The separate running flag only records whether the
// Start loop is active.
type Scheduler struct {
	store store.Storer
	cfg   Config
	log   *zap.Logger

	mu            sync.Mutex
	running       bool
	cycleInFlight bool
	stopCh        chan struct{}
	done          chan struct{}

	ringMu      sync.Mutex
	entropyRing []float64

	// clock and contextOverride exist for deterministic tests; production
	// callers leave both nil/zero.
	clock           func() time.Time
	contextOverride *decay.Context
}

// New constructs a Scheduler over s with the given config.
func New(s store.Storer, cfg Config, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		store: s,
		cfg:   cfg.withDefaults(),
		log:   log,
		clock: time.Now,
	}
}

// SetContextOverride forces every subsequent cycle to use ctx instead of
// resolving the environmental context from the wall clock. Passing nil
// restores wall-clock resolution. Used by trigger_decay_cycle when a
// caller wants deterministic output, and by tests.
func (s *Scheduler) SetContextOverride(ctx *decay.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextOverride = ctx
}

// Start launches the cycle runner: fires immediately, then every
// interval_ms. A Start call while already running is refused and logged
// at warn, matching §4.4's overlap-refusal contract.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("decay scheduler start refused: cycle already running")
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)
	return nil
}

// Stop cancels the ticker and waits for any in-flight cycle to settle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.done)
		s.mu.Unlock()
	}()

	interval := time.Duration(s.cfg.IntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.RunCycle(ctx); err != nil {
		s.log.Error("initial decay cycle failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil {
				s.log.Error("decay cycle failed", zap.Error(err))
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunCycle performs one manual decay pass over items then facts,
// refusing to run if another cycle is already in flight on this
// Scheduler (the cycleInFlight latch, shared by manual calls and the
// Start loop; it is separate from the running flag Start/Stop use).
func (s *Scheduler) RunCycle(ctx context.Context) (CycleResult, error) {
	s.mu.Lock()
	if s.cycleInFlight {
		s.mu.Unlock()
		s.log.Warn("decay cycle invocation refused: cycle already in flight")
		return CycleResult{}, fmt.Errorf("decay cycle already in flight")
	}
	s.cycleInFlight = true
	override := s.contextOverride
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cycleInFlight = false
		s.mu.Unlock()
	}()

	start := s.now()
	envCtx := decay.ResolveContext(start, override)

	result := CycleResult{}

	s.decayItems(ctx, envCtx, start, &result)
	s.decayFacts(ctx, envCtx, start, &result)

	values, err := s.store.AllLiveSalienceValues(ctx)
	if err != nil {
		s.log.Error("failed to load salience values for entropy", zap.Error(err))
		result.Errors++
	}
	entropy := similarity.Entropy(values)
	result.Entropy = entropy
	s.pushEntropySample(entropy)

	result.DurationMs = s.now().Sub(start).Milliseconds()

	avgDecay := 0.0
	if result.Decayed > 0 {
		avgDecay = result.decaySum / float64(result.Decayed)
	}

	metric := &store.DecayRunMetric{
		RunTimestamp:         start.UnixMilli(),
		ItemsProcessed:       result.Processed,
		ItemsDecayed:         result.Decayed,
		ErrorCount:           result.Errors,
		AverageDecayAmount:   avgDecay,
		MemoryEntropy:        entropy,
		EnvironmentalContext: envCtx.Label,
		ProcessingDurationMs: result.DurationMs,
	}
	if err := s.store.InsertDecayRunMetric(ctx, metric); err != nil {
		s.log.Error("failed to persist decay run metric", zap.Error(err))
		result.Errors++
	}
	if err := s.store.PruneDecayMetrics(ctx, start.Add(-s.cfg.MetricRetention).UnixMilli()); err != nil {
		s.log.Warn("failed to prune decay metrics", zap.Error(err))
	}

	return result, nil
}

// decayItems scans chats in cursor-paginated batches (§4.4 step 2) and
// applies the decay engine to each, persisting salience drops.
func (s *Scheduler) decayItems(ctx context.Context, envCtx decay.Context, at time.Time, result *CycleResult) {
	cursor := ""
	atMs := at.UnixMilli()

	for {
		batch, err := s.store.ScanItemsForDecay(ctx, cursor, s.cfg.BatchSize, s.cfg.IntervalMs, atMs)
		if err != nil {
			s.log.Error("scan items for decay failed", zap.Error(err))
			result.Errors++
			return
		}
		result.Batches++

		for _, it := range batch {
			result.Processed++
			hours := float64(atMs-it.LastAccessedAt) / 3_600_000.0
			res := decay.Apply(it.Salience, hours, decay.MemoryType(it.MemoryType.Normalize()), it.RecallCount, envCtx)
			if res.NewSalience >= it.Salience {
				continue
			}
			entry := store.DecayHistoryEntry{
				RunAt:              atMs,
				PriorSalience:      it.Salience,
				NewSalience:        res.NewSalience,
				HoursSinceAccess:   hours,
				LTPFactor:          res.Modifiers.LTPFactor,
				RecallBoost:        res.Modifiers.RecallBoost,
				EnvMultiplier:      res.Modifiers.EnvMultiplier,
				EbbinghausModifier: res.Modifiers.EbbinghausModifier,
			}
			if err := s.store.UpdateItemSalience(ctx, it.ID, res.NewSalience, entry, atMs); err != nil {
				s.log.Error("update item salience failed", zap.String("id", it.ID), zap.Error(err))
				result.Errors++
				continue
			}
			result.Decayed++
			result.decaySum += res.DecayAmount
		}

		if len(batch) < s.cfg.BatchSize {
			return
		}
		cursor = batch[len(batch)-1].ID
		select {
		case <-time.After(batchYield):
		case <-ctx.Done():
			return
		}
	}
}

// decayFacts mirrors decayItems for the facts table.
func (s *Scheduler) decayFacts(ctx context.Context, envCtx decay.Context, at time.Time, result *CycleResult) {
	cursor := ""
	atMs := at.UnixMilli()

	for {
		batch, err := s.store.ScanFactsForDecay(ctx, cursor, s.cfg.BatchSize, s.cfg.IntervalMs, atMs)
		if err != nil {
			s.log.Error("scan facts for decay failed", zap.Error(err))
			result.Errors++
			return
		}
		result.Batches++

		for _, f := range batch {
			result.Processed++
			hours := float64(atMs-f.LastAccessedAt) / 3_600_000.0
			res := decay.Apply(f.Salience, hours, decay.Default, f.RecallCount, envCtx)
			if res.NewSalience >= f.Salience {
				continue
			}
			entry := store.DecayHistoryEntry{
				RunAt:              atMs,
				PriorSalience:      f.Salience,
				NewSalience:        res.NewSalience,
				HoursSinceAccess:   hours,
				LTPFactor:          res.Modifiers.LTPFactor,
				RecallBoost:        res.Modifiers.RecallBoost,
				EnvMultiplier:      res.Modifiers.EnvMultiplier,
				EbbinghausModifier: res.Modifiers.EbbinghausModifier,
			}
			if err := s.store.UpdateFactSalience(ctx, f.ID, res.NewSalience, entry, atMs); err != nil {
				s.log.Error("update fact salience failed", zap.String("id", f.ID), zap.Error(err))
				result.Errors++
				continue
			}
			result.Decayed++
			result.decaySum += res.DecayAmount
		}

		if len(batch) < s.cfg.BatchSize {
			return
		}
		cursor = batch[len(batch)-1].ID
		select {
		case <-time.After(batchYield):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}

func (s *Scheduler) pushEntropySample(v float64) {
	s.ringMu.Lock()
	defer s.ringMu.Unlock()
	s.entropyRing = append(s.entropyRing, v)
	if len(s.entropyRing) > entropyRingSize {
		s.entropyRing = s.entropyRing[len(s.entropyRing)-entropyRingSize:]
	}
}

// RecentEntropySamples returns a copy of the in-memory entropy ring
// buffer, oldest first.
func (s *Scheduler) RecentEntropySamples() []float64 {
	s.ringMu.Lock()
	defer s.ringMu.Unlock()
	out := make([]float64, len(s.entropyRing))
	copy(out, s.entropyRing)
	return out
}

// OnAccess refreshes last_accessed_at and increments recall_count for
// id, mirroring the Store's own TrackView but callable directly by
// read-path hooks that only have a Scheduler reference.
func (s *Scheduler) OnAccess(ctx context.Context, id string) error {
	return s.store.TrackView(ctx, id)
}
