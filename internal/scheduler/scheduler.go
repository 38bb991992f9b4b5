// Package scheduler manages the background goroutines that watch the market
// lifecycle:
//  1. resolutionDueLoop – flags open markets whose unlock time has passed so
//     the administrator knows a resolution decision is due. It never resolves
//     anything itself; settlement is an admin call.
//  2. statsLoop – pushes the aggregate stats snapshot to WS clients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/outcomely/timelock/internal/engine"
	"github.com/outcomely/timelock/internal/platform/clock"
	"github.com/outcomely/timelock/internal/ws"
)

// Broadcaster defines the push operations the Scheduler needs from the
// WebSocket hub. Declared here so the scheduler does not depend on the hub
// implementation.
type Broadcaster interface {
	BroadcastStats(msg ws.StatsMessage)
	BroadcastResolutionDue(msg ws.ResolutionDueMessage)
}

// Scheduler runs the market lifecycle watchers. Call Start(ctx) once from
// main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	engine *engine.Engine
	clock  clock.Clock
	hub    Broadcaster
	logger *slog.Logger

	dueInterval   time.Duration
	statsInterval time.Duration

	// markets already reported as due, so the loop nags once per market
	reported map[uint64]bool
}

// New creates a Scheduler with the default intervals (due check every 30s,
// stats broadcast every 10s).
func New(eng *engine.Engine, clk clock.Clock, hub Broadcaster, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:        eng,
		clock:         clk,
		hub:           hub,
		logger:        logger,
		dueInterval:   30 * time.Second,
		statsInterval: 10 * time.Second,
		reported:      make(map[uint64]bool),
	}
}

// Start launches the background goroutines. It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.resolutionDueLoop(ctx)
	go s.statsLoop(ctx)
	s.logger.Info("scheduler started")
}

// ──────────────────────────────────────────────────────────────────────────────
// resolutionDueLoop
// ──────────────────────────────────────────────────────────────────────────────

// resolutionDueLoop periodically scans for open markets past their unlock
// time and reports each one once, via log and WS broadcast.
func (s *Scheduler) resolutionDueLoop(ctx context.Context) {
	defer s.recoverAndLog("resolutionDueLoop")

	ticker := time.NewTicker(s.dueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("resolutionDueLoop: shutting down")
			return
		case <-ticker.C:
			s.checkDue(ctx)
		}
	}
}

// checkDue is the inner body of resolutionDueLoop, extracted so the
// defer/recover in the loop catches panics correctly.
func (s *Scheduler) checkDue(ctx context.Context) {
	markets, err := s.engine.ListMarkets(ctx)
	if err != nil {
		s.logger.Error("resolutionDueLoop: list markets", "err", err)
		return
	}

	now := s.clock.Now()
	for _, m := range markets {
		if !m.IsOpen() || !m.Expired(now) || s.reported[m.ID] {
			continue
		}
		s.reported[m.ID] = true
		s.logger.Warn("market awaits resolution",
			"market_id", m.ID,
			"question", m.Question,
			"unlock_time", m.UnlockTime.Format(time.RFC3339),
			"overdue", now.Sub(m.UnlockTime).Round(time.Second))

		if s.hub != nil {
			s.hub.BroadcastResolutionDue(ws.ResolutionDueMessage{
				Type:       ws.MsgTypeResolutionDue,
				MarketID:   m.ID,
				Question:   m.Question,
				UnlockTime: m.UnlockTime,
				Timestamp:  now,
			})
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// statsLoop
// ──────────────────────────────────────────────────────────────────────────────

// statsLoop broadcasts the aggregate stats snapshot on a fixed interval.
func (s *Scheduler) statsLoop(ctx context.Context) {
	defer s.recoverAndLog("statsLoop")

	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("statsLoop: shutting down")
			return
		case <-ticker.C:
			s.broadcastStats(ctx)
		}
	}
}

func (s *Scheduler) broadcastStats(ctx context.Context) {
	if s.hub == nil {
		return
	}
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		s.logger.Error("statsLoop: stats", "err", err)
		return
	}
	s.hub.BroadcastStats(ws.StatsMessage{
		Type:      ws.MsgTypeStats,
		Stats:     stats,
		Timestamp: s.clock.Now(),
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
