package distill

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/memory"
	"github.com/mindwell-ai/mindwell/store"
)

// defaultConcurrency bounds how many users are distilled at once.
const defaultConcurrency = 4

// Scheduler runs the distiller across every user. Each user is processed
// independently: a failure is recorded on the run report and the remaining
// users still run.
type Scheduler struct {
	store       store.ArtifactStore
	distiller   Distiller
	refresher   *memory.Refresher
	concurrency int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRefresher makes the scheduler refresh the soul artifact's embedding
// after appending insights.
func WithRefresher(r *memory.Refresher) SchedulerOption {
	return func(s *Scheduler) { s.refresher = r }
}

// WithConcurrency bounds parallel per-user distillation.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewScheduler creates a scheduler over the store using the given distiller.
func NewScheduler(st store.ArtifactStore, distiller Distiller, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:       st,
		distiller:   distiller,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunForAllUsers distills every known user once and reports the outcome. The
// returned error covers only run-level failures (user enumeration); per-user
// failures land in the report's Errors.
func (s *Scheduler) RunForAllUsers(ctx context.Context) (*core.DistillationRun, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	run := &core.DistillationRun{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, userID := range users {
		g.Go(func() error {
			insights, err := s.RunForUser(gctx, userID)
			mu.Lock()
			defer mu.Unlock()
			// Every attempted user counts, failed or not.
			run.UsersProcessed++
			if err != nil {
				log.Printf("[DISTILL] user %s failed: %v", userID, err)
				run.Errors = append(run.Errors, core.UserError{UserID: userID, Message: err.Error()})
				return nil
			}
			run.TotalInsights += insights
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("[DISTILL] run complete: %d users, %d insights, %d errors",
		run.UsersProcessed, run.TotalInsights, len(run.Errors))
	return run, nil
}

// RunForUser distills one user's recent entries into soul insights and
// returns how many were appended. Runs are idempotent over an unchanged
// store: only entries newer than the latest distilled insight are considered.
func (s *Scheduler) RunForUser(ctx context.Context, userID string) (int, error) {
	soul, err := s.soulArtifact(ctx, userID)
	if err != nil {
		return 0, err
	}

	since, err := s.lastDistilledAt(ctx, soul.ID)
	if err != nil {
		return 0, err
	}

	entries, err := s.collectRecent(ctx, userID, soul.ID, since)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	insights, err := s.distiller.Distill(ctx, entries)
	if err != nil {
		return 0, err
	}
	if len(insights) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for _, insight := range insights {
		entry := &core.ArtifactEntry{
			ID:         uuid.NewString(),
			ArtifactID: soul.ID,
			Content:    insight,
			Provenance: core.ProvenanceDistilled,
			CreatedAt:  now,
		}
		if err := s.store.CreateEntry(ctx, entry); err != nil {
			return 0, err
		}
	}

	if s.refresher != nil {
		s.refresher.Trigger(soul.ID)
	}
	return len(insights), nil
}

// soulArtifact returns the user's soul artifact, creating it on first use.
func (s *Scheduler) soulArtifact(ctx context.Context, userID string) (*core.Artifact, error) {
	soul, err := s.store.FindArtifactByTitle(ctx, userID, core.SoulArtifactTitle)
	if err == nil {
		return soul, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	soul = &core.Artifact{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     core.SoulArtifactTitle,
		Summary:   "Distilled long-term profile",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateArtifact(ctx, soul); err != nil {
		return nil, err
	}
	return soul, nil
}

// lastDistilledAt returns the creation time of the newest soul insight, or
// nil when no distillation has happened yet.
func (s *Scheduler) lastDistilledAt(ctx context.Context, soulID string) (*time.Time, error) {
	entries, err := s.store.ListEntries(ctx, soulID, store.EntryFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	t := entries[0].CreatedAt
	return &t, nil
}

// collectRecent gathers the user's entries created after since, across every
// artifact except the soul itself. Oldest first, so the distiller sees the
// batch in chronological order.
func (s *Scheduler) collectRecent(ctx context.Context, userID, soulID string, since *time.Time) ([]*core.ArtifactEntry, error) {
	artifacts, err := s.store.ListArtifacts(ctx, userID)
	if err != nil {
		return nil, err
	}

	var collected []*core.ArtifactEntry
	for _, artifact := range artifacts {
		if artifact.ID == soulID || artifact.IsSoul() {
			continue
		}
		entries, err := s.store.ListEntries(ctx, artifact.ID, store.EntryFilter{Since: since})
		if err != nil {
			return nil, err
		}
		// ListEntries is newest first; reverse into chronological order.
		for i := len(entries) - 1; i >= 0; i-- {
			collected = append(collected, entries[i])
		}
	}
	return collected, nil
}
