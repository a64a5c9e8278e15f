// Package consumer hosts the feed-facing workers. Every consumer
// shares one skeleton: acquire a stream, decode each update, emit
// normalized records to the reconciler, re-acquire on transport error.
package consumer

import (
	"context"
	"log"
	"sync"
	"time"

	"pumpscan/internal/chain"
	"pumpscan/internal/config"
	"pumpscan/internal/feed"
	"pumpscan/internal/reconcile"
)

// Deps is the shared wiring handed to every consumer.
type Deps struct {
	Feed     *feed.Client
	Chain    *chain.Client
	Recon    *reconcile.Reconciler
	Programs *config.Programs

	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (d *Deps) applyDefaults() {
	if d.BackoffInitial <= 0 {
		d.BackoffInitial = time.Second
	}
	if d.BackoffMax <= 0 {
		d.BackoffMax = 30 * time.Second
	}
}

// Consumer is one supervised worker: a subscription filter plus a
// handler invoked per update.
type Consumer struct {
	Name   string
	Filter feed.Filter
	Handle func(ctx context.Context, u feed.Update)
}

// Supervisor runs the consumer catalogue, restarting each stream with
// capped backoff after transport errors.
type Supervisor struct {
	deps      *Deps
	consumers []*Consumer
	wg        sync.WaitGroup
}

// NewSupervisor builds the full catalogue against the given deps.
func NewSupervisor(d *Deps) *Supervisor {
	d.applyDefaults()
	return &Supervisor{
		deps: d,
		consumers: []*Consumer{
			newMintDetector(d),
			newLaunchpadAccount(d),
			newLaunchpadTransactions(d),
			newPumpFunTrade(d),
			newPumpFunBondingCurve(d),
			newGraduationDetector(d),
			newPumpSwapPools(d),
			newPumpSwapTrades(d),
		},
	}
}

// Start launches every consumer. Cancel the context to stop them; each
// stream closes within a second of cancellation.
func (s *Supervisor) Start(ctx context.Context) {
	for _, c := range s.consumers {
		s.wg.Add(1)
		go func(c *Consumer) {
			defer s.wg.Done()
			s.run(ctx, c)
		}(c)
	}
	log.Printf("[consumers] started %d workers", len(s.consumers))
}

// Wait blocks until all consumers have stopped.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) run(ctx context.Context, c *Consumer) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := s.deps.Feed.Acquire(ctx, c.Name, c.Filter)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := feed.Backoff(attempt, s.deps.BackoffInitial, s.deps.BackoffMax)
			log.Printf("[%s] acquire failed: %v, retrying in %s", c.Name, err, wait)
			attempt++
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		for u := range stream.Updates() {
			c.Handle(ctx, u)
		}
		s.deps.Feed.Release(c.Name)

		if ctx.Err() != nil {
			return
		}
		if err := stream.Err(); err != nil {
			log.Printf("[%s] stream error: %v, reconnecting", c.Name, err)
		}
		wait := feed.Backoff(attempt, s.deps.BackoffInitial, s.deps.BackoffMax)
		attempt++
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
