package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/repository"
)

// PriceFetcher retrieves the current price of one asset.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, asset model.Asset) (decimal.Decimal, error)
}

// PollSchedule configures the two polling jobs.
type PollSchedule struct {
	PrimarySymbol string
	Primary       string // cron spec, e.g. "@every 60s"
	Cycle         string // cron spec, e.g. "@every 30m"
	ItemDelay     time.Duration
}

// CycleResult summarizes one pass over all assets.
type CycleResult struct {
	Updated []string `json:"updated"`
	Failed  []string `json:"failed"`
}

// PriceService owns the price book: the last known price per asset.
// A failed fetch never touches the book, so the previous price of that asset
// stays in effect.
type PriceService struct {
	assetRepo *repository.AssetRepository
	fetcher   PriceFetcher
	schedule  PollSchedule
	logger    logrus.FieldLogger

	mu   sync.RWMutex
	book map[string]model.AssetPrice

	subMu  sync.Mutex
	subs   []priceSubscriber
	nextID int

	refresh singleflight.Group

	cron *cron.Cron
	wg   sync.WaitGroup
}

type priceSubscriber struct {
	id int
	fn func(model.AssetPrice)
}

// NewPriceService creates a new PriceService.
func NewPriceService(
	assetRepo *repository.AssetRepository,
	fetcher PriceFetcher,
	schedule PollSchedule,
	logger logrus.FieldLogger,
) *PriceService {
	return &PriceService{
		assetRepo: assetRepo,
		fetcher:   fetcher,
		schedule:  schedule,
		logger:    logger,
		book:      make(map[string]model.AssetPrice),
	}
}

// Warm loads the newest stored price of every asset into the book.
func (s *PriceService) Warm() error {
	latest, err := s.assetRepo.GetLatestPrices()
	if err != nil {
		return fmt.Errorf("failed to warm price book: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range latest {
		if cur, ok := s.book[id]; !ok || p.FetchedAt.After(cur.FetchedAt) {
			s.book[id] = p
		}
	}
	return nil
}

// Prices returns a copy of the book as asset ID -> price.
func (s *PriceService) Prices() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.book))
	for id, p := range s.book {
		out[id] = p.Price
	}
	return out
}

// Price returns the last known price of an asset.
func (s *PriceService) Price(assetID string) (model.AssetPrice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.book[assetID]
	return p, ok
}

// LatestPrices lists every asset with its last known price, if any.
func (s *PriceService) LatestPrices() ([]model.LatestPrice, error) {
	assets, err := s.assetRepo.GetAssets()
	if err != nil {
		return nil, err
	}

	out := make([]model.LatestPrice, 0, len(assets))
	for _, a := range assets {
		lp := model.LatestPrice{AssetID: a.ID, Name: a.Name, Symbol: a.Symbol}
		if p, ok := s.Price(a.ID); ok {
			price, fetchedAt := p.Price, p.FetchedAt
			lp.Price = &price
			lp.FetchedAt = &fetchedAt
			lp.Available = true
		}
		out = append(out, lp)
	}
	return out, nil
}

// refreshTimeout bounds a shared refresh, which no longer follows the
// context of whichever caller started it.
const refreshTimeout = 30 * time.Second

// RefreshAsset fetches one asset now. Concurrent refreshes of the same asset
// share a single outbound request. A caller that gives up returns ctx.Err()
// while the shared request carries on for the others.
func (s *PriceService) RefreshAsset(ctx context.Context, assetID string) (model.AssetPrice, error) {
	if err := ctx.Err(); err != nil {
		return model.AssetPrice{}, err
	}

	ch := s.refresh.DoChan(assetID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		asset, err := s.assetRepo.GetAsset(assetID)
		if err != nil {
			return model.AssetPrice{}, err
		}
		return s.fetch(fctx, asset)
	})

	select {
	case <-ctx.Done():
		return model.AssetPrice{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.AssetPrice{}, res.Err
		}
		return res.Val.(model.AssetPrice), nil
	}
}

// PollPrimary refreshes the primary asset.
func (s *PriceService) PollPrimary(ctx context.Context) error {
	asset, err := s.assetRepo.GetAssetBySymbol(s.schedule.PrimarySymbol)
	if err != nil {
		if errors.Is(err, apperrors.ErrAssetNotFound) {
			s.logger.WithField("symbol", s.schedule.PrimarySymbol).Warn("Primary asset not found, skipping poll")
		}
		return err
	}
	_, err = s.RefreshAsset(ctx, asset.ID)
	return err
}

// RunCycle refreshes every asset one after another, waiting the configured
// item delay between requests. A failing asset is logged and skipped; the
// cycle only stops early when ctx is cancelled.
func (s *PriceService) RunCycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{Updated: []string{}, Failed: []string{}}

	assets, err := s.assetRepo.GetAssets()
	if err != nil {
		return result, err
	}

	start := time.Now()
	for i, asset := range assets {
		if i > 0 {
			if err := sleep(ctx, s.schedule.ItemDelay); err != nil {
				return result, err
			}
		}

		if _, err := s.RefreshAsset(ctx, asset.ID); err != nil {
			result.Failed = append(result.Failed, asset.Symbol)
			continue
		}
		result.Updated = append(result.Updated, asset.Symbol)
	}

	s.logger.WithFields(logrus.Fields{
		"updated":  len(result.Updated),
		"failed":   len(result.Failed),
		"duration": time.Since(start),
	}).Info("Price cycle completed")

	return result, nil
}

// OnPriceUpdate registers fn for every successful price fetch. The returned
// function removes the subscription.
func (s *PriceService) OnPriceUpdate(fn func(model.AssetPrice)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, priceSubscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Start warms the book, schedules both polling jobs and runs each once
// right away. Jobs never overlap with themselves. Cancelling ctx aborts
// in-flight fetches and item delays.
func (s *PriceService) Start(ctx context.Context) error {
	if err := s.Warm(); err != nil {
		s.logger.WithError(err).Warn("Starting with an empty price book")
	}

	cronLogger := cron.PrintfLogger(s.logger)
	chain := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))

	primary := chain.Then(cron.FuncJob(func() {
		if err := s.PollPrimary(ctx); err != nil {
			s.logger.WithError(err).Debug("Primary price poll failed")
		}
	}))
	cycle := chain.Then(cron.FuncJob(func() {
		if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Error("Price cycle failed")
		}
	}))

	c := cron.New(cron.WithLogger(cronLogger))
	if _, err := c.AddJob(s.schedule.Primary, primary); err != nil {
		return fmt.Errorf("invalid primary poll schedule %q: %w", s.schedule.Primary, err)
	}
	if _, err := c.AddJob(s.schedule.Cycle, cycle); err != nil {
		return fmt.Errorf("invalid cycle schedule %q: %w", s.schedule.Cycle, err)
	}
	s.cron = c
	c.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		primary.Run()
		cycle.Run()
	}()

	s.logger.WithFields(logrus.Fields{
		"primary":        s.schedule.PrimarySymbol,
		"primary_every":  s.schedule.Primary,
		"cycle_every":    s.schedule.Cycle,
		"cycle_interval": s.schedule.ItemDelay,
	}).Info("Price polling started")
	return nil
}

// Stop unschedules the jobs and waits for running ones to return.
func (s *PriceService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
}

func (s *PriceService) fetch(ctx context.Context, asset model.Asset) (model.AssetPrice, error) {
	log := s.logger.WithFields(logrus.Fields{"asset_id": asset.ID, "symbol": asset.Symbol})

	price, err := s.fetcher.FetchPrice(ctx, asset)
	if err != nil {
		log.WithError(err).Warn("Price fetch failed, keeping previous price")
		return model.AssetPrice{}, err
	}

	p := model.AssetPrice{
		AssetID:   asset.ID,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}
	if err := s.assetRepo.InsertPrice(ctx, &p); err != nil {
		log.WithError(err).Error("Failed to record price")
	}

	s.mu.Lock()
	s.book[asset.ID] = p
	s.mu.Unlock()

	log.WithField("price", price.String()).Debug("Price updated")
	s.publish(p)
	return p, nil
}

func (s *PriceService) publish(p model.AssetPrice) {
	s.subMu.Lock()
	subs := make([]priceSubscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(p)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
