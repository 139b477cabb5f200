package service

import (
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/portfolio"
	"github.com/ndewijer/cryptofolio/internal/repository"
)

// PriceBook supplies the last known price per asset.
type PriceBook interface {
	Prices() map[string]decimal.Decimal
}

// PortfolioService caches, per signed-in user, the full transaction
// collection and the snapshot derived from it.
//
// The cache is replaced wholesale on every Refresh and recomputed without
// store access whenever a price changes. It is dropped when the user's
// last session ends.
type PortfolioService struct {
	transactionRepo *repository.TransactionRepository
	assetRepo       *repository.AssetRepository
	prices          PriceBook
	currency        string
	logger          logrus.FieldLogger

	mu    sync.Mutex
	cache map[string]*cachedPortfolio
}

type cachedPortfolio struct {
	generation   uint64
	transactions []model.Transaction
	summary      portfolio.Summary
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(
	transactionRepo *repository.TransactionRepository,
	assetRepo *repository.AssetRepository,
	prices PriceBook,
	currency string,
	logger logrus.FieldLogger,
) *PortfolioService {
	return &PortfolioService{
		transactionRepo: transactionRepo,
		assetRepo:       assetRepo,
		prices:          prices,
		currency:        currency,
		logger:          logger,
		cache:           make(map[string]*cachedPortfolio),
	}
}

// Refresh re-reads the user's whole collection and recomputes the summary.
// When reads overlap, the one started last is kept.
func (s *PortfolioService) Refresh(userID string) (portfolio.Summary, error) {
	_, summary, err := s.refresh(userID)
	return summary, err
}

func (s *PortfolioService) refresh(userID string) ([]model.Transaction, portfolio.Summary, error) {
	s.mu.Lock()
	entry, ok := s.cache[userID]
	if !ok {
		entry = &cachedPortfolio{}
		s.cache[userID] = entry
	}
	entry.generation++
	gen := entry.generation
	s.mu.Unlock()

	txs, err := s.transactionRepo.GetTransactions(userID)
	if err != nil {
		s.mu.Lock()
		if cur, ok := s.cache[userID]; ok && cur == entry && cur.generation == gen && cur.transactions == nil {
			delete(s.cache, userID)
		}
		s.mu.Unlock()
		return nil, portfolio.Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Computed under the lock so a concurrent price update cannot be lost.
	summary := portfolio.Summarize(txs, s.prices.Prices(), s.currency)
	// The entry was dropped by a sign-out or superseded by a newer read.
	if cur, ok := s.cache[userID]; ok && cur == entry && cur.generation == gen {
		entry.transactions = txs
		entry.summary = summary
	}
	return txs, summary, nil
}

// Summary returns the cached summary, loading it on first access.
func (s *PortfolioService) Summary(userID string) (portfolio.Summary, error) {
	s.mu.Lock()
	entry, ok := s.cache[userID]
	if ok && entry.transactions != nil {
		summary := entry.summary
		s.mu.Unlock()
		return summary, nil
	}
	s.mu.Unlock()

	return s.Refresh(userID)
}

// TransactionProfits values each cached transaction at its asset's current
// price, newest first.
func (s *PortfolioService) TransactionProfits(userID string) ([]model.TransactionProfit, error) {
	txs, err := s.transactions(userID)
	if err != nil {
		return nil, err
	}

	assets, err := s.assetRepo.GetAssets()
	if err != nil {
		return nil, err
	}
	symbols := make(map[string]string, len(assets))
	for _, a := range assets {
		symbols[a.ID] = a.Symbol
	}

	prices := s.prices.Prices()
	out := make([]model.TransactionProfit, 0, len(txs))
	for _, tx := range txs {
		price, ok := prices[tx.AssetID]
		out = append(out, model.TransactionProfit{
			Transaction:    tx,
			AssetSymbol:    symbols[tx.AssetID],
			CurrentPrice:   price,
			CurrentValue:   tx.AssetAmount.Mul(price),
			Profit:         portfolio.TransactionProfit(tx, price),
			PriceAvailable: ok && price.IsPositive(),
		})
	}
	return out, nil
}

func (s *PortfolioService) transactions(userID string) ([]model.Transaction, error) {
	s.mu.Lock()
	entry, ok := s.cache[userID]
	if ok && entry.transactions != nil {
		txs := entry.transactions
		s.mu.Unlock()
		return txs, nil
	}
	s.mu.Unlock()

	txs, _, err := s.refresh(userID)
	return txs, err
}

// HandlePriceUpdate recomputes every cached summary with the current book.
func (s *PortfolioService) HandlePriceUpdate(p model.AssetPrice) {
	prices := s.prices.Prices()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, entry := range s.cache {
		if entry.transactions == nil {
			continue
		}
		entry.summary = portfolio.Summarize(entry.transactions, prices, s.currency)
		n++
	}

	if n > 0 {
		s.logger.WithFields(logrus.Fields{
			"asset_id":   p.AssetID,
			"portfolios": n,
		}).Debug("Recomputed portfolios after price update")
	}
}

// HandleSessionChange drops a user's cache when they no longer have a session.
func (s *PortfolioService) HandleSessionChange(ev model.SessionEvent) {
	if ev.Session != nil {
		return
	}
	s.Invalidate(ev.UserID)
}

// Invalidate drops a user's cached collection.
func (s *PortfolioService) Invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, userID)
}

// Cached reports whether a user's collection is held in memory.
func (s *PortfolioService) Cached(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[userID]
	return ok && entry.transactions != nil
}
