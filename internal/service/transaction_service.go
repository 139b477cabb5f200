package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/calculator"
	"github.com/ndewijer/cryptofolio/internal/database"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/repository"
	"github.com/ndewijer/cryptofolio/internal/validation"
)

// DefaultWallet labels purchases entered without a wallet.
const DefaultWallet = "Exchange"

// TransactionService handles purchase transaction business logic.
// Every change to a user's collection triggers a full re-read for the
// portfolio cache.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
	assetRepo       *repository.AssetRepository
	portfolio       *PortfolioService
	logger          logrus.FieldLogger
}

// NewTransactionService creates a new TransactionService with the provided dependencies.
func NewTransactionService(
	transactionRepo *repository.TransactionRepository,
	assetRepo *repository.AssetRepository,
	portfolioService *PortfolioService,
	logger logrus.FieldLogger,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		assetRepo:       assetRepo,
		portfolio:       portfolioService,
		logger:          logger,
	}
}

// GetTransactions lists a user's transactions, newest first.
func (s *TransactionService) GetTransactions(userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	return s.transactionRepo.FindTransactions(userID, filter)
}

// GetTransaction retrieves a single transaction of a user.
func (s *TransactionService) GetTransaction(userID, transactionID string) (model.Transaction, error) {
	return s.transactionRepo.GetTransaction(userID, transactionID)
}

// CreateTransaction reconciles the amounts in req, so any two of them are
// enough, and stores the purchase.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, req request.CreateTransactionRequest) (*model.Transaction, error) {
	res := calculator.Reconcile(calculator.Fields{
		FiatAmount:  req.FiatAmount,
		AssetAmount: req.AssetAmount,
		UnitPrice:   req.UnitPrice,
	})

	return s.createFromFields(ctx, userID, res.Fields, req.AssetID, req.Wallet, req.Date)
}

// DeleteTransaction removes a transaction of a user.
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	if err := s.transactionRepo.DeleteTransaction(ctx, userID, transactionID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": transactionID,
	}).Info("Transaction deleted")

	s.refreshPortfolio(userID)
	return nil
}

// createFromFields stores a purchase whose three amounts are already
// reconciled. It returns a *validation.Error when any amount is missing.
func (s *TransactionService) createFromFields(
	ctx context.Context,
	userID string,
	fields calculator.Fields,
	assetID, wallet, date string,
) (*model.Transaction, error) {
	if err := validation.ValidateAmounts(fields); err != nil {
		return nil, err
	}

	if assetID == "" {
		assetID = database.DefaultAssetID
	}
	if _, err := s.assetRepo.GetAsset(assetID); err != nil {
		return nil, err
	}

	transactionDate, err := validation.ParseDate(date)
	if err != nil {
		return nil, &validation.Error{Fields: map[string]string{"date": err.Error()}}
	}

	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		wallet = DefaultWallet
	}

	fiat, _ := calculator.Value(fields.FiatAmount)
	asset, _ := calculator.Value(fields.AssetAmount)
	price, _ := calculator.Value(fields.UnitPrice)

	transaction := &model.Transaction{
		UserID:      userID,
		AssetID:     assetID,
		FiatAmount:  fiat.Round(calculator.FiatPlaces),
		AssetAmount: asset.Round(calculator.AssetPlaces),
		UnitPrice:   price.Round(calculator.PricePlaces),
		Wallet:      wallet,
		Date:        transactionDate,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.transactionRepo.InsertTransaction(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": transaction.ID,
		"asset_id":       assetID,
	}).Info("Transaction created")

	s.refreshPortfolio(userID)
	return transaction, nil
}

// refreshPortfolio re-reads the collection. A failed read is logged; the
// stored change stands and the next read picks it up.
func (s *TransactionService) refreshPortfolio(userID string) {
	if s.portfolio == nil {
		return
	}
	if _, err := s.portfolio.Refresh(userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to refresh portfolio")
	}
}
