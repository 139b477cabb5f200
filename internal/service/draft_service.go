package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/cryptofolio/internal/api/request"
	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/calculator"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/validation"
)

// DraftState is the externally visible state of a user's draft.
type DraftState struct {
	Fields  calculator.Fields `json:"fields"`
	Pending bool              `json:"pending"`
}

// DraftService keeps one debounced calculator draft per signed-in user.
// Once a user has no session left their draft is closed, and no new one is
// opened until they sign in again.
type DraftService struct {
	transactions *TransactionService
	window       time.Duration
	logger       logrus.FieldLogger

	mu        sync.Mutex
	drafts    map[string]*calculator.Draft
	signedOut map[string]struct{}
}

// NewDraftService creates a new DraftService. window is the debounce delay
// between the last edit and the derivation.
func NewDraftService(transactions *TransactionService, window time.Duration, logger logrus.FieldLogger) *DraftService {
	return &DraftService{
		transactions: transactions,
		window:       window,
		logger:       logger,
		drafts:       make(map[string]*calculator.Draft),
		signedOut:    make(map[string]struct{}),
	}
}

// Edit records one edit of an amount field and (re)schedules derivation.
func (s *DraftService) Edit(userID, fieldName, value string) (DraftState, error) {
	field, ok := calculator.ParseField(fieldName)
	if !ok {
		return DraftState{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownField, fieldName)
	}

	d, err := s.draft(userID)
	if err != nil {
		return DraftState{}, err
	}
	d.Set(field, value)
	return DraftState{Fields: d.Fields(), Pending: d.Pending()}, nil
}

// Get returns the current draft of a user; an empty one if none exists.
func (s *DraftService) Get(userID string) DraftState {
	s.mu.Lock()
	d, ok := s.drafts[userID]
	s.mu.Unlock()
	if !ok {
		return DraftState{}
	}
	return DraftState{Fields: d.Fields(), Pending: d.Pending()}
}

// Cancel empties a user's draft and drops pending derivation.
func (s *DraftService) Cancel(userID string) {
	s.mu.Lock()
	d, ok := s.drafts[userID]
	s.mu.Unlock()
	if ok {
		d.Reset()
	}
}

// Submit runs any pending derivation, stores the purchase and resets the
// draft. A draft with a missing amount is left untouched and an error
// wrapping both ErrIncompleteDraft and the field errors is returned.
// Edits made while the purchase is being stored are kept for the next one.
func (s *DraftService) Submit(ctx context.Context, userID string, req request.SubmitDraftRequest) (*model.Transaction, error) {
	d, err := s.draft(userID)
	if err != nil {
		return nil, err
	}
	res, edits := d.Snapshot()

	if err := validation.ValidateAmounts(res.Fields); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrIncompleteDraft, err)
	}

	tx, err := s.transactions.createFromFields(ctx, userID, res.Fields, req.AssetID, req.Wallet, req.Date)
	if err != nil {
		return nil, err
	}

	if !d.ResetIfUnchanged(edits) {
		s.logger.WithField("user_id", userID).Debug("Draft edited during submit, kept")
	}
	return tx, nil
}

// HandleSessionChange closes a user's draft once they have no session and
// allows a new one when they sign in again.
func (s *DraftService) HandleSessionChange(ev model.SessionEvent) {
	s.mu.Lock()
	if ev.Session != nil {
		delete(s.signedOut, ev.UserID)
		s.mu.Unlock()
		return
	}
	d, ok := s.drafts[ev.UserID]
	delete(s.drafts, ev.UserID)
	s.signedOut[ev.UserID] = struct{}{}
	s.mu.Unlock()

	if ok {
		d.Close()
		s.logger.WithField("user_id", ev.UserID).Debug("Draft closed")
	}
}

// Close tears down every draft.
func (s *DraftService) Close() {
	s.mu.Lock()
	drafts := s.drafts
	s.drafts = make(map[string]*calculator.Draft)
	s.mu.Unlock()

	for _, d := range drafts {
		d.Close()
	}
}

func (s *DraftService) draft(userID string) (*calculator.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, out := s.signedOut[userID]; out {
		return nil, apperrors.ErrSessionExpired
	}

	d, ok := s.drafts[userID]
	if !ok {
		log := s.logger.WithField("user_id", userID)
		d = calculator.NewDraft(s.window, calculator.WithOnDerive(func(r calculator.Result) {
			if r.Derived != calculator.FieldNone {
				log.WithField("field", r.DerivedName()).Debug("Draft field derived")
			}
		}))
		s.drafts[userID] = d
	}
	return d, nil
}
