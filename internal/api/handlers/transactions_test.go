package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/cryptofolio/internal/database"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/testutil"
)

// sessionFor is the session the auth middleware would attach for user.
func sessionFor(user model.User) *model.Session {
	return &model.Session{
		ID:        testutil.MakeID(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestTransactionHandler_Transactions(t *testing.T) {
	setupHandler := func(t *testing.T) (*TransactionHandler, *sql.DB, model.User) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		user := testutil.CreateUser(t, db)
		ts := testutil.NewTestTransactionService(t, db, nil)
		return NewTransactionHandler(ts), db, user
	}

	t.Run("returns empty list when the user has no purchases", func(t *testing.T) {
		handler, _, user := setupHandler(t)

		req := testutil.WithSession(httptest.NewRequest(http.MethodGet, "/api/transaction", nil), sessionFor(user))
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if body := w.Body.String(); body != "[]\n" {
			t.Errorf("Expected empty JSON array, got %s", body)
		}
	})

	t.Run("returns own purchases newest first", func(t *testing.T) {
		handler, db, user := setupHandler(t)
		other := testutil.CreateUser(t, db)

		older := testutil.NewTransaction(user.ID).WithDate(date("2024-01-01")).Build(t, db)
		newer := testutil.NewTransaction(user.ID).WithDate(date("2024-03-01")).Build(t, db)
		testutil.NewTransaction(other.ID).Build(t, db)

		req := testutil.WithSession(httptest.NewRequest(http.MethodGet, "/api/transaction", nil), sessionFor(user))
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response []model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if len(response) != 2 {
			t.Fatalf("Expected 2 transactions, got %d", len(response))
		}
		if response[0].ID != newer.ID || response[1].ID != older.ID {
			t.Errorf("Expected newest first, got %s then %s", response[0].ID, response[1].ID)
		}
	})

	t.Run("applies query filters", func(t *testing.T) {
		handler, db, user := setupHandler(t)

		testutil.NewTransaction(user.ID).WithWallet("Kraken").WithDate(date("2024-02-01")).Build(t, db)
		testutil.NewTransaction(user.ID).WithWallet("Ledger").WithDate(date("2024-02-02")).Build(t, db)
		testutil.NewTransaction(user.ID).WithWallet("Kraken").WithDate(date("2023-02-01")).Build(t, db)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/transaction", map[string]string{
			"wallet":    "Kraken",
			"startDate": "2024-01-01",
		})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response []model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if len(response) != 1 || response[0].Wallet != "Kraken" {
			t.Errorf("Expected the single 2024 Kraken purchase, got %+v", response)
		}
	})

	t.Run("rejects an invalid filter", func(t *testing.T) {
		handler, _, user := setupHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/transaction", map[string]string{
			"limit": "0",
		})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 500 on database error", func(t *testing.T) {
		handler, db, user := setupHandler(t)
		db.Close()

		req := testutil.WithSession(httptest.NewRequest(http.MethodGet, "/api/transaction", nil), sessionFor(user))
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 401 without a session", func(t *testing.T) {
		handler, _, _ := setupHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/transaction", nil)
		w := httptest.NewRecorder()

		handler.Transactions(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	setupHandler := func(t *testing.T) (*TransactionHandler, *sql.DB, model.User) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		user := testutil.CreateUser(t, db)
		return NewTransactionHandler(testutil.NewTestTransactionService(t, db, nil)), db, user
	}

	t.Run("returns the purchase", func(t *testing.T) {
		handler, db, user := setupHandler(t)
		tx := testutil.NewTransaction(user.ID).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transaction/"+tx.ID, map[string]string{"uuid": tx.ID})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.GetTransaction(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response.ID != tx.ID || !response.FiatAmount.Equal(tx.FiatAmount) {
			t.Errorf("Expected %+v, got %+v", tx, response)
		}
	})

	t.Run("hides purchases of other users", func(t *testing.T) {
		handler, db, user := setupHandler(t)
		other := testutil.CreateUser(t, db)
		tx := testutil.NewTransaction(other.ID).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transaction/"+tx.ID, map[string]string{"uuid": tx.ID})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.GetTransaction(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	setupHandler := func(t *testing.T) (*TransactionHandler, *sql.DB, model.User) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		user := testutil.CreateUser(t, db)
		return NewTransactionHandler(testutil.NewTestTransactionService(t, db, nil)), db, user
	}

	t.Run("creates a purchase from two amounts", func(t *testing.T) {
		handler, db, user := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/transaction", map[string]string{
			"fiatAmount":  "250",
			"assetAmount": "0.005",
			"date":        "2024-05-01",
		})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var response model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if !response.UnitPrice.Equal(decimal.NewFromInt(50000)) {
			t.Errorf("Expected derived unit price 50000, got %s", response.UnitPrice)
		}
		if response.AssetID != database.DefaultAssetID {
			t.Errorf("Expected default asset, got %s", response.AssetID)
		}
		if response.Wallet != "Exchange" {
			t.Errorf("Expected default wallet 'Exchange', got '%s'", response.Wallet)
		}
		if response.UserID != user.ID {
			t.Errorf("Expected owner %s, got %s", user.ID, response.UserID)
		}
		testutil.AssertRowCount(t, db, "transaction", 1)
	})

	t.Run("rejects a purchase with only one amount", func(t *testing.T) {
		handler, db, user := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/transaction", map[string]string{
			"fiatAmount": "250",
			"date":       "2024-05-01",
		})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
		body := decodeError(t, w)
		if details, ok := body.Details.(map[string]any); !ok || details["amounts"] == nil {
			t.Errorf("Expected amounts error, got %v", body.Details)
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		handler, _, user := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/transaction",
			`{"fiatAmount":"1","assetAmount":"1","date":"2024-05-01","fee":"2"}`)
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for an unknown asset", func(t *testing.T) {
		handler, _, user := setupHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/transaction", map[string]string{
			"assetId":     testutil.MakeID(),
			"fiatAmount":  "250",
			"assetAmount": "0.005",
			"date":        "2024-05-01",
		})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	setupHandler := func(t *testing.T) (*TransactionHandler, *sql.DB, model.User) {
		t.Helper()
		db := testutil.SetupTestDB(t)
		user := testutil.CreateUser(t, db)
		return NewTransactionHandler(testutil.NewTestTransactionService(t, db, nil)), db, user
	}

	t.Run("deletes the purchase", func(t *testing.T) {
		handler, db, user := setupHandler(t)
		tx := testutil.NewTransaction(user.ID).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/transaction/"+tx.ID, map[string]string{"uuid": tx.ID})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.DeleteTransaction(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})

	t.Run("returns 404 for another user's purchase", func(t *testing.T) {
		handler, db, user := setupHandler(t)
		other := testutil.CreateUser(t, db)
		tx := testutil.NewTransaction(other.ID).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/transaction/"+tx.ID, map[string]string{"uuid": tx.ID})
		req = testutil.WithSession(req, sessionFor(user))
		w := httptest.NewRecorder()

		handler.DeleteTransaction(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
		testutil.AssertRowCount(t, db, "transaction", 1)
	})
}
