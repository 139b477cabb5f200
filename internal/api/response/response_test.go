package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	t.Run("sets content-type and status code", func(t *testing.T) {
		w := httptest.NewRecorder()

		RespondJSON(w, http.StatusCreated, map[string]string{"id": "x"})

		if w.Code != http.StatusCreated {
			t.Errorf("Expected 201, got %d", w.Code)
		}
		if w.Header().Get("Content-Type") != "application/json" {
			t.Errorf("Expected application/json, got %q", w.Header().Get("Content-Type"))
		}
	})

	t.Run("nil data writes no body", func(t *testing.T) {
		w := httptest.NewRecorder()

		RespondJSON(w, http.StatusNoContent, nil)

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected 204, got %d", w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("Expected empty body, got %q", w.Body.String())
		}
	})

	t.Run("un-encodable data keeps the status", func(t *testing.T) {
		w := httptest.NewRecorder()

		RespondJSON(w, http.StatusOK, make(chan int))

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})
}

func TestRespondError(t *testing.T) {
	t.Run("field details", func(t *testing.T) {
		w := httptest.NewRecorder()

		RespondError(w, http.StatusBadRequest, "validation failed", map[string]string{"date": "date is required"})

		var body struct {
			Error   string            `json:"error"`
			Details map[string]string `json:"details"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body.Error != "validation failed" || body.Details["date"] != "date is required" {
			t.Errorf("Unexpected body %+v", body)
		}
	})

	t.Run("empty details are omitted", func(t *testing.T) {
		w := httptest.NewRecorder()

		RespondError(w, http.StatusNotFound, "transaction not found", "")

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if _, ok := body["details"]; ok {
			t.Errorf("Expected no details, got %v", body["details"])
		}
	})
}
