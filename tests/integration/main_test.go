//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealthz(t *testing.T) {
	resp, err := http.Get(baseURL() + "/healthz")
	if err != nil {
		t.Fatalf("health check request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}
}

func TestSessionIsReused(t *testing.T) {
	first, status := createSession(t, "")
	if status != http.StatusCreated {
		t.Fatalf("expected 201 for a new player, got %d", status)
	}

	again, status := createSession(t, first.Token)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for a known player, got %d", status)
	}
	if again.PlayerID != first.PlayerID {
		t.Fatalf("player changed: %s vs %s", first.PlayerID, again.PlayerID)
	}
}

func TestGameRequiresSession(t *testing.T) {
	resp := makeAuthenticatedRequest(t, http.MethodGet, gamePath(""), "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errResp map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response failed: %v", err)
	}
	if errResp["error"] == nil {
		t.Fatal("error field is missing")
	}
}

func TestHintsAndReset(t *testing.T) {
	player, _ := createSession(t, "")

	view := decodeView(t, makeAuthenticatedRequest(t, http.MethodGet, gamePath(""), player.Token, nil))
	if !view.Welcome || view.Question == nil {
		t.Fatalf("new player should see the welcome and a question: %+v", view)
	}
	first := view.Question.ID

	for i := 1; i <= view.Question.HintCount; i++ {
		hinted := decodeView(t, makeAuthenticatedRequest(t, http.MethodPost, gamePath("/hints"), player.Token, nil))
		if got := len(hinted.Question.RevealedHints); got != i {
			t.Fatalf("expected %d hints, got %d", i, got)
		}
	}

	resp := makeAuthenticatedRequest(t, http.MethodPost, gamePath("/hints"), player.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 once hints run out, got %d", resp.StatusCode)
	}

	reset := decodeView(t, makeAuthenticatedRequest(t, http.MethodPost, gamePath("/reset"), player.Token, nil))
	if reset.Question == nil || reset.Question.ID != first || len(reset.Question.RevealedHints) != 0 {
		t.Fatalf("reset did not return to the first question: %+v", reset)
	}
}

func TestEmptyAnswerIsRejected(t *testing.T) {
	player, _ := createSession(t, "")

	resp := makeAuthenticatedRequest(t, http.MethodPost, gamePath("/answers"), player.Token, map[string]string{"answer": "  "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
