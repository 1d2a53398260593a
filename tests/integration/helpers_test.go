//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
)

type sessionInfo struct {
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}

type questionView struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	RevealedHints []string `json:"revealed_hints"`
	HintCount     int      `json:"hint_count"`
}

type gameView struct {
	PlayerID           string        `json:"player_id"`
	Question           *questionView `json:"question"`
	Position           int           `json:"position"`
	Total              int           `json:"total"`
	CompletedQuestions []int         `json:"completed_questions"`
	Complete           bool          `json:"complete"`
	Welcome            bool          `json:"welcome"`
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

func createSession(t *testing.T, token string) (sessionInfo, int) {
	t.Helper()

	resp := makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/v1/session", token, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected session response status: %d", resp.StatusCode)
	}

	var out sessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session response failed: %v", err)
	}
	if out.Token == "" {
		t.Fatalf("empty token in session response")
	}
	return out, resp.StatusCode
}

func makeAuthenticatedRequest(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeView(t *testing.T, resp *http.Response) gameView {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}
	var view gameView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode game view: %v", err)
	}
	return view
}

func gamePath(path string) string {
	return fmt.Sprintf("%s/v1/game%s", baseURL(), path)
}
