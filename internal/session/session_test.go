package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *Manager {
	return NewManager(Config{Secret: []byte("test-secret"), TTL: time.Hour})
}

func TestIssueAndParse(t *testing.T) {
	m := newManager()
	player := uuid.New()

	issued, err := m.Issue(player)
	require.NoError(t, err)
	assert.Equal(t, player, issued.PlayerID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := m.Parse(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, player, claims.PlayerID)
	assert.Equal(t, player.String(), claims.Subject)
	assert.Equal(t, "riddle-gift", claims.Issuer)
}

func TestIssueGeneratesPlayerID(t *testing.T) {
	issued, err := newManager().Issue(uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, issued.PlayerID)
}

func TestParseRejectsBadTokens(t *testing.T) {
	m := newManager()
	issued, err := m.Issue(uuid.New())
	require.NoError(t, err)

	other := NewManager(Config{Secret: []byte("other-secret")})
	_, err = other.Parse(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = m.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{PlayerID: uuid.New()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	m := newManager()
	issued, err := m.Issue(uuid.New())
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws/game?token=query", nil)
	assert.Equal(t, "query", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie"})
	assert.Equal(t, "cookie", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", TokenFromRequest(r))
}

func TestMiddleware(t *testing.T) {
	m := newManager()
	issued, err := m.Issue(uuid.New())
	require.NoError(t, err)

	var seen string
	handler := Middleware(m, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PlayerIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid", header: "Bearer " + issued.Token, status: http.StatusNoContent},
		{name: "missing", status: http.StatusUnauthorized, body: "authentication_required"},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized, body: "invalid_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/v1/game", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, issued.PlayerID.String(), seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestSetCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, Issued{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}

func TestHandlerCreate(t *testing.T) {
	m := newManager()
	h := NewHandler(m, false, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/session", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var first Issued
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.NotEqual(t, uuid.Nil, first.PlayerID)
	require.Len(t, rec.Result().Cookies(), 1)

	req := httptest.NewRequest(http.MethodPost, "/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+first.Token)
	rec = httptest.NewRecorder()
	h.Create(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var renewed Issued
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &renewed))
	assert.Equal(t, first.PlayerID, renewed.PlayerID)
}
