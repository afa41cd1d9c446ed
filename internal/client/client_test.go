package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/girs/internal/client"
	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/metrics"
	"github.com/raphaelgruber/girs/internal/models"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token() (string, error) { return "", errors.New("disk on fire") }

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestBearerInjection(t *testing.T) {
	tests := []struct {
		name   string
		tokens client.TokenSource
		want   string
	}{
		{"token present", staticToken("abc"), "Bearer abc"},
		{"empty token", staticToken(""), ""},
		{"no token source", nil, ""},
		{"storage error", failingToken{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(chan string, 1)
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				got <- r.Header.Get("Authorization")
				_, _ = w.Write([]byte(`[]`))
			})

			c := client.New(srv.URL, client.WithTokenSource(tt.tokens))
			_, err := c.ListConversations(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, <-got)
		})
	}
}

func TestUnauthorizedRaisesSignalOncePerCall(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Token expired"}`))
	})

	c := client.New(srv.URL, client.WithTokenSource(staticToken("stale")))
	var raised atomic.Int32
	unsubscribe := c.Unauthorized().Subscribe(func() { raised.Add(1) })
	defer unsubscribe()

	_, err := c.GetMessages(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Equal(t, int32(1), raised.Load())

	_, err = c.ListConversations(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), raised.Load())

	unsubscribe()
	_, _ = c.ListConversations(context.Background())
	assert.Equal(t, int32(2), raised.Load())
}

func TestUnauthorizedWithTruncatedBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"mes`))
	})

	c := client.New(srv.URL, client.WithTokenSource(staticToken("stale")))
	var raised atomic.Int32
	defer c.Unauthorized().Subscribe(func() { raised.Add(1) })()

	_, err := c.ListConversations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	assert.Equal(t, int32(1), raised.Load())
}

func TestErrorMessageNormalization(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message string", `{"message": "Email already registered"}`, "Email already registered"},
		{"message array", `{"message": ["email must be an email", "password too short"]}`, "email must be an email"},
		{"error field", `{"error": "Bad Request"}`, "Bad Request"},
		{"message wins over error", `{"message": "specific", "error": "Bad Request"}`, "specific"},
		{"empty array falls to error", `{"message": [], "error": "Bad Request"}`, "Bad Request"},
		{"nothing usable", `{"statusCode": 500}`, client.DefaultErrorMessage},
		{"not json", `<html>502</html>`, client.DefaultErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.ErrorMessage([]byte(tt.body), client.DefaultErrorMessage))
		})
	}
}

func TestAPIErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, apperrors.ErrNotFound},
		{http.StatusBadRequest, apperrors.ErrValidation},
		{http.StatusUnprocessableEntity, apperrors.ErrValidation},
		{http.StatusUnauthorized, apperrors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message": "nope"}`))
			})

			_, err := client.New(srv.URL).ListConversations(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := client.New(url).ListConversations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestLogin(t *testing.T) {
	t.Run("user in response", func(t *testing.T) {
		bodies := make(chan map[string]string, 1)
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/login", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			bodies <- body
			_, _ = w.Write([]byte(`{"access_token": "jwt-1", "user": {"id": "u1", "email": "a@b.co", "nombre": "Ana", "apellido": "Ruiz"}}`))
		})

		res, err := client.New(srv.URL).Login(context.Background(), models.LoginInput{Email: "a@b.co", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, "jwt-1", res.Token)
		require.NotNil(t, res.User)
		assert.Equal(t, "Ana Ruiz", res.User.Name)
		body := <-bodies
		assert.Equal(t, "a@b.co", body["email"])
		assert.Equal(t, "secret123", body["password"])
	})

	t.Run("token only", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"token": "jwt-2"}`))
		})

		res, err := client.New(srv.URL).Login(context.Background(), models.LoginInput{Email: "a@b.co", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, "jwt-2", res.Token)
		assert.Nil(t, res.User)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message": "Credenciales incorrectas"}`))
		})

		_, err := client.New(srv.URL).Login(context.Background(), models.LoginInput{Email: "a@b.co", Password: "wrongpass"})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		assert.Contains(t, err.Error(), "Credenciales incorrectas")
	})
}

func TestProfile(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/my", r.URL.Path)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id": "u1", "email": "dana@example.com", "nombreCompleto": "Dana Soto"}`))
	})

	user, err := client.New(srv.URL, client.WithTokenSource(staticToken("t"))).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dana Soto", user.Name)
}

func TestAuthEndpoints(t *testing.T) {
	type call struct {
		method string
		path   string
	}
	var (
		mu    sync.Mutex
		calls []call
	)
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.EscapedPath()})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	c := client.New(srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, models.RegisterInput{Name: "Ana", Email: "a@b.co", Password: "Secret123"}))
	require.NoError(t, c.ConfirmEmail(ctx, "tok/en"))
	require.NoError(t, c.ForgotPassword(ctx, models.ForgotPasswordInput{Email: "a@b.co"}))
	require.NoError(t, c.VerifyOTP(ctx, models.VerifyOTPInput{Email: "a@b.co", OTP: "123456"}))
	require.NoError(t, c.ResetPassword(ctx, models.ResetPasswordInput{Email: "a@b.co", NewPassword: "Secret456"}))
	require.NoError(t, c.Logout(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []call{
		{http.MethodPost, "/auth/register"},
		{http.MethodGet, "/auth/confirm-email/tok%2Fen"},
		{http.MethodPost, "/auth/forgot-password"},
		{http.MethodPost, "/auth/verify-otp"},
		{http.MethodPost, "/auth/reset-password"},
		{http.MethodPost, "/auth/logout"},
	}, calls)
}

func TestRegisterConflictIsValidation(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message": "El correo ya está registrado"}`))
	})

	err := client.New(srv.URL).Register(context.Background(), models.RegisterInput{Name: "Ana", Email: "a@b.co", Password: "Secret123"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetMessagesPairedShape(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/conversations/s1", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": "p1", "userMessage": "hola", "botResponse": "¡Hola!", "createdAt": "2025-03-01T10:00:00Z"}]`))
	})

	msgs, err := client.New(srv.URL).GetMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))
}

func TestSendMessage(t *testing.T) {
	bodies := make(chan map[string]string, 1)
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/message", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		_, _ = w.Write([]byte(`{"respuesta": "Claro que sí"}`))
	})

	sent := time.Now()
	reply, err := client.New(srv.URL).SendMessage(context.Background(), "s1", "¿Me ayudas?", sent)
	require.NoError(t, err)
	body := <-bodies
	assert.Equal(t, "s1", body["sessionId"])
	assert.Equal(t, "¿Me ayudas?", body["message"])
	assert.Equal(t, "Claro que sí", reply.Content)
	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.True(t, reply.CreatedAt.After(sent))
}

func TestMetricsRecorded(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/my" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	collector := metrics.NewCollector()
	c := client.New(srv.URL, client.WithMetrics(collector))
	_, _ = c.ListConversations(context.Background())
	_, _ = c.ListConversations(context.Background())
	_, _ = c.Profile(context.Background())

	snap := collector.Snapshot()
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, "list_conversations", snap.Operations[0].Operation)
	assert.Equal(t, int64(2), snap.Operations[0].Count)
	assert.Equal(t, "profile", snap.Operations[1].Operation)
	assert.Equal(t, int64(1), snap.Operations[1].Failures)
}

func TestUserMessage(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": ["name must be longer than or equal to 2 characters"]}`))
	})

	err := client.New(srv.URL).Register(context.Background(), models.RegisterInput{Name: "A"})
	require.Error(t, err)
	assert.Equal(t, "name must be longer than or equal to 2 characters", client.UserMessage(err))
	assert.Equal(t, "", client.UserMessage(nil))
	assert.Equal(t, "boom", client.UserMessage(errors.New("boom")))
}
