package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"toychat/internal/api/dto"
	"toychat/internal/pkg/supabase"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProfileRepo 内存 profile 表
type fakeProfileRepo struct {
	byAccount map[string]string
	taken     map[string]bool
	created   map[string]string
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		byAccount: make(map[string]string),
		taken:     make(map[string]bool),
		created:   make(map[string]string),
	}
}

func (f *fakeProfileRepo) UsernameByAccount(_ context.Context, accountID string) (string, error) {
	return f.byAccount[accountID], nil
}

func (f *fakeProfileRepo) Exists(_ context.Context, username string) (bool, error) {
	return f.taken[username], nil
}

func (f *fakeProfileRepo) Create(_ context.Context, accountID, username string) error {
	f.created[accountID] = username
	f.byAccount[accountID] = username
	return nil
}

type authServer struct {
	*httptest.Server
	confirmationRequired bool
	rejectCredentials    bool
	// bareUser 模拟元数据丢失的账号
	bareUser       bool
	metadataWrites []map[string]any
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	s := &authServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.confirmationRequired {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    "acct-1",
				"email": "alice@example.com",
			})
			return
		}
		s.writeSession(w)
	})

	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.rejectCredentials {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
		s.writeSession(w)
	})

	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			var body struct {
				Data map[string]any `json:"data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			s.metadataWrites = append(s.metadataWrites, body.Data)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.sessionUser())
	})

	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *authServer) sessionUser() map[string]any {
	metadata := map[string]any{"username": "alice"}
	if s.bareUser {
		metadata = map[string]any{}
	}
	return map[string]any{
		"id":            "acct-1",
		"email":         "alice@example.com",
		"user_metadata": metadata,
	}
}

func (s *authServer) writeSession(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "header.payload.sig",
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": "refresh-1",
		"user":          s.sessionUser(),
	})
}

type sessionHarness struct {
	svc      SessionService
	profiles *fakeProfileRepo
	store    *fakeLocalStore
	server   *authServer
	tokens   []string
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		profiles: newFakeProfileRepo(),
		store:    newFakeLocalStore(),
		server:   newAuthServer(t),
	}
	sb := supabase.New(h.server.URL, "anon-key")
	h.svc = NewSessionService(sb, h.profiles, h.store)
	h.svc.SetTokenListener(func(token string) { h.tokens = append(h.tokens, token) })
	return h
}

func signUpReq() *dto.SignUpReq {
	return &dto.SignUpReq{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "hunter2hunter2",
		ConfirmPassword: "hunter2hunter2",
	}
}

func TestSignUpValidation(t *testing.T) {
	h := newSessionHarness(t)
	ctx := context.Background()

	req := signUpReq()
	req.Username = "bad name!"
	_, err := h.svc.SignUp(ctx, req)
	assert.ErrorIs(t, err, ErrUsernameFormat)

	req = signUpReq()
	req.Password = "short"
	req.ConfirmPassword = "short"
	_, err = h.svc.SignUp(ctx, req)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	req = signUpReq()
	req.ConfirmPassword = "different-password"
	_, err = h.svc.SignUp(ctx, req)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestSignUpRejectsTakenUsername(t *testing.T) {
	h := newSessionHarness(t)
	h.profiles.taken["alice"] = true

	_, err := h.svc.SignUp(context.Background(), signUpReq())
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSignUpConfirmationPendingStoresUsername(t *testing.T) {
	h := newSessionHarness(t)
	h.server.confirmationRequired = true

	result, err := h.svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)

	assert.True(t, result.ConfirmationRequired)
	assert.Nil(t, result.Account)
	assert.Equal(t, "alice", h.store.pending["alice@example.com"])
}

func TestSignUpImmediateSessionFinalizes(t *testing.T) {
	h := newSessionHarness(t)

	result, err := h.svc.SignUp(context.Background(), signUpReq())
	require.NoError(t, err)

	require.NotNil(t, result.Account)
	assert.Equal(t, "alice", result.Account.Username)
	assert.Equal(t, "refresh-1", h.store.sessions["acct-1"])
	assert.Contains(t, h.tokens, "header.payload.sig")
}

func TestSignInBadCredentials(t *testing.T) {
	h := newSessionHarness(t)
	h.server.rejectCredentials = true

	_, err := h.svc.SignIn(context.Background(), &dto.SignInReq{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSignInResolvesUsernameFromProfile(t *testing.T) {
	h := newSessionHarness(t)
	h.profiles.byAccount["acct-1"] = "wonderland"

	account, err := h.svc.SignIn(context.Background(), &dto.SignInReq{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "wonderland", account.Username)
}

func TestSignInHealsMissingProfileRow(t *testing.T) {
	h := newSessionHarness(t)

	account, err := h.svc.SignIn(context.Background(), &dto.SignInReq{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "alice", h.profiles.created["acct-1"])
}

func TestSignInRecoversUsernameFromPendingSignup(t *testing.T) {
	h := newSessionHarness(t)
	h.server.bareUser = true
	require.NoError(t, h.store.SavePendingUsername(context.Background(), "alice@example.com", "alice"))

	account, err := h.svc.SignIn(context.Background(), &dto.SignInReq{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "alice", h.profiles.created["acct-1"])
	// 暂存用户名被回写到账号元数据并清理
	require.Len(t, h.server.metadataWrites, 1)
	assert.Equal(t, "alice", h.server.metadataWrites[0]["username"])
	assert.NotContains(t, h.store.pending, "alice@example.com")
}

func TestCallbackWithMalformedURLIsSilentlyIgnored(t *testing.T) {
	h := newSessionHarness(t)

	account, err := h.svc.CompleteEmailConfirmation(context.Background(), "not a url at all ::")
	assert.NoError(t, err)
	assert.Nil(t, account)

	account, err = h.svc.CompleteEmailConfirmation(context.Background(), "toychat://auth#foo=bar")
	assert.NoError(t, err)
	assert.Nil(t, account)
}

func TestCallbackWithValidTokensSignsIn(t *testing.T) {
	h := newSessionHarness(t)

	claims := jwt.MapClaims{"sub": "acct-1", "exp": time.Now().Add(time.Hour).Unix()}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	url := "toychat://auth/callback#access_token=" + accessToken + "&refresh_token=refresh-1"
	account, err := h.svc.CompleteEmailConfirmation(context.Background(), url)
	require.NoError(t, err)

	require.NotNil(t, account)
	assert.Equal(t, "alice", account.Username)
}

func TestRestoreSessionWithoutLocalState(t *testing.T) {
	h := newSessionHarness(t)

	account, err := h.svc.RestoreSession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, account)
}

func TestRestoreSessionRefreshesStoredToken(t *testing.T) {
	h := newSessionHarness(t)
	require.NoError(t, h.store.SaveSession(context.Background(), "acct-1", "refresh-0"))

	account, err := h.svc.RestoreSession(context.Background())
	require.NoError(t, err)

	require.NotNil(t, account)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "refresh-1", h.store.sessions["acct-1"])
}
