package authserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Error codes written in the JSON error body.
const (
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeInvalidAccessToken  = "INVALID_ACCESS_TOKEN"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeBadRequest          = "BAD_REQUEST"
)

var errUserExists = errors.New("user already exists")

// Config configures a Server.
type Config struct {
	Signer *jwt.Signer
	// Store keeps refresh-token records. Defaults to storage.NewMemory().
	Store  storage.Store
	Hasher *Hasher
	Clock  clock.Clock
	Logger zerolog.Logger
	// RefreshLatency delays every refresh response, to widen the window in
	// which concurrent client refreshes overlap.
	RefreshLatency time.Duration
}

type account struct {
	subject      jwt.Subject
	email        string
	name         string
	passwordHash string
}

type refreshRecord struct {
	UserID  string `json:"userId"`
	Family  string `json:"family"`
	Rotated bool   `json:"rotated"`
}

// Server implements the auth endpoints.
type Server struct {
	signer  *jwt.Signer
	kv      storage.Store
	hasher  *Hasher
	clock   clock.Clock
	log     zerolog.Logger
	latency time.Duration

	mu      sync.Mutex
	byEmail map[string]*account
	byID    map[string]*account

	refreshCalls atomic.Uint64
	reuseEvents  atomic.Uint64
}

// New builds a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Signer == nil {
		return nil, errors.New("authserver: signer is required")
	}
	if cfg.Store == nil {
		cfg.Store = storage.NewMemory()
	}
	if cfg.Hasher == nil {
		h, err := NewHasher(DefaultHasherConfig())
		if err != nil {
			return nil, err
		}
		cfg.Hasher = h
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Server{
		signer:  cfg.Signer,
		kv:      cfg.Store,
		hasher:  cfg.Hasher,
		clock:   cfg.Clock,
		log:     cfg.Logger.With().Str("component", "authserver").Logger(),
		latency: cfg.RefreshLatency,
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
	}, nil
}

// AddUser registers an account directly, bypassing the HTTP endpoint. An
// empty subject.UserID gets a generated id.
func (s *Server) AddUser(email, password string, subject jwt.Subject) (jwt.Subject, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return jwt.Subject{}, err
	}
	if subject.UserID == "" {
		subject.UserID = uuid.NewString()
	}
	if subject.Role == "" {
		subject.Role = jwt.RoleMember
	}
	if !subject.Role.IsValid() {
		return jwt.Subject{}, fmt.Errorf("invalid role %q", subject.Role)
	}

	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return jwt.Subject{}, errUserExists
	}
	acc := &account{subject: subject, email: email, passwordHash: hash}
	s.byEmail[email] = acc
	s.byID[subject.UserID] = acc
	return subject, nil
}

// SetVerified flips the verified flag of the account with email. Tokens
// issued afterwards carry the new value.
func (s *Server) SetVerified(email string, verified bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byEmail[normalizeEmail(email)]
	if ok {
		acc.subject.IsVerified = verified
	}
	return ok
}

// RefreshCalls reports how many refresh requests reached the server.
func (s *Server) RefreshCalls() uint64 {
	return s.refreshCalls.Load()
}

// ReuseEvents reports how many replayed refresh tokens were detected.
func (s *Server) ReuseEvents() uint64 {
	return s.reuseEvents.Load()
}

// Handler returns the HTTP routes mounted at the default endpoint paths.
func (s *Server) Handler() http.Handler {
	e := authapi.DefaultEndpoints()
	r := chi.NewRouter()
	r.Post(e.Login, s.handleLogin)
	r.Post(e.Register, s.handleRegister)
	r.Get(e.Me, s.handleMe)
	r.Post(e.Refresh, s.handleRefresh)
	r.Post(e.Logout, s.handleLogout)
	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid json body")
		return
	}

	s.mu.Lock()
	acc, ok := s.byEmail[normalizeEmail(in.Email)]
	var hash string
	if ok {
		hash = acc.passwordHash
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
		return
	}
	match, err := s.hasher.Verify(in.Password, hash)
	if err != nil || !match {
		writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
		return
	}

	tokens, err := s.issue(r.Context(), acc, uuid.NewString())
	if err != nil {
		s.log.Error().Err(err).Msg("issue tokens on login")
		writeError(w, http.StatusInternalServerError, "", "")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in authapi.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Email) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "email and password are required")
		return
	}

	subject, err := s.AddUser(in.Email, in.Password, jwt.Subject{Role: in.Role, InstituteID: in.InstituteID})
	if errors.Is(err, errUserExists) {
		writeError(w, http.StatusConflict, CodeEmailTaken, "email already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acc := s.byID[subject.UserID]
	acc.name = in.Name
	s.mu.Unlock()

	tokens, err := s.issue(r.Context(), acc, uuid.NewString())
	if err != nil {
		s.log.Error().Err(err).Msg("issue tokens on register")
		writeError(w, http.StatusInternalServerError, "", "")
		return
	}
	writeJSON(w, http.StatusCreated, tokens)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims, err := s.signer.VerifyAt(bearer, s.clock.Now())
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeInvalidAccessToken, "invalid access token")
		return
	}

	s.mu.Lock()
	acc, ok := s.byID[claims.UserID]
	var user authapi.User
	if ok {
		user = authapi.User{
			ID:          acc.subject.UserID,
			Email:       acc.email,
			Name:        acc.name,
			Role:        acc.subject.Role,
			IsVerified:  acc.subject.IsVerified,
			InstituteID: acc.subject.InstituteID,
		}
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, CodeInvalidAccessToken, "unknown user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]authapi.User{"user": user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, CodeInvalidRefreshToken, "refresh token required")
		return
	}

	tokens, code, err := s.rotate(r.Context(), in.RefreshToken)
	if err != nil {
		if code == authapi.CodeTokenReuse {
			s.log.Warn().Msg("refresh token reuse detected, family revoked")
		}
		writeError(w, http.StatusUnauthorized, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.RefreshToken != "" {
		s.mu.Lock()
		if rec, err := s.loadRecord(r.Context(), in.RefreshToken); err == nil {
			s.revokeFamily(r.Context(), rec.Family)
		}
		s.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

// rotate exchanges a refresh token for a new pair in the same family.
func (s *Server) rotate(ctx context.Context, presented string) (authapi.Tokens, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadRecord(ctx, presented)
	if err != nil {
		return authapi.Tokens{}, CodeInvalidRefreshToken, errors.New("unknown refresh token")
	}
	if s.familyRevoked(ctx, rec.Family) {
		return authapi.Tokens{}, CodeInvalidRefreshToken, errors.New("refresh token revoked")
	}
	if rec.Rotated {
		s.reuseEvents.Add(1)
		s.revokeFamily(ctx, rec.Family)
		return authapi.Tokens{}, authapi.CodeTokenReuse, errors.New("refresh token already used")
	}

	acc, ok := s.byID[rec.UserID]
	if !ok {
		return authapi.Tokens{}, CodeInvalidRefreshToken, errors.New("unknown user")
	}

	rec.Rotated = true
	if err := s.saveRecord(ctx, presented, rec); err != nil {
		return authapi.Tokens{}, CodeInvalidRefreshToken, err
	}
	tokens, err := s.issueLocked(ctx, acc, rec.Family)
	if err != nil {
		return authapi.Tokens{}, CodeInvalidRefreshToken, err
	}
	return tokens, "", nil
}

func (s *Server) issue(ctx context.Context, acc *account, family string) (authapi.Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(ctx, acc, family)
}

func (s *Server) issueLocked(ctx context.Context, acc *account, family string) (authapi.Tokens, error) {
	access, err := s.signer.Issue(acc.subject, s.clock.Now())
	if err != nil {
		return authapi.Tokens{}, err
	}
	refresh := uuid.NewString()
	if err := s.saveRecord(ctx, refresh, refreshRecord{UserID: acc.subject.UserID, Family: family}); err != nil {
		return authapi.Tokens{}, err
	}
	return authapi.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Server) loadRecord(ctx context.Context, refresh string) (refreshRecord, error) {
	raw, err := s.kv.Get(ctx, "rt:"+refresh)
	if err != nil {
		return refreshRecord{}, err
	}
	var rec refreshRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return refreshRecord{}, err
	}
	return rec, nil
}

func (s *Server) saveRecord(ctx context.Context, refresh string, rec refreshRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, "rt:"+refresh, string(data))
}

func (s *Server) familyRevoked(ctx context.Context, family string) bool {
	_, err := s.kv.Get(ctx, "rf:"+family)
	return err == nil
}

func (s *Server) revokeFamily(ctx context.Context, family string) {
	if err := s.kv.Set(ctx, "rf:"+family, "revoked"); err != nil {
		s.log.Warn().Err(err).Msg("revoke refresh family")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, authapi.APIError{Code: code, Message: message})
}
