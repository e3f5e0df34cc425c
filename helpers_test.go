package goSession

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/storage"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeAccount struct {
	password string
	user     authapi.User
}

// fakeAPI is an in-process auth server driven by the test clock.
type fakeAPI struct {
	signer *jwt.Signer
	clock  clock.Clock

	mu         sync.Mutex
	accounts   map[string]fakeAccount
	refreshTok map[string]string
	seq        int
	meErr      error
	refreshErr error
	// rejectMe answers that many profile requests with 401.
	rejectMe int

	meEntered      chan struct{}
	meRelease      chan struct{}
	loginEntered   chan struct{}
	loginRelease   chan struct{}
	refreshEntered chan struct{}
	refreshRelease chan struct{}

	meCalls      atomic.Int32
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

func newFakeAPI(t testing.TB, clk clock.Clock) *fakeAPI {
	t.Helper()
	signer, err := jwt.NewSigner(jwt.Config{
		AccessTTL:     time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("session-client-test-secret-00000"),
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return &fakeAPI{
		signer:     signer,
		clock:      clk,
		accounts:   make(map[string]fakeAccount),
		refreshTok: make(map[string]string),
	}
}

func (f *fakeAPI) addUser(email, password string, user authapi.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.Email = email
	f.accounts[email] = fakeAccount{password: password, user: user}
}

func (f *fakeAPI) setRefreshErr(err error) {
	f.mu.Lock()
	f.refreshErr = err
	f.mu.Unlock()
}

func (f *fakeAPI) setMeErr(err error) {
	f.mu.Lock()
	f.meErr = err
	f.mu.Unlock()
}

func (f *fakeAPI) userByID(id string) (authapi.User, bool) {
	for _, acc := range f.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return authapi.User{}, false
}

// issueLocked mints a pair for user.
func (f *fakeAPI) issueLocked(user authapi.User) (authapi.Tokens, error) {
	access, err := f.signer.Issue(jwt.Subject{
		UserID:      user.ID,
		Role:        user.Role,
		IsVerified:  user.IsVerified,
		InstituteID: user.InstituteID,
	}, f.clock.Now())
	if err != nil {
		return authapi.Tokens{}, err
	}
	f.seq++
	rt := fmt.Sprintf("rt-%d", f.seq)
	f.refreshTok[rt] = user.ID
	return authapi.Tokens{AccessToken: access, RefreshToken: rt}, nil
}

func (f *fakeAPI) issueFor(t *testing.T, email string) authapi.Tokens {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, err := f.issueLocked(f.accounts[email].user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tokens
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (authapi.Tokens, error) {
	if f.loginEntered != nil {
		f.loginEntered <- struct{}{}
		<-f.loginRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return authapi.Tokens{}, &authapi.APIError{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS"}
	}
	return f.issueLocked(acc.user)
}

func (f *fakeAPI) Register(ctx context.Context, in authapi.RegisterInput) (authapi.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[in.Email]; ok {
		return authapi.Tokens{}, &authapi.APIError{Status: http.StatusConflict, Code: "EMAIL_TAKEN"}
	}
	f.seq++
	user := authapi.User{
		ID:          fmt.Sprintf("u-%d", f.seq),
		Email:       in.Email,
		Name:        in.Name,
		Role:        in.Role,
		InstituteID: in.InstituteID,
	}
	if user.Role == "" {
		user.Role = jwt.RoleMember
	}
	f.accounts[in.Email] = fakeAccount{password: in.Password, user: user}
	return f.issueLocked(user)
}

func (f *fakeAPI) Me(ctx context.Context, accessToken string) (authapi.User, error) {
	f.meCalls.Add(1)
	if f.meEntered != nil {
		f.meEntered <- struct{}{}
		<-f.meRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return authapi.User{}, f.meErr
	}
	if f.rejectMe > 0 {
		f.rejectMe--
		return authapi.User{}, &authapi.APIError{Status: http.StatusUnauthorized, Code: "INVALID_ACCESS_TOKEN"}
	}
	claims, err := f.signer.VerifyAt(accessToken, f.clock.Now())
	if err != nil {
		return authapi.User{}, &authapi.APIError{Status: http.StatusUnauthorized, Code: "INVALID_ACCESS_TOKEN"}
	}
	user, ok := f.userByID(claims.UserID)
	if !ok {
		return authapi.User{}, &authapi.APIError{Status: http.StatusUnauthorized}
	}
	return user, nil
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (authapi.Tokens, error) {
	f.refreshCalls.Add(1)
	if f.refreshEntered != nil {
		f.refreshEntered <- struct{}{}
		<-f.refreshRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return authapi.Tokens{}, f.refreshErr
	}
	userID, ok := f.refreshTok[refreshToken]
	if !ok {
		return authapi.Tokens{}, &authapi.APIError{Status: http.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN"}
	}
	delete(f.refreshTok, refreshToken)
	user, _ := f.userByID(userID)
	return f.issueLocked(user)
}

func (f *fakeAPI) Logout(ctx context.Context, accessToken, refreshToken string) error {
	f.logoutCalls.Add(1)
	return nil
}

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Navigate(_ context.Context, target string) {
	n.mu.Lock()
	n.targets = append(n.targets, target)
	n.mu.Unlock()
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.targets) == 0 {
		return ""
	}
	return n.targets[len(n.targets)-1]
}

type harness struct {
	client *Client
	api    *fakeAPI
	clock  *clock.FakeClock
	kv     *storage.Memory
	nav    *recordingNavigator
	events chan Event
}

func newHarness(t testing.TB, mutate func(*Config)) *harness {
	t.Helper()
	clk := clock.Fake(testEpoch)
	api := newFakeAPI(t, clk)
	api.addUser("ada@example.com", "pw-ada", authapi.User{ID: "u-ada", Role: jwt.RoleAdmin, IsVerified: true, InstituteID: "inst-1"})
	api.addUser("max@example.com", "pw-max", authapi.User{ID: "u-max", Role: jwt.RoleMember})

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		api:    api,
		clock:  clk,
		kv:     storage.NewMemory(),
		nav:    &recordingNavigator{},
		events: make(chan Event, 64),
	}
	client, err := New().
		WithConfig(cfg).
		WithAuthAPI(api).
		WithStorage(h.kv).
		WithNavigator(h.nav).
		withClock(clk).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	h.client = client
	client.Subscribe(func(e Event) { h.events <- e })
	t.Cleanup(client.Close)
	return h
}

func (h *harness) initialize(t *testing.T) {
	t.Helper()
	if err := h.client.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func (h *harness) login(t *testing.T, email, password string) LoginResult {
	t.Helper()
	res, err := h.client.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}

func (h *harness) nextEvent(t *testing.T, want EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-h.events:
			if e.Type == want {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

// advanceUntil moves the clock forward by step until cond holds, giving the
// tick goroutines time to run between steps.
func advanceUntil(t *testing.T, h *harness, step time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		h.clock.Advance(step)
		time.Sleep(2 * time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
