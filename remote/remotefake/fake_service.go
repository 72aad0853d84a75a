package remotefake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jrsteele09/go-auth-session/remote"
	"github.com/jrsteele09/go-auth-session/users"
)

var _ remote.Service = (*FakeService)(nil)

type account struct {
	password string
	user     users.User
}

// FakeService is an in-memory remote.Service. Accounts are added with
// AddAccount and failures are scripted through the exported error fields.
type FakeService struct {
	lock     sync.Mutex
	accounts map[string]account
	issued   int
	refresh  map[string]string // refresh token to email
	valid    map[string]bool   // live access tokens

	// LoginErr, when set, is returned by Login before credentials are checked
	LoginErr   error
	RefreshErr error
	VerifyErr  error
	LogoutErr  error

	// LoginGate, when set, blocks Login until it is closed or receives
	LoginGate chan struct{}
	// RefreshGate does the same for Refresh. The outcome is decided after the gate opens.
	RefreshGate chan struct{}

	loginCalls   int
	logoutCalls  int
	refreshCalls int
	verifyCalls  int
}

func NewFakeService() *FakeService {
	return &FakeService{
		accounts: make(map[string]account),
		refresh:  make(map[string]string),
		valid:    make(map[string]bool),
	}
}

func (fs *FakeService) AddAccount(email, password string, user users.User) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.accounts[strings.ToLower(email)] = account{password: password, user: user}
}

func (fs *FakeService) Login(ctx context.Context, email, password string) (*remote.LoginResult, error) {
	fs.lock.Lock()
	fs.loginCalls++
	gate := fs.LoginGate
	fs.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", remote.ErrUnreachable, ctx.Err())
		}
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.LoginErr != nil {
		return nil, fs.LoginErr
	}
	acc, ok := fs.accounts[strings.ToLower(email)]
	if !ok || acc.password != password {
		return nil, &remote.StatusError{StatusCode: 401, Message: "invalid credentials"}
	}
	user := acc.user
	user.Email = email
	return &remote.LoginResult{User: user, Tokens: fs.issueLocked(email)}, nil
}

func (fs *FakeService) Logout(_ context.Context, accessToken string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.logoutCalls++
	if fs.LogoutErr != nil {
		return fs.LogoutErr
	}
	delete(fs.valid, accessToken)
	return nil
}

func (fs *FakeService) Refresh(ctx context.Context, refreshToken string) (*remote.TokenPair, error) {
	fs.lock.Lock()
	fs.refreshCalls++
	gate := fs.RefreshGate
	fs.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", remote.ErrUnreachable, ctx.Err())
		}
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.RefreshErr != nil {
		return nil, fs.RefreshErr
	}
	email, ok := fs.refresh[refreshToken]
	if !ok {
		return nil, &remote.StatusError{StatusCode: 401, Message: "unknown refresh token"}
	}
	delete(fs.refresh, refreshToken)
	pair := fs.issueLocked(email)
	return &pair, nil
}

func (fs *FakeService) Verify(_ context.Context, accessToken string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.verifyCalls++
	if fs.VerifyErr != nil {
		return fs.VerifyErr
	}
	if !fs.valid[accessToken] {
		return &remote.StatusError{StatusCode: 401, Message: "invalid token"}
	}
	return nil
}

// Revoke makes an issued access token fail verification
func (fs *FakeService) Revoke(accessToken string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	delete(fs.valid, accessToken)
}

func (fs *FakeService) SetLoginErr(err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.LoginErr = err
}

func (fs *FakeService) SetRefreshErr(err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.RefreshErr = err
}

func (fs *FakeService) SetVerifyErr(err error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.VerifyErr = err
}

func (fs *FakeService) LoginCalls() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.loginCalls
}

func (fs *FakeService) LogoutCalls() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.logoutCalls
}

func (fs *FakeService) RefreshCalls() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.refreshCalls
}

func (fs *FakeService) VerifyCalls() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.verifyCalls
}

func (fs *FakeService) issueLocked(email string) remote.TokenPair {
	fs.issued++
	pair := remote.TokenPair{
		AccessToken:  fmt.Sprintf("access-%d", fs.issued),
		RefreshToken: fmt.Sprintf("refresh-%d", fs.issued),
	}
	fs.valid[pair.AccessToken] = true
	fs.refresh[pair.RefreshToken] = email
	return pair
}
