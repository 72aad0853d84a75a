package fakeuserrepo

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/users"
)

var _ users.AccountRepo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*users.Account
	emailIds map[string]string // email to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*users.Account),
		emailIds: make(map[string]string),
	}
}

func (ar *FakeAccountRepo) Upsert(account *users.Account) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	ar.accounts[account.ID] = account
	ar.emailIds[strings.ToLower(account.Email)] = account.ID
	return nil
}

func (ar *FakeAccountRepo) GetByEmail(email string) (*users.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, errors.New("not found")
	}
	return ar.accounts[id], nil
}

func (ar *FakeAccountRepo) GetByID(id string) (*users.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	if _, ok := ar.accounts[id]; !ok {
		return nil, errors.New("not found")
	}
	return ar.accounts[id], nil
}

// AddAccount hashes password and stores a new account, returning it
func (ar *FakeAccountRepo) AddAccount(email, password, name, role string) (*users.Account, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &users.Account{
		User:         users.User{Email: email, Name: name, Role: role},
		PasswordHash: hash,
	}
	if err := ar.Upsert(account); err != nil {
		return nil, err
	}
	return account, nil
}
