package providerfakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/goalkit/goalkeeper/auth"
	"github.com/goalkit/goalkeeper/provider"
	"github.com/goalkit/goalkeeper/users"
)

var _ auth.Provider = (*FakeProvider)(nil)

// FakeProvider is a scriptable identity provider double that counts calls,
// so tests can assert which network exchanges did (not) happen.
type FakeProvider struct {
	ExchangeCodeFunc func(code string) (*provider.TokenSet, error)
	RefreshFunc      func(refreshToken string) (*provider.TokenSet, error)
	FetchProfileFunc func(accessToken string) (*users.Profile, error)

	lock          sync.Mutex
	exchangeCalls int
	refreshCalls  int
	profileCalls  int
}

func (p *FakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/authorize?state=" + state
}

func (p *FakeProvider) ExchangeCode(_ context.Context, code string) (*provider.TokenSet, error) {
	p.lock.Lock()
	p.exchangeCalls++
	fn := p.ExchangeCodeFunc
	p.lock.Unlock()
	if fn == nil {
		return nil, errors.New("ExchangeCodeFunc not set")
	}
	return fn(code)
}

func (p *FakeProvider) Refresh(_ context.Context, refreshToken string) (*provider.TokenSet, error) {
	p.lock.Lock()
	p.refreshCalls++
	fn := p.RefreshFunc
	p.lock.Unlock()
	if fn == nil {
		return nil, errors.New("RefreshFunc not set")
	}
	return fn(refreshToken)
}

func (p *FakeProvider) FetchProfile(_ context.Context, accessToken string) (*users.Profile, error) {
	p.lock.Lock()
	p.profileCalls++
	fn := p.FetchProfileFunc
	p.lock.Unlock()
	if fn == nil {
		return nil, errors.New("FetchProfileFunc not set")
	}
	return fn(accessToken)
}

func (p *FakeProvider) ExchangeCallCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.exchangeCalls
}

func (p *FakeProvider) RefreshCallCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.refreshCalls
}

func (p *FakeProvider) FetchProfileCallCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.profileCalls
}
