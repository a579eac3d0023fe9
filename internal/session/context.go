// Package session holds the signed-in user of an interactive front end and
// lets components follow it for as long as they are mounted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ethoscore/internal/common/logger"
	"ethoscore/internal/models"
)

var ErrNoCredentials = errors.New("SESSION_NO_CREDENTIALS")

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Context is the explicit replacement for a global auth listener. Pass it to
// whatever needs the current user; subscribers are told about every change,
// in the order the changes were made. Callbacks must not call SetUser,
// SignIn or SignOut.
type Context struct {
	// delivery serializes a change together with its notifications, so a
	// subscriber's last callback always carries the current user.
	delivery sync.Mutex

	mu     sync.Mutex
	auth   Authenticator
	logger logger.Logger
	user   *models.User
	subs   map[uint64]func(*models.User)
	nextID uint64
}

func NewContext(auth Authenticator, log logger.Logger) *Context {
	return &Context{
		auth:   auth,
		logger: log.WithFields(map[string]interface{}{"component": "session"}),
		subs:   make(map[uint64]func(*models.User)),
	}
}

// SignIn authenticates token and makes the result the current user.
func (c *Context) SignIn(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}
	if c.auth == nil {
		return nil, fmt.Errorf("%w: no authenticator configured", ErrNoCredentials)
	}
	user, err := c.auth.Authenticate(ctx, token)
	if err != nil {
		c.logger.Warn("sign in failed", map[string]interface{}{"error": err})
		return nil, err
	}
	c.SetUser(user)
	c.logger.Info("user signed in", map[string]interface{}{"userId": user.ID})
	return copyUser(user), nil
}

// SignOut clears the current user.
func (c *Context) SignOut() {
	c.SetUser(nil)
}

// SetUser replaces the current user and notifies subscribers.
func (c *Context) SetUser(user *models.User) {
	c.delivery.Lock()
	defer c.delivery.Unlock()

	c.mu.Lock()
	c.user = copyUser(user)
	snapshot := copyUser(c.user)
	fns := c.subscribersLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (c *Context) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyUser(c.user)
}

// UserID returns the signed-in user's identifier.
func (c *Context) UserID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || c.user.ID == "" {
		return "", false
	}
	return c.user.ID, true
}

// Subscribe registers fn and calls it once right away with the current user.
// Callbacks run outside the context's lock, in subscription order.
func (c *Context) Subscribe(fn func(*models.User)) *Subscription {
	c.delivery.Lock()
	defer c.delivery.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	current := copyUser(c.user)
	c.mu.Unlock()

	fn(current)
	return &Subscription{ctx: c, id: id}
}

// Subscribers reports how many callbacks are registered.
func (c *Context) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Context) subscribersLocked() []func(*models.User) {
	ids := make([]uint64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fns := make([]func(*models.User), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	return fns
}

// Subscription ends a Subscribe registration. Unsubscribe is idempotent.
type Subscription struct {
	ctx  *Context
	id   uint64
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.ctx.mu.Lock()
		delete(s.ctx.subs, s.id)
		s.ctx.mu.Unlock()
	})
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
