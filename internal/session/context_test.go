package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ethoscore/internal/common/logger"
	"ethoscore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	users map[string]*models.User
	err   error
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return u, nil
}

func newTestContext(t *testing.T) *Context {
	auth := &stubAuthenticator{users: map[string]*models.User{
		"token-1": {ID: "user-1", Email: "a@example.com"},
		"token-2": {ID: "user-2", Email: "b@example.com"},
	}}
	return NewContext(auth, logger.NewTestLogger(t))
}

func TestSubscribe_CalledImmediatelyWithCurrentUser(t *testing.T) {
	c := newTestContext(t)

	var seen []*models.User
	sub := c.Subscribe(func(u *models.User) { seen = append(seen, u) })
	defer sub.Unsubscribe()

	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	_, err := c.SignIn(context.Background(), "token-1")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "user-1", seen[1].ID)
}

func TestUnsubscribe_StopsNotifications(t *testing.T) {
	c := newTestContext(t)

	calls := 0
	sub := c.Subscribe(func(*models.User) { calls++ })
	assert.Equal(t, 1, c.Subscribers())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, c.Subscribers())

	c.SetUser(&models.User{ID: "user-9"})
	assert.Equal(t, 1, calls)
}

func TestSignOut_NotifiesNil(t *testing.T) {
	c := newTestContext(t)
	_, err := c.SignIn(context.Background(), "token-2")
	require.NoError(t, err)

	var last *models.User
	sub := c.Subscribe(func(u *models.User) { last = u })
	defer sub.Unsubscribe()
	require.NotNil(t, last)

	c.SignOut()
	assert.Nil(t, last)

	_, ok := c.UserID()
	assert.False(t, ok)
}

func TestSignIn_Errors(t *testing.T) {
	c := newTestContext(t)

	_, err := c.SignIn(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = c.SignIn(context.Background(), "unknown")
	assert.Error(t, err)
	assert.Nil(t, c.CurrentUser())
}

func TestCurrentUser_ReturnsCopy(t *testing.T) {
	c := newTestContext(t)
	c.SetUser(&models.User{ID: "user-1"})

	u := c.CurrentUser()
	u.ID = "mutated"

	id, ok := c.UserID()
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}

func TestSubscribe_ConcurrentSetUser(t *testing.T) {
	c := newTestContext(t)

	var mu sync.Mutex
	count := 0
	sub := c.Subscribe(func(*models.User) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SetUser(&models.User{ID: "u"})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 21, count)
}

func TestSetUser_DeliversChangesInOrder(t *testing.T) {
	c := newTestContext(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []string
	sub := c.Subscribe(func(u *models.User) {
		if u != nil && u.ID == "alice" {
			close(entered)
			<-release
		}
		id := ""
		if u != nil {
			id = u.ID
		}
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	aliceDone := make(chan struct{})
	go func() {
		defer close(aliceDone)
		c.SetUser(&models.User{ID: "alice"})
	}()
	<-entered

	bobDone := make(chan struct{})
	go func() {
		defer close(bobDone)
		c.SetUser(&models.User{ID: "bob"})
	}()

	select {
	case <-bobDone:
		t.Fatal("second change delivered while the first was still being delivered")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-aliceDone
	<-bobDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "alice", "bob"}, seen)
	require.NotNil(t, c.CurrentUser())
	assert.Equal(t, seen[len(seen)-1], c.CurrentUser().ID)
}
