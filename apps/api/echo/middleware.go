package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ratiba/core/view"
)

const ctxViewKey = "view"

var nowFunc = time.Now // mockable

type session struct {
	view     *view.Controller
	lastUsed time.Time
}

// sessions holds the open views, keyed by view id.
// Views unused for longer than ttl are closed by evictIdle; a zero ttl keeps them until deleted.
type sessions struct {
	mu    sync.RWMutex
	ttl   time.Duration
	views map[string]*session
}

func newSessions(ttl time.Duration) *sessions {
	return &sessions{ttl: ttl, views: make(map[string]*session)}
}

func (s *sessions) add(c *view.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[c.ID()] = &session{view: c, lastUsed: nowFunc()}
}

// get returns the view named `id` and marks it as used.
func (s *sessions) get(id string) (*view.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.views[id]
	if !ok {
		return nil, false
	}
	sess.lastUsed = nowFunc()
	return sess.view, true
}

func (s *sessions) remove(id string) (*view.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.views[id]
	if !ok {
		return nil, false
	}
	delete(s.views, id)
	return sess.view, true
}

// evictIdle closes the views not used since ttl and returns how many were closed.
func (s *sessions) evictIdle() int {
	if s.ttl <= 0 {
		return 0
	}
	deadline := nowFunc().Add(-s.ttl)

	s.mu.Lock()
	var idle []*view.Controller
	for id, sess := range s.views {
		if sess.lastUsed.Before(deadline) {
			idle = append(idle, sess.view)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()

	for _, c := range idle {
		c.Deactivate()
	}
	return len(idle)
}

// sweep runs evictIdle every half ttl until `done` is closed.
func (s *sessions) sweep(done <-chan struct{}, onEvict func(n int)) {
	if s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := s.evictIdle(); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}

func (s *sessions) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.views {
		sess.view.Deactivate()
		delete(s.views, id)
	}
}

func (s *sessions) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// viewMiddleware puts the view named by the `:id` param into the echo.Context.
func viewMiddleware(s *sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, ok := s.get(ctx.Param("id"))
			if !ok {
				return errViewNotFound
			}
			ctx.Set(ctxViewKey, c)
			return next(ctx)
		}
	}
}

func getContextView(ctx echo.Context) *view.Controller {
	c, _ := ctx.Get(ctxViewKey).(*view.Controller)
	return c
}
