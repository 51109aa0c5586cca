package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/timetable"
)

type Server struct {
	conf     *core.Config
	logger   core.Logger
	app      *echo.Echo
	sessions *sessions
	shutdown chan os.Signal
	errors   chan error
	done     chan struct{} // stops the idle view sweeper
	stopOnce sync.Once
}

func NewServer(
	conf *core.Config,
	logger core.Logger,
	svc timetable.Service,
	handoffs handoff.Store,
	meta *metadata.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		app:      echo.New(),
		sessions: newSessions(conf.Server.ViewTTL),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(logger, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.HideBanner = true

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	registerViewAPI(v1, &viewApi{
		svc:        svc,
		handoffs:   handoffs,
		meta:       meta,
		sessions:   s.sessions,
		logger:     logger,
		validate:   validate,
		translator: translator,
	})
	registerMetadataAPI(v1, &metadataApi{
		meta:   meta,
		logger: logger,
	})

	return s
}

func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	go s.sessions.sweep(s.done, func(n int) {
		s.logger.Info("closed " + strconv.Itoa(n) + " idle view(s)")
	})

	s.logger.Info("API listening on " + s.conf.Server.Address)
	if err := s.app.Start(s.conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

// Errors receives listener failures.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives OS signals and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

// Shutdown closes every open view then stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopSweep()
	s.sessions.closeAll()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.stopSweep()
	s.sessions.closeAll()
	return s.app.Close()
}

func (s *Server) stopSweep() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
