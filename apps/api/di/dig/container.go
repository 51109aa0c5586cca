package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/timetable"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/services/timetableapi"
	"github.com/trezcool/ratiba/storage"
)

type StoreLoggerParam struct {
	dig.In
	Logger core.Logger `name:"storeLogger"`
}

// StoreCloser releases the connections held by the handoff store.
type StoreCloser func() error

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStoreLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newTimetableService(conf *core.Config) timetable.Service {
	return timetableapi.NewClient(conf.Service.BaseURL, timetableapi.NewHTTPClient(conf.Service))
}

func newHandoffStore(conf *core.Config, loggerParam StoreLoggerParam) (handoff.Store, StoreCloser) {
	store, closer, err := storage.OpenHandoffStore(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up handoff store: %v", err), err)
	}
	return store, closer
}

func newMetadataService(svc timetable.Service, validate *validator.Validate, translator ut.Translator) *metadata.Service {
	return metadata.NewService(metadata.NewCache(svc), svc, validate, translator)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(newTimetableService))
	must(c.Provide(newHandoffStore))
	must(c.Provide(core.NewValidator))
	must(c.Provide(newMetadataService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
