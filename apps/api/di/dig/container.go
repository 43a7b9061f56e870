package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo/apps/api/echo"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
	"github.com/trezcool/masomo/core/record/sample"
	eventsvc "github.com/trezcool/masomo/services/events"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/cache"
	"github.com/trezcool/masomo/storage/database"
	dummydb "github.com/trezcool/masomo/storage/database/dummy"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// DB is the storage backend, closed on shutdown.
	DB interface {
		Close() error
	}

	storage struct {
		dig.Out
		DB       DB
		Repo     record.Repository
		BaseRows record.RowSource `name:"baseRows"`
	}

	recordServiceParam struct {
		dig.In
		Conf     *core.Config
		Repo     record.Repository
		Rows     record.RowSource
		Events   core.EventPublisher
		Logger   core.Logger
		Validate *validator.Validate
	}

	rowSourceParam struct {
		dig.In
		Conf     *core.Config
		Logger   core.Logger      `name:"dbLogger"`
		BaseRows record.RowSource `name:"baseRows"`
	}

	nopDB struct{}
)

func (nopDB) Close() error { return nil }

func newRootLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		log.Fatal(errors.Wrap(err, "setting up logger").Error())
	}
	return logger
}

func newLogger(root *logsvc.RollbarLogger) core.Logger {
	return root.Named("api")
}

func newDBLogger(root *logsvc.RollbarLogger) core.Logger {
	return root.Named("db")
}

// newStorage sets up the stores of the configured backend (conf.Storage).
func newStorage(conf *core.Config, loggerParam DBLoggerParam) storage {
	if conf.Storage != core.StoragePostgres {
		db, err := dummydb.Open()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("opening dummy database: %v", err), err)
		}
		return storage{DB: nopDB{}, Repo: dummydb.NewCatalogRepository(db), BaseRows: dummydb.NewRowRepository(db)}
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	if err = database.Migrate(ctx, db); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return storage{DB: db, Repo: sqlxrepos.NewCatalogRepository(db), BaseRows: sqlxrepos.NewRowRepository(db)}
}

// newRowSource caches the stored rows in Redis when conf.Redis.Addr is set.
func newRowSource(p rowSourceParam) record.RowSource {
	if p.Conf.Redis.Addr == "" {
		return p.BaseRows
	}
	return cache.NewRowSource(cache.NewClient(p.Conf), p.BaseRows, p.Conf, p.Logger)
}

// newEventPublisher publishes to RabbitMQ when conf.AMQP.URL is set.
func newEventPublisher(conf *core.Config, logger core.Logger) core.EventPublisher {
	if conf.AMQP.URL == "" {
		return eventsvc.NewConsolePublisher(logger)
	}
	conn, err := amqp.Dial(conf.AMQP.URL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to AMQP broker: %v", err), err)
	}
	pub, err := eventsvc.NewAMQPPublisher(conn, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up event publisher: %v", err), err)
	}
	return pub
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	record.InitValidators(validate, translator)
	return validate
}

// newRecordService seeds the dummy storage with the sample record when conf.SeedSample is set.
func newRecordService(p recordServiceParam) record.Service {
	svc := record.NewService(p.Repo, p.Rows, p.Events, p.Logger, p.Validate)
	if p.Conf.Storage == core.StoragePostgres || !p.Conf.SeedSample {
		return svc
	}

	rows, ok := p.Rows.(record.RowWriter)
	if !ok {
		p.Logger.Warn("sample not seeded: the row source is read-only")
		return svc
	}
	res, err := sample.Seed(context.Background(), svc, rows, "")
	if err != nil {
		p.Logger.Fatal(fmt.Sprintf("seeding sample record: %v", err), err)
	}
	p.Logger.Info(fmt.Sprintf("sample record %q seeded in folder %q", res.Record.ID, res.Folder.Label))
	return svc
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	recordSvc record.Service,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		RecordSvc:  recordSvc,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newRootLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newRowSource))
	must(c.Provide(newEventPublisher))
	must(c.Provide(newValidator))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newRecordService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
