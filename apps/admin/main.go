package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/record"
	eventsvc "github.com/trezcool/masomo/services/events"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/database"
	dummydb "github.com/trezcool/masomo/storage/database/dummy"
	sqlxrepos "github.com/trezcool/masomo/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	rootLogger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer rootLogger.Sync()
	logger = rootLogger.Named("admin")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	record.InitValidators(validate, translator)

	cli := commandLine{}
	var (
		repo record.Repository
		rows interface {
			record.RowSource
			record.RowWriter
		}
	)

	if conf.Storage == core.StoragePostgres {
		ctx := context.Background()
		errAndDie(database.CreateIfNotExist(ctx, conf))
		db, err := database.Open(ctx, conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()

		cli.db = db.DB
		repo = sqlxrepos.NewCatalogRepository(db)
		rows = sqlxrepos.NewRowRepository(db)
	} else {
		logger.Warn("dummy storage in use: seeded data is lost on exit")
		db, err := dummydb.Open()
		errAndDie(err)
		repo = dummydb.NewCatalogRepository(db)
		rows = dummydb.NewRowRepository(db)
	}
	cli.rows = rows
	cli.recordSvc = record.NewService(repo, rows, eventsvc.NewConsolePublisher(logger), logger, validate)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		rootLogger.Sync()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
