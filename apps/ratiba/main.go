package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/metadata"
	downloadsvc "github.com/trezcool/ratiba/services/download"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/services/timetableapi"
	"github.com/trezcool/ratiba/storage"
	"github.com/trezcool/ratiba/storage/database"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "CLI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	handoffs, closeStore, err := storage.OpenHandoffStore(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up handoff store: %v", err), err)
	}

	svc := timetableapi.NewClient(conf.Service.BaseURL, timetableapi.NewHTTPClient(conf.Service))
	validate, translator := core.NewValidator()

	cli := commandLine{
		conf:       conf,
		svc:        svc,
		meta:       metadata.NewService(metadata.NewCache(svc), svc, validate, translator),
		handoffs:   handoffs,
		downloader: downloadsvc.NewFileDownloader(conf, logger),
		logger:     logger,
		out:        os.Stdout,
		openDB: func() (*sql.DB, error) {
			db, err := database.Open(conf)
			if err != nil {
				return nil, err
			}
			return db.DB, nil
		},
	}
	err = cli.run(os.Args)
	if cerr := closeStore(); cerr != nil {
		logger.Error("closing handoff store", cerr)
	}
	if err != nil {
		if err != errHelp {
			printError(os.Stderr, err, conf.Debug)
		}
		os.Exit(1)
	}
}
