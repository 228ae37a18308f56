package main

import (
	"context"
	"log"
	"os"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
	logsvc "github.com/netaboodkw/teacherhubsite-sub002/services/logger"
	"github.com/netaboodkw/teacherhubsite-sub002/storage/database"
	sqlxrepos "github.com/netaboodkw/teacherhubsite-sub002/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// start CLI
	validate, translator := gradesheet.NewValidator()
	cli := commandLine{
		db:       db,
		sheetSvc: gradesheet.NewService(sqlxrepos.NewSheetRepository(db), logger, validate, translator, nil),
		out:      os.Stdout,
	}
	if err := cli.run(context.Background(), os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
