package main

import (
	"context"

	"github.com/netaboodkw/teacherhubsite-sub002/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

// migrate passes the subcommand & its arguments through to goose.
func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printMigrateUsage()
		return errHelp
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(ctx, args[0], cli.db, arguments...)
}
