package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
)

var (
	readFileFunc = os.ReadFile // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	sheetSvc gradesheet.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]           - run a database migration command (see migrate help)")
	fmt.Fprintln(cli.out, "  list                             - list grade sheets by name")
	fmt.Fprintln(cli.out, "  import -file PATH [-name NAME]   - import a structure or legacy column list")
	fmt.Fprintln(cli.out, "  totals -id ID                    - print the computed totals of a sheet")
	fmt.Fprintln(cli.out, "  instantiate -id ID               - print a sheet's structure with fresh ids")
}

func (cli *commandLine) printMigrateUsage() {
	fmt.Fprintln(cli.out, "Usage: migrate COMMAND [ARGS]")
	fmt.Fprintln(cli.out, "  up                   - migrate the DB to the most recent version available")
	fmt.Fprintln(cli.out, "  up-by-one            - migrate the DB up by 1")
	fmt.Fprintln(cli.out, "  up-to VERSION        - migrate the DB to a specific VERSION")
	fmt.Fprintln(cli.out, "  down                 - roll back the version by 1")
	fmt.Fprintln(cli.out, "  down-to VERSION      - roll back to a specific VERSION")
	fmt.Fprintln(cli.out, "  redo                 - re-run the latest migration")
	fmt.Fprintln(cli.out, "  reset                - roll back all migrations")
	fmt.Fprintln(cli.out, "  status               - dump the migration status for the current DB")
	fmt.Fprintln(cli.out, "  version              - print the current version of the database")
	fmt.Fprintln(cli.out, "  create NAME [sql|go] - create a new migration file with the current timestamp")
	fmt.Fprintln(cli.out, "  fix                  - apply sequential ordering to migrations")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := cli.newFlagSet("import")
	importFile := importCmd.String("file", "", "Path of the JSON structure or legacy column list.")
	importName := importCmd.String("name", "", "Name of the sheet. Defaults to the file name.")

	totalsCmd := cli.newFlagSet("totals")
	totalsID := totalsCmd.String("id", "", "The sheet ID.")

	instantiateCmd := cli.newFlagSet("instantiate")
	instantiateID := instantiateCmd.String("id", "", "The sheet ID.")

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx, args[2:])
	case "list":
		return cli.list(ctx)
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importSheet(ctx, *importFile, *importName)
	case "totals":
		if err := totalsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *totalsID == "" {
			totalsCmd.Usage()
			return errHelp
		}
		return cli.totals(ctx, *totalsID)
	case "instantiate":
		if err := instantiateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *instantiateID == "" {
			instantiateCmd.Usage()
			return errHelp
		}
		return cli.instantiate(ctx, *instantiateID)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) list(ctx context.Context) error {
	sheets, err := cli.sheetSvc.Query(ctx, core.DBOrdering{Field: "name", Ascending: true})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tGROUPS\tCOLUMNS")
	for _, sht := range sheets {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", sht.ID, sht.Name, len(sht.Structure.Groups), len(sht.Structure.ColumnIDs()))
	}
	return w.Flush()
}

// importSheet accepts either a serialized structure or a legacy column list.
func (cli *commandLine) importSheet(ctx context.Context, path, name string) error {
	data, err := readFileFunc(path)
	if err != nil {
		return err
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ns := gradesheet.NewSheet{Name: name}
	if s, err := gradesheet.Parse(data); err == nil {
		ns.Structure = &s
	} else if cols, lErr := gradesheet.ParseLegacy(data); lErr == nil {
		ns.LegacyColumns = cols
	} else {
		return err
	}

	sht, err := cli.sheetSvc.Create(ctx, ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported %q as %s\n", sht.Name, sht.ID)
	return nil
}

func (cli *commandLine) totals(ctx context.Context, id string) error {
	sht, err := cli.sheetSvc.Get(ctx, id)
	if err != nil {
		return err
	}
	totals := gradesheet.ComputeTotals(*sht.Structure)

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tCOLUMN\tKIND\tVALUE")
	for _, grp := range sht.Structure.Groups {
		for _, col := range grp.Columns {
			fmt.Fprintf(w, "%s\t%s\t%s\t%g\n", grp.Name, col.Name, col.Kind, totals.Columns[col.ID])
		}
	}
	if _, ok := sht.Structure.GrandTotalColumn(); ok {
		fmt.Fprintf(w, "\t\tgrand total\t%g\n", totals.GrandTotal)
		fmt.Fprintf(w, "\t\tpassing\t%g (%.1f%%)\n", totals.PassingScore, totals.PassingPercentage)
	}
	return w.Flush()
}

func (cli *commandLine) instantiate(ctx context.Context, id string) error {
	s, idMap, err := cli.sheetSvc.Load(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Structure gradesheet.Structure `json:"structure"`
		IDMap     gradesheet.IDMap     `json:"id_map"`
	}{s, idMap})
}
