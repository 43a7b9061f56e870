package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/trezcool/masomo/core/record"
	"github.com/trezcool/masomo/core/record/sample"
)

var (
	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations require the postgres storage (STORAGE=postgres)")
)

type commandLine struct {
	db        *sql.DB // nil unless the postgres storage is configured
	recordSvc record.Service
	rows      record.RowWriter
	out       io.Writer
}

func (cli *commandLine) stdout() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  seed [-folder LABEL] - create the sample \"Class sizes\" record")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedFolder := seedCmd.String("folder", sample.FolderLabel, "The label of the folder to seed (created when missing).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.seed(*seedFolder)
	default:
		cli.printUsage()
		return errHelp
	}
}
