package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo/core/record/sample"
)

// seed creates the sample "Class sizes" record in the folder labelled folderLabel and prints its stats.
// A folder already holding it is reported and left untouched.
func (cli *commandLine) seed(folderLabel string) error {
	res, err := sample.Seed(context.Background(), cli.recordSvc, cli.rows, folderLabel)
	if err != nil {
		return err
	}

	out := cli.stdout()
	if res.Created {
		fmt.Fprintf(out, "seeded %q / %q (%s)\n", res.Folder.Label, res.Record.Label, res.Record.ID)
	} else {
		fmt.Fprintf(out, "already seeded %q / %q (%s)\n", res.Folder.Label, res.Record.Label, res.Record.ID)
	}
	for _, stat := range res.Table.Stats {
		fmt.Fprintf(out, "  %s: %v\n", stat.Title, stat.Value)
	}
	return nil
}
