package main

import (
	"context"

	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/rtvfan-io/backend/models"
	"github.com/rtvfan-io/backend/services/reconcile"
)

func makeMergeCMD() cli.Command {
	mergeCMD := cli.Command{
		Name:  "merge",
		Usage: "Folds a duplicate show into its canonical row",
		Description: "Maintenance operation: assumes no ingestion is writing " +
			"to either show while it runs.",
		Action: runMerge,
	}
	configureMerge(&mergeCMD)
	return mergeCMD
}

func configureMerge(c *cli.Command) {
	c.Flags = append(c.Flags,
		cli.Int64Flag{
			Name:  "source",
			Usage: "show id to merge away",
		},
		cli.Int64Flag{
			Name:  "target",
			Usage: "canonical show id to keep",
		},
	)
	c.Flags = cs.RegisterPGFlags(c.Flags)
}

func runMerge(c *cli.Context) error {
	sourceID := c.Int64("source")
	targetID := c.Int64("target")
	if sourceID <= 0 || targetID <= 0 {
		return cli.NewExitError("both --source and --target show ids are required", 1)
	}

	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	db := pg.Get()
	if db == nil {
		return cli.NewExitError("db is not configured", 1)
	}

	ctx := context.Background()
	if err := models.VerifySchema(ctx, db); err != nil {
		return err
	}

	return reconcile.MergeShows(ctx, db, sourceID, targetID)
}
