package main

import (
	"context"

	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/rtvfan-io/backend/models"
	"github.com/rtvfan-io/backend/services/ingest"
	"github.com/rtvfan-io/backend/services/propagate"
)

func makeRenameCMD() cli.Command {
	renameCMD := cli.Command{
		Name:   "rename",
		Usage:  "Renames a show or person and refreshes every denormalized copy",
		Action: runRename,
	}
	configureRename(&renameCMD)
	return renameCMD
}

func configureRename(c *cli.Command) {
	c.Flags = append(c.Flags,
		cli.Int64Flag{
			Name:  "show",
			Usage: "show id to rename",
		},
		cli.Int64Flag{
			Name:  "person",
			Usage: "person id to rename",
		},
		cli.StringFlag{
			Name:  "name",
			Usage: "new display name",
		},
	)
	c.Flags = cs.RegisterPGFlags(c.Flags)
}

func runRename(c *cli.Context) error {
	showID := c.Int64("show")
	personID := c.Int64("person")
	name := ingest.NormalizeName(c.String("name"))
	if name == "" {
		return cli.NewExitError("--name is required", 1)
	}
	if (showID > 0) == (personID > 0) {
		return cli.NewExitError("exactly one of --show and --person is required", 1)
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

	prop := propagate.New(pg)
	if showID > 0 {
		return prop.ShowRenamed(ctx, showID, name)
	}
	return prop.PersonRenamed(ctx, personID, name)
}
