package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/rtvfan-io/backend/services/ingest"
	"github.com/rtvfan-io/backend/services/propagate"
)

func makeIngestCMD() cli.Command {
	ingestCMD := cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Applies a candidate batch (NDJSON) through the upsert pipeline",
		Action:  runIngest,
	}
	configureIngest(&ingestCMD)
	return ingestCMD
}

func configureIngest(c *cli.Command) {
	c.Flags = append(c.Flags,
		cli.StringFlag{
			Name:  "file, f",
			Usage: "candidate batch file, - for stdin",
			Value: "-",
		},
		cli.BoolFlag{
			Name:  "atomic",
			Usage: "apply the whole batch in one transaction",
		},
	)
	c.Flags = cs.RegisterPGFlags(c.Flags)
}

func runIngest(c *cli.Context) error {
	// Setting DB
	pg := cs.NewPG(c)
	defer pg.Close()

	var r io.Reader = os.Stdin
	if path := c.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "failed to open candidate batch %s", path)
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}

	// Setting Propagator
	prop := propagate.New(pg)

	// Setting Sink
	sink := ingest.NewSink(pg, prop, c.Bool("atomic"))

	_, err := sink.Apply(context.Background(), r)
	return err
}
