package main

import (
	"github.com/urfave/cli"
)

func configure(app *cli.App) {
	serveCMD := makeServeCMD()
	migrationCMD := makePGMigrationCMD()
	ingestCMD := makeIngestCMD()
	mergeCMD := makeMergeCMD()
	renameCMD := makeRenameCMD()
	app.Commands = []cli.Command{serveCMD, migrationCMD, ingestCMD, mergeCMD, renameCMD}
}
