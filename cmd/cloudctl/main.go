package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pyropy/cloudstore/lib/logger"
)

var log, _ = logger.New("cloudctl")

func main() {
	app := &cli.App{
		Name:  "cloudctl",
		Usage: "cloudstore client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rpc-url",
				Value: "localhost:1234",
				Usage: "Address of the cloudstore rpc server",
			},
			&cli.StringFlag{
				Name:  "store",
				Value: ".cloudctl",
				Usage: "Path of the local file metadata store",
			},
			&cli.StringFlag{
				Name:     "owner",
				Required: true,
				EnvVars:  []string{"CLOUDSTORE_OWNER"},
				Usage:    "Owner id (uuid)",
			},
			&cli.StringFlag{
				Name:     "workspace",
				Required: true,
				EnvVars:  []string{"CLOUDSTORE_WORKSPACE"},
				Usage:    "Workspace id (uuid)",
			},
		},
		Commands: []*cli.Command{
			uploadCmd,
			uploadChunkedCmd,
			getCmd,
			listCmd,
			mkdirCmd,
			renameCmd,
			rmCmd,
			statCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
