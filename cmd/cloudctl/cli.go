package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pyropy/cloudstore/core/client"
)

func newClient(ctx *cli.Context) (*client.Client, error) {
	owner, err := uuid.Parse(ctx.String("owner"))
	if err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}

	workspace, err := uuid.Parse(ctx.String("workspace"))
	if err != nil {
		return nil, fmt.Errorf("parse workspace id: %w", err)
	}

	return client.NewClient(ctx.String("rpc-url"), ctx.String("store"), owner, workspace)
}

var uploadCmd = &cli.Command{
	Name:  "upload",
	Usage: "Upload a local file in one shot",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file-path",
			Required: true,
			Usage:    "Path to the local file to upload",
		},
		&cli.Int64Flag{
			Name:     "parent-dir",
			Required: true,
			Usage:    "Id of the target directory",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Filename to store under, defaults to the local basename",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(ctx.String("file-path"))
		if err != nil {
			return err
		}

		name := ctx.String("name")
		if name == "" {
			name = baseName(ctx.String("file-path"))
		}

		file, err := c.CreateFile(ctx.Int64("parent-dir"), name, data)
		if err != nil {
			return err
		}

		err = c.FileInfoStore.Add(ctx.Context, *file)
		if err != nil {
			return err
		}

		log.Infow("upload", "status", "file created", "id", file.ID, "filename", file.Filename, "size", file.Size)
		return nil
	},
}

var uploadChunkedCmd = &cli.Command{
	Name:  "upload-chunked",
	Usage: "Upload a local file through a resumable session",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file-path",
			Required: true,
			Usage:    "Path to the local file to upload",
		},
		&cli.Int64Flag{
			Name:     "parent-dir",
			Required: true,
			Usage:    "Id of the target directory",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Chunk size in bytes, defaults to the block max size",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Filename to store under, defaults to the local basename",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(ctx.String("file-path"))
		if err != nil {
			return err
		}

		name := ctx.String("name")
		if name == "" {
			name = baseName(ctx.String("file-path"))
		}

		file, err := c.UploadChunked(ctx.Int64("parent-dir"), name, data, ctx.Int("chunk-size"))
		if err != nil {
			return err
		}

		err = c.FileInfoStore.Add(ctx.Context, *file)
		if err != nil {
			return err
		}

		log.Infow("upload-chunked", "status", "file created", "id", file.ID, "filename", file.Filename, "size", file.Size)
		return nil
	},
}

var getCmd = &cli.Command{
	Name:  "get",
	Usage: "Download a file to a local path",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "id",
			Required: true,
			Usage:    "File id",
		},
		&cli.StringFlag{
			Name:     "out",
			Required: true,
			Usage:    "Local path to write the content to",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		file, data, err := c.GetFile(ctx.Int64("id"))
		if err != nil {
			return err
		}

		err = os.WriteFile(ctx.String("out"), data, 0644)
		if err != nil {
			return err
		}

		log.Infow("get", "status", "file downloaded", "id", file.ID, "filename", file.Filename, "size", file.Size)
		return nil
	},
}

var listCmd = &cli.Command{
	Name:  "list",
	Usage: "List a directory",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "dir",
			Required: true,
			Usage:    "Directory id",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		files, err := c.ListDir(ctx.Int64("dir"))
		if err != nil {
			return err
		}

		for _, file := range files {
			kind := "file"
			if file.IsDir {
				kind = "dir"
			}
			fmt.Printf("%d\t%s\t%d\tv%d\t%s\n", file.ID, kind, file.Size, file.Version, file.Filename)
		}

		return nil
	},
}

var mkdirCmd = &cli.Command{
	Name:  "mkdir",
	Usage: "Create a directory",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "parent-dir",
			Required: true,
			Usage:    "Id of the parent directory",
		},
		&cli.StringFlag{
			Name:     "name",
			Required: true,
			Usage:    "Directory name",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		dir, err := c.CreateDir(ctx.Int64("parent-dir"), ctx.String("name"))
		if err != nil {
			return err
		}

		log.Infow("mkdir", "status", "directory created", "id", dir.ID, "name", dir.Filename)
		return nil
	},
}

var renameCmd = &cli.Command{
	Name:  "rename",
	Usage: "Rename a file or directory",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "id",
			Required: true,
			Usage:    "File id",
		},
		&cli.StringFlag{
			Name:     "name",
			Required: true,
			Usage:    "New name",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		file, err := c.Rename(ctx.Int64("id"), ctx.String("name"))
		if err != nil {
			return err
		}

		log.Infow("rename", "status", "file renamed", "id", file.ID, "name", file.Filename)
		return nil
	},
}

var rmCmd = &cli.Command{
	Name:  "rm",
	Usage: "Delete a file or directory",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "id",
			Required: true,
			Usage:    "File id",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		err = c.Delete(ctx.Int64("id"))
		if err != nil {
			return err
		}

		err = c.FileInfoStore.Delete(ctx.Context, ctx.Int64("id"))
		if err != nil {
			log.Infow("rm", "status", "local cache entry not removed", "id", ctx.Int64("id"))
		}

		log.Infow("rm", "status", "file deleted", "id", ctx.Int64("id"))
		return nil
	},
}

var statCmd = &cli.Command{
	Name:  "stat",
	Usage: "Show a file descriptor",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:     "id",
			Required: true,
			Usage:    "File id",
		},
	},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		file, err := c.Stat(ctx.Int64("id"))
		if err != nil {
			return err
		}

		fmt.Printf("id: %d\nname: %s\ndir: %v\nparent: %d\nsize: %d\nversion: %d\n",
			file.ID, file.Filename, file.IsDir, file.ParentDirID, file.Size, file.Version)
		return nil
	},
}

func baseName(path string) string {
	return filepath.Base(path)
}
