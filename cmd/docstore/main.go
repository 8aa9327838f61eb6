package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jacentio/docstore/internal/logging"
	"github.com/jacentio/docstore/store"
)

const VERSION = "v0.1.0"

const handleKey = "handle"

func makeApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "docstore"
	app.Version = VERSION
	app.Usage = "Inspect and edit docstore collections."
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Reader = stdin
	app.Metadata = map[string]interface{}{}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Store backend: memory, sqlite or dynamodb (overrides DOCSTORE_BACKEND)",
		},
		&cli.StringFlag{
			Name:      "sqlite-path",
			Usage:     "SQLite database file (overrides DOCSTORE_SQLITE_PATH)",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (overrides DOCSTORE_LOG_LEVEL)",
		},
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "Human-readable log output",
		},
	}
	app.Before = beforeFunc
	app.After = afterFunc
	app.ExitErrHandler = exitErrHandler
	app.Commands = []*cli.Command{
		&collectionsCmdDef,
		&createCmdDef,
		&insertCmdDef,
		&getCmdDef,
		&findCmdDef,
		&deleteCmdDef,
	}
	return app
}

// beforeFunc opens the store handle shared by every command.
func beforeFunc(c *cli.Context) error {
	cfg, err := store.ConfigFromEnv()
	if err != nil {
		return err
	}
	if v := c.String("backend"); v != "" {
		cfg.Backend = v
	}
	if v := c.String("sqlite-path"); v != "" {
		cfg.SQLitePath = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}

	logger, err := logging.New(cfg.LogLevel, c.Bool("dev"))
	if err != nil {
		return err
	}

	h, err := store.Open(c.Context, cfg, store.WithLogger(logger))
	if err != nil {
		return err
	}
	c.App.Metadata[handleKey] = h
	return nil
}

// afterFunc closes the handle opened by beforeFunc.
func afterFunc(c *cli.Context) error {
	h, ok := c.App.Metadata[handleKey].(*store.Handle)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, handleKey)
	return h.Close()
}

// Called after a command returns an non-nil error value.
// Prints the formatted error to stderr.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(c.App.ErrWriter, "error: %s\n", err)
}

func handleFrom(c *cli.Context) *store.Handle {
	return c.App.Metadata[handleKey].(*store.Handle)
}

func main() {
	err := makeApp(os.Stdin, os.Stdout, os.Stderr).Run(os.Args)
	if err != nil {
		os.Exit(1)
	}
}
