package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

var collectionsCmdDef = cli.Command{
	Name:    "collections",
	Usage:   "List collections in the store.",
	Aliases: []string{"ls"},
	Action:  cmdCollections,
}

func cmdCollections(c *cli.Context) error {
	names, err := handleFrom(c).Collections(c.Context)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

var createCmdDef = cli.Command{
	Name:      "create",
	Usage:     "Create a collection if it does not exist.",
	ArgsUsage: "<collection>",
	Action:    cmdCreate,
}

func cmdCreate(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("create requires exactly one collection name")
	}
	return handleFrom(c).CreateCollection(c.Context, c.Args().First())
}

var insertCmdDef = cli.Command{
	Name:      "insert",
	Usage:     "Insert a record and print its identity.",
	ArgsUsage: "<collection>",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "set",
			Usage: "Field assignment as name=value (repeatable)",
		},
	},
	Action: cmdInsert,
}

func cmdInsert(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("insert requires exactly one collection name")
	}
	rec := make(driver.Record)
	for _, kv := range c.StringSlice("set") {
		name, value, err := parseAssignment(kv)
		if err != nil {
			return err
		}
		if err := driver.ValidateFieldName(name); err != nil {
			return err
		}
		rec[name] = value
	}

	d, err := handleFrom(c).Driver()
	if err != nil {
		return err
	}
	id, err := d.InsertOne(c.Context, c.Args().First(), rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

var getCmdDef = cli.Command{
	Name:      "get",
	Usage:     "Print one record by identity.",
	ArgsUsage: "<collection> <id>",
	Action:    cmdGet,
}

func cmdGet(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("get requires a collection name and an id")
	}
	n, err := printRecords(c, c.Args().Get(0), filter.Eq(driver.IDField, c.Args().Get(1)), 1)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no record %s in %s", c.Args().Get(1), c.Args().Get(0))
	}
	return nil
}

var findCmdDef = cli.Command{
	Name:      "find",
	Usage:     "Print records matching every --where condition.",
	ArgsUsage: "<collection>",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "where",
			Usage: "Equality condition as name=value (repeatable)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of records (0 = all)",
		},
	},
	Action: cmdFind,
}

func cmdFind(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("find requires exactly one collection name")
	}
	var conds []filter.Filter
	for _, kv := range c.StringSlice("where") {
		name, value, err := parseAssignment(kv)
		if err != nil {
			return err
		}
		conds = append(conds, filter.Eq(name, value))
	}
	_, err := printRecords(c, c.Args().First(), filter.And(conds...), c.Int("limit"))
	return err
}

var deleteCmdDef = cli.Command{
	Name:      "delete",
	Usage:     "Delete one record by identity.",
	ArgsUsage: "<collection> <id>",
	Aliases:   []string{"rm"},
	Action:    cmdDelete,
}

func cmdDelete(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("delete requires a collection name and an id")
	}
	d, err := handleFrom(c).Driver()
	if err != nil {
		return err
	}
	return d.DeleteOne(c.Context, c.Args().Get(0), c.Args().Get(1))
}

// printRecords writes matching records to stdout as JSON lines and returns
// how many were written.
func printRecords(c *cli.Context, collection string, f filter.Filter, limit int) (int, error) {
	d, err := handleFrom(c).Driver()
	if err != nil {
		return 0, err
	}
	cur, err := d.Find(c.Context, collection, f, driver.FindOptions{Limit: limit})
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	enc := json.NewEncoder(c.App.Writer)
	n := 0
	for cur.Next(c.Context) {
		if err := enc.Encode(cur.Record()); err != nil {
			return n, err
		}
		n++
	}
	return n, cur.Err()
}

// parseAssignment splits name=value. Values that parse as integers, floats
// or booleans are typed accordingly; anything else is a string. Quote a
// value ("30") to force a string.
func parseAssignment(kv string) (string, any, error) {
	name, raw, ok := strings.Cut(kv, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid assignment %q: expected name=value", kv)
	}
	if s, err := strconv.Unquote(raw); err == nil {
		return name, s, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return name, i, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return name, f, nil
	}
	switch raw {
	case "true":
		return name, true, nil
	case "false":
		return name, false, nil
	}
	return name, raw, nil
}
