package cmd

import (
	"io"

	"github.com/urfave/cli/v2"

	"github.com/kuzukami/jdependency/archive"
	"github.com/kuzukami/jdependency/cli/render"
	"github.com/kuzukami/jdependency/modbin"
)

// EntryRow is one archive entry in the inspect report.
type EntryRow struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Dir    bool   `json:"dir"`
	Module bool   `json:"module"`
}

// InspectCommand returns the inspect command. Read-only: it lists one
// archive's entries without touching any output.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the entries of an archive",
		ArgsUsage: "<archive>",
		Flags:     ReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("inspect takes exactly one archive path", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	rows, err := listEntries(archive.File(c.Args().First(), ""))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(rows)
}

func listEntries(a archive.Archive) ([]EntryRow, error) {
	er, err := a.Open()
	if err != nil {
		return nil, err
	}
	defer er.Close()

	var rows []EntryRow
	for {
		e, err := er.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row := EntryRow{Name: e.Name, Dir: e.Dir, Module: modbin.IsModuleName(e.Name)}
		if e.Body != nil {
			n, err := io.Copy(io.Discard, e.Body)
			if err != nil {
				return nil, err
			}
			row.Size = n
		}
		rows = append(rows, row)
	}
}
