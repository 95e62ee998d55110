package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kuzukami/jdependency/archive"
	"github.com/kuzukami/jdependency/cli/config"
	"github.com/kuzukami/jdependency/cli/render"
	"github.com/kuzukami/jdependency/digest"
	"github.com/kuzukami/jdependency/log"
	"github.com/kuzukami/jdependency/relocation"
)

// MergeReport is the rendered result of a merge run.
type MergeReport struct {
	Output        string `json:"output"`
	Archives      int    `json:"archives"`
	Entries       int    `json:"entries"`
	Renamed       int    `json:"renamed"`
	Suppressed    int    `json:"suppressed"`
	Rewritten     int    `json:"rewritten"`
	MapperWritten bool   `json:"mapper_written"`
}

// MappingRow is one line of the --dry-run mapping report.
type MappingRow struct {
	OldName  string `json:"old_name"`
	NewName  string `json:"new_name"`
	Versions int    `json:"versions"`
	Renamed  bool   `json:"renamed"`
}

// MergeCommand returns the merge command, the only command that writes
// anything.
func MergeCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge input archives into one output archive",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Input archive as path or path=prefix (repeatable, ordered)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Path of the merged archive to create",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a merge-plan YAML file",
			},
			&cli.StringFlag{
				Name:  "digest",
				Usage: "Content digest algorithm: blake3, highwayhash",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Build and print the mapping without writing anything",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log the merge engine's mapping report",
			},
		}, ReadOnlyFlags()...),
		Action: mergeAction,
	}
}

func mergeAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	engine, err := digest.New(cfg.Digest)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	archives := make([]archive.Archive, len(cfg.Inputs))
	for i, in := range cfg.Inputs {
		archives[i] = archive.File(in.Path, in.Prefix)
	}

	console := log.Nop()
	if cfg.Verbose {
		console = log.LoggerConsole(log.NewVerboseLogger())
	}
	processor := relocation.NewProcessor(engine, relocation.Options{Console: console})

	if c.Bool("dry-run") {
		mapping, err := processor.BuildMapping(archives)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		rows := make([]MappingRow, 0, mapping.Len())
		for _, e := range mapping.Entries() {
			rows = append(rows, MappingRow{
				OldName:  e.OldName,
				NewName:  e.NewName,
				Versions: len(e.Versions),
				Renamed:  e.RenameRequired(),
			})
		}
		return r.Render(rows)
	}

	w, err := archive.NewFileWriter(cfg.Output)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	report, err := processor.Process(archives, nil, w)
	if err != nil {
		return cli.Exit(fmt.Sprintf("merge failed: %v", err), 1)
	}

	return r.Render(MergeReport{
		Output:        cfg.Output,
		Archives:      len(archives),
		Entries:       report.Entries,
		Renamed:       report.Renamed,
		Suppressed:    report.Suppressed,
		Rewritten:     report.Rewritten,
		MapperWritten: report.MapperWritten,
	})
}

// resolveConfig merges the --config file (if any) with CLI flags.
// Flags win over config values.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if out := c.String("output"); out != "" {
		cfg.Output = out
	}
	if alg := c.String("digest"); alg != "" {
		cfg.Digest = alg
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}
	if inputs := c.StringSlice("input"); len(inputs) > 0 {
		cfg.Inputs = nil
		for _, spec := range inputs {
			in, err := ParseInputSpec(spec)
			if err != nil {
				return nil, err
			}
			cfg.Inputs = append(cfg.Inputs, in)
		}
	}

	if c.Bool("dry-run") && cfg.Output == "" {
		// Dry runs never write, so a missing output is fine.
		cfg.Output = "-"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseInputSpec parses an --input value of the form "path" or
// "path=prefix".
func ParseInputSpec(spec string) (config.InputConfig, error) {
	path, prefix, found := strings.Cut(spec, "=")
	if path == "" {
		return config.InputConfig{}, fmt.Errorf("invalid input spec %q: empty path", spec)
	}
	if found && prefix == "" {
		return config.InputConfig{}, fmt.Errorf("invalid input spec %q: empty prefix after '='", spec)
	}
	return config.InputConfig{Path: path, Prefix: prefix}, nil
}
