package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/marcohefti/matchlab/internal/config"
)

func (r Runner) runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	storageRoot := fs.String("storage-root", "", "storage root to pin in matchlab.config.json (default .matchlab)")
	configPath := fs.String("config", config.DefaultProjectConfigPath, "project config file to write")
	jsonOut := fs.Bool("json", false, "print JSON output")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("init: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl init [--storage-root DIR] [--config FILE] [--json]")
		return 0
	}

	cfg, created, err := config.InitProject(*configPath, *storageRoot)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("init: %s", err))
	}
	if *jsonOut {
		return r.writeJSON(map[string]any{
			"configPath":  *configPath,
			"storageRoot": cfg.StorageRoot,
			"created":     created,
		})
	}
	if created {
		fmt.Fprintf(r.Stdout, "initialized %s (storageRoot=%s)\n", *configPath, cfg.StorageRoot)
	} else {
		fmt.Fprintf(r.Stdout, "%s already exists (storageRoot=%s)\n", *configPath, cfg.StorageRoot)
	}
	return 0
}
