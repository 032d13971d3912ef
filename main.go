package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"comfymobile/comfybase"
	"comfymobile/convert"
	"comfymobile/graph"
	"comfymobile/helpers"
	"comfymobile/logger"
	"comfymobile/prompt"
	"comfymobile/schema"
	"comfymobile/settings"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	objectInfo := flag.String("object-info", "", "node metadata snapshot (object_info JSON)")
	toStdout := flag.Bool("stdout", false, "write prompts to standard output instead of files")
	validateOnly := flag.Bool("validate", false, "report schema issues without emitting prompts")
	asSubmission := flag.Bool("submission", false, "wrap each prompt in a queue submission payload")
	flag.Parse()

	cfg := loadSettings(*configPath)
	logger.Init(cfg.Logging)

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: comfymobile [flags] workflow.json ...")
		flag.PrintDefaults()
		return 1
	}

	src, store := loadSchemas(cfg, *objectInfo)
	if store != nil {
		defer store.Close()
	}
	if *validateOnly && src == nil {
		logger.Error("Validation needs node metadata, pass -object-info or set convert.objectInfoPath")
		return 1
	}

	start := time.Now()
	var bar *progressbar.ProgressBar
	if len(files) > 1 && !*toStdout {
		bar = progressbar.Default(int64(len(files)), "converting")
	}

	failed := 0
	for _, path := range files {
		if err := processWorkflow(path, cfg, src, *toStdout, *validateOnly, *asSubmission); err != nil {
			logger.Error("Workflow failed", "file", path, "error", err)
			failed++
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	if store != nil {
		store.Merge()
	}
	logger.Info("Run complete", "workflows", len(files), "failed", failed, "elapsed", helpers.Elapsed(start))
	if failed > 0 {
		return 1
	}
	return 0
}

// loadSettings reads the configuration, falling back to the defaults
// when no file was named and none exists in the working directory.
func loadSettings(path string) *settings.Config {
	if path == "" {
		if _, err := os.Stat("config.toml"); os.IsNotExist(err) {
			return settings.Default()
		}
		path = "config.toml"
	}
	cfg, err := settings.LoadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// loadSchemas builds the node metadata source: an object_info snapshot
// parsed into memory and, when a cache path is configured, persisted
// through the comfybase store so later runs skip the parse. Returns a
// nil source when no snapshot is configured; conversion then runs
// without schema validation.
func loadSchemas(cfg *settings.Config, objectInfoPath string) (schema.Source, *comfybase.Store) {
	path := objectInfoPath
	if path == "" {
		path = cfg.Convert.ObjectInfoPath
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("Cannot read node metadata", "file", path, "error", err)
	}
	src, err := schema.ParseObjectInfo(data)
	if err != nil {
		logger.Fatal("Cannot parse node metadata", "file", path, "error", err)
	}
	logger.Server(cfg.Server.Name).Debug("Loaded node metadata", "types", len(src), "file", path)

	if cfg.Cache.Path == "" {
		return src, nil
	}
	store, err := comfybase.Open(cfg.Cache.Path)
	if err != nil {
		logger.Warn("Metadata cache unavailable", "path", cfg.Cache.Path, "error", err)
		return src, nil
	}
	return schema.NewStoreSource(store, src, cfg.Cache.TTL()), store
}

// processWorkflow converts one workflow document and writes the result
// next to it, or to standard output.
func processWorkflow(path string, cfg *settings.Config, src schema.Source, toStdout, validateOnly, asSubmission bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	g, err := graph.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("parse workflow: %w", err)
	}
	log := logger.Workflow(path)

	if validateOnly {
		issues := convert.Validate(g, src)
		for _, issue := range issues {
			fmt.Println(issue.String())
		}
		log.Info("Validated workflow", "issues", len(issues))
		return nil
	}

	p, err := convert.Convert(g, convert.Options{Schemas: src})
	if err != nil {
		return err
	}

	var payload any = p
	if asSubmission {
		payload = prompt.NewSubmission(p, "")
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prompt: %w", err)
	}

	if toStdout {
		fmt.Println(string(out))
		return nil
	}
	outPath := helpers.OutputPath(path, cfg.Convert.OutputSuffix)
	if err := os.WriteFile(outPath, append(out, '\n'), 0o644); err != nil {
		return err
	}
	log.Info("Wrote prompt", "output", outPath, "nodes", len(p))
	return nil
}
