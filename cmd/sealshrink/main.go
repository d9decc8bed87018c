// Command sealshrink rewrites a seal feed in the compact format, or prints
// the feed's JSON schema.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/normalize"
	"github.com/Billy-Davies-2/seal-tracker/internal/source"
)

func main() {
	logger.InitWriter(os.Stderr, os.Getenv("LOG_LEVEL"))

	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		logger.Error("sealshrink failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("sealshrink", flag.ContinueOnError)
	in := fs.String("in", "-", "feed to read, - for stdin")
	out := fs.String("out", "-", "file to write, - for stdout")
	formatName := fs.String("format", string(source.FormatCompact), "output format: compact or verbose")
	schema := fs.Bool("schema", false, "print the feed JSON schema and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w := stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if *schema {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(source.FeedSchema())
	}

	format, err := source.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	r := stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw models.RawDataset
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode feed: %w", err)
	}

	ds, warnings := normalize.Dataset(&raw, normalize.Options{})
	for _, warning := range warnings {
		logger.Warn("Skipped malformed data", "group", warning.Group, "slug", warning.Slug, "field", warning.Field, "error", warning.Err)
	}
	logger.Info("Feed normalized", "players", ds.Len(), "warnings", len(warnings), "format", format)

	return source.Encode(w, ds, format)
}
