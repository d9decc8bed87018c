package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
)

func init() {
	logger.InitWriter(io.Discard, "error")
}

const feed = `{
  "generated_at": "2025-03-01T08:00:00",
  "summary": {"200_seal_count": 2},
  "players": {
    "200_seal": [
      {"name": "Lionel Messi", "slug": "lionel-andres-messi-cuccittini", "seal": "200", "previous_seal": 50, "price_limited_eur": "12.5", "price_rare_eur": null},
      {"name": "Broken", "slug": "broken", "seal": "abc", "price_limited_eur": 1}
    ]
  }
}`

func TestRunCompact(t *testing.T) {
	var out bytes.Buffer
	if err := run(nil, strings.NewReader(feed), &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	var doc struct {
		Players map[string][]map[string]interface{} `json:"players"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	rows := doc.Players["200_seal"]
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	messi := rows[0]
	if messi["sl"] != "lionel-andres-messi-cuccittini" || messi["pl"] != 12.5 || messi["c"] != true {
		t.Errorf("unexpected compact row %v", messi)
	}
	if _, ok := messi["pr"]; ok {
		t.Error("compact rows should drop null prices")
	}
	if _, ok := messi["price_limited_eur"]; ok {
		t.Error("compact rows should not carry verbose keys")
	}
}

func TestRunVerboseFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.json")
	if err := os.WriteFile(in, []byte(feed), 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	if err := run([]string{"-in", in, "-out", out, "-format", "verbose"}, nil, io.Discard); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), `"price_limited_eur"`) {
		t.Errorf("expected verbose keys, got %s", data)
	}
}

func TestRunSchema(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-schema"}, nil, &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if !strings.Contains(out.String(), `"players"`) {
		t.Errorf("expected a schema, got %s", out.String())
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		input string
	}{
		{"unknown format", []string{"-format", "tiny"}, feed},
		{"bad json", nil, "{"},
		{"missing input", []string{"-in", filepath.Join(t.TempDir(), "missing.json")}, ""},
		{"unknown flag", []string{"-nope"}, feed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args, strings.NewReader(tt.input), io.Discard); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
