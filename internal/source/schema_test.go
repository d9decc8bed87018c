package source

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFeedSchema(t *testing.T) {
	schema := FeedSchema()

	if len(schema.Required) != 1 || schema.Required[0] != "players" {
		t.Errorf("expected only players to be required, got %v", schema.Required)
	}

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("failed to marshal schema: %v", err)
	}
	out := string(data)

	for _, key := range []string{"generated_at", "summary", "players", "price_limited_eur", "seal_changed", "pl", "psr", "rl"} {
		if !strings.Contains(out, `"`+key+`"`) {
			t.Errorf("schema missing property %q", key)
		}
	}
	if !strings.Contains(out, `"oneOf"`) {
		t.Error("numeric fields should accept numbers or strings")
	}
	if strings.Contains(out, `"$ref"`) {
		t.Error("schema should be fully inlined")
	}
	if !strings.Contains(out, "Sorare seal points feed") {
		t.Error("schema title missing")
	}
}
