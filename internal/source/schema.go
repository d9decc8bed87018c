package source

import (
	"github.com/invopop/jsonschema"
)

// feedDocument mirrors models.RawDataset for schema generation only; the
// decoder itself keeps rows raw.
type feedDocument struct {
	GeneratedAt string                      `json:"generated_at,omitempty" jsonschema_description:"When the feed was generated, RFC 3339 or naive ISO 8601"`
	Summary     map[string]interface{}      `json:"summary,omitempty" jsonschema_description:"Published player count per group under <tier>_seal_count keys; other keys are ignored"`
	Players     map[string][]playerDocument `json:"players" jsonschema_description:"Player rows grouped by tier, keyed <tier>_seal"`
}

// playerDocument lists both key sets. Numbers may be published as strings.
type playerDocument struct {
	Name           string      `json:"name,omitempty" jsonschema_description:"Display name"`
	Slug           string      `json:"slug,omitempty" jsonschema_description:"Unique player slug"`
	Seal           interface{} `json:"seal,omitempty" jsonschema:"oneof_type=integer;string;null" jsonschema_description:"Current tier"`
	PreviousSeal   interface{} `json:"previous_seal,omitempty" jsonschema:"oneof_type=integer;string;null" jsonschema_description:"Tier before the last refresh"`
	SealChanged    *bool       `json:"seal_changed,omitempty" jsonschema_description:"Whether the tier changed in the last refresh"`
	PriceLimited   interface{} `json:"price_limited_eur,omitempty" jsonschema:"oneof_type=number;string;null" jsonschema_description:"Cheapest limited card, EUR"`
	PriceRare      interface{} `json:"price_rare_eur,omitempty" jsonschema:"oneof_type=number;string;null" jsonschema_description:"Cheapest rare card, EUR"`
	PriceSuperRare interface{} `json:"price_super_rare_eur,omitempty" jsonschema:"oneof_type=number;string;null" jsonschema_description:"Cheapest super rare card, EUR"`

	ShortName           string      `json:"n,omitempty" jsonschema_description:"Compact form of name"`
	ShortSlug           string      `json:"sl,omitempty" jsonschema_description:"Compact form of slug"`
	ShortSeal           interface{} `json:"s,omitempty" jsonschema:"oneof_type=integer;string" jsonschema_description:"Compact form of seal"`
	ShortPreviousSeal   interface{} `json:"ps,omitempty" jsonschema:"oneof_type=integer;string" jsonschema_description:"Compact form of previous_seal"`
	ShortChanged        *bool       `json:"c,omitempty" jsonschema_description:"Compact form of seal_changed"`
	ShortPriceLimited   interface{} `json:"pl,omitempty" jsonschema:"oneof_type=number;string" jsonschema_description:"Compact form of price_limited_eur"`
	ShortPriceRare      interface{} `json:"pr,omitempty" jsonschema:"oneof_type=number;string" jsonschema_description:"Compact form of price_rare_eur"`
	ShortPriceSuperRare interface{} `json:"psr,omitempty" jsonschema:"oneof_type=number;string" jsonschema_description:"Compact form of price_super_rare_eur"`
	ShortRatioLimited   interface{} `json:"rl,omitempty" jsonschema:"oneof_type=number;string" jsonschema_description:"Stored limited ratio; ignored on load"`
	ShortRatioRare      interface{} `json:"rr,omitempty" jsonschema:"oneof_type=number;string" jsonschema_description:"Stored rare ratio; ignored on load"`
	ShortRatioSuperRare interface{} `json:"rsr,omitempty" jsonschema:"oneof_type=number;string" jsonschema_description:"Stored super rare ratio; ignored on load"`
}

// FeedSchema describes both feed formats as one JSON schema
func FeedSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(feedDocument{})
	schema.Title = "Sorare seal points feed"
	return schema
}
