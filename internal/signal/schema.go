package signal

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// payloadSchema is the wire contract every provider payload must satisfy
// before field-level range checks run. Kept permissive on purpose: the
// per-source ranges (score vs strength) are enforced in normalize.go where
// the error message can name the offending field.
const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["source", "confidence", "timestamp"],
  "properties": {
    "source": {
      "type": "string",
      "enum": ["technical", "sentiment_news", "sentiment_social", "sentiment_filing"]
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "timestamp": {"type": "string"},
    "score": {"type": "number"},
    "direction": {"type": "string", "enum": ["bullish", "bearish", "neutral"]},
    "strength": {"type": "number"}
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("signal_payload.json", strings.NewReader(payloadSchema)); err != nil {
		panic(err)
	}
	return c.MustCompile("signal_payload.json")
}
