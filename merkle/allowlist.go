package merkle

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

// allowlistSchema validates the raw entry set supplied by the commerce
// backend before any hashing happens. Catching a malformed address here
// beats generating a root that silently disagrees with the published
// on-chain value.
const allowlistSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["address"],
    "additionalProperties": false,
    "properties": {
      "address": {
        "type": "string",
        "pattern": "^0x[0-9a-fA-F]{40}$"
      },
      "maxQuantity": {
        "type": "integer",
        "minimum": 0,
        "maximum": 4294967295
      },
      "price": {
        "type": "string",
        "pattern": "^[0-9]+$"
      }
    }
  }
}`

var compiledAllowlistSchema = gojsonschema.NewStringLoader(allowlistSchema)

// ParseAllowlist validates and decodes a backend-supplied allowlist
// document into entries ready for tree construction.
func ParseAllowlist(data []byte) ([]Entry, error) {
	result, err := gojsonschema.Validate(compiledAllowlistSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeInvalidInput,
			"allowlist document is not valid JSON", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeInvalidInput,
			fmt.Sprintf("allowlist document failed validation: %v", details),
			map[string]interface{}{"violations": details})
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeInvalidInput,
			"failed to decode allowlist document", err)
	}
	return entries, nil
}
