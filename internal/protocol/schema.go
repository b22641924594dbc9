package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed act.schema.json
var actSchemaJSON string

var actSchema = jsonschema.MustCompileString("act.schema.json", actSchemaJSON)

// DecodeAct validates raw against the ACT schema before decoding it.
func DecodeAct(raw []byte) (ActMsg, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ActMsg{}, fmt.Errorf("decode act: %w", err)
	}
	if err := actSchema.Validate(doc); err != nil {
		return ActMsg{}, fmt.Errorf("validate act: %w", err)
	}
	var act ActMsg
	if err := json.Unmarshal(raw, &act); err != nil {
		return ActMsg{}, fmt.Errorf("decode act: %w", err)
	}
	return act, nil
}
