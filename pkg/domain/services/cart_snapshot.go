package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

// ErrCorruptSnapshot marks a persisted cart that cannot be trusted
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

const cartSnapshotSchemaURL = "requisition://cart-snapshot.json"

const cartSnapshotSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["variant", "quantity"],
    "properties": {
      "variant": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "integer"}
        }
      },
      "quantity": {"type": "integer"}
    }
  }
}`

// CartSnapshotCodec converts carts to and from their persisted JSON form.
// Decoding validates the raw document against a schema before trusting it.
type CartSnapshotCodec struct {
	schema *jsonschema.Schema
}

// NewCartSnapshotCodec compiles the snapshot schema
func NewCartSnapshotCodec() (*CartSnapshotCodec, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	if err := c.AddResource(cartSnapshotSchemaURL, strings.NewReader(cartSnapshotSchema)); err != nil {
		return nil, fmt.Errorf("failed to add cart snapshot schema: %w", err)
	}
	compiled, err := c.Compile(cartSnapshotSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile cart snapshot schema: %w", err)
	}
	return &CartSnapshotCodec{schema: compiled}, nil
}

// Encode serializes a cart as a JSON array. An empty cart encodes as [].
func (c *CartSnapshotCodec) Encode(cart entities.Cart) ([]byte, error) {
	if cart == nil {
		cart = entities.Cart{}
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}
	return data, nil
}

// Decode parses a persisted snapshot. Any value that is not an array of
// {variant:{id}, quantity} objects yields ErrCorruptSnapshot. The returned
// lines are raw; callers normalise them by replaying through AddItem.
func (c *CartSnapshotCodec) Decode(data []byte) (entities.Cart, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := c.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	var lines entities.Cart
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if lines == nil {
		lines = entities.Cart{}
	}
	return lines, nil
}
