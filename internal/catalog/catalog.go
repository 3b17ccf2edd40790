// Package catalog holds the static product definitions that back every
// purchase. Prices and categories always come from here, never from the
// client request.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// Product mirrors one Steam itemdef entry. Only a few fields drive the
// purchase pipeline; the rest ride along for the itemdef upload tooling.
type Product struct {
	ItemDefID   int64  `json:"itemdefid"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DisplayType string `json:"display_type,omitempty"`
	Category    string `json:"category"`
	PriceUSD    int64  `json:"price_usd"` // minor units
	Marketable  bool   `json:"marketable,omitempty"`
	Tradable    bool   `json:"tradable,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
	StoreHidden bool   `json:"store_hidden,omitempty"`
	Bundle      string `json:"bundle,omitempty"`
	GoldQty     int64  `json:"gold_quantity,omitempty"`
}

// productsSchema guards the definition file before decoding. A definition
// that fails here must abort startup.
const productsSchema = `{
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["itemdefid", "type", "name", "category", "price_usd"],
				"properties": {
					"itemdefid": {"type": "integer", "minimum": 1},
					"type": {"type": "string", "enum": ["item", "bundle"]},
					"name": {"type": "string", "minLength": 1},
					"category": {"type": "string", "minLength": 1},
					"price_usd": {"type": "integer", "minimum": 1}
				}
			}
		}
	}
}`

type productsFile struct {
	Items []Product `json:"items"`
}

// Catalog is the immutable itemdefid index. Safe for unsynchronized
// concurrent reads after Load.
type Catalog struct {
	byID  map[int64]Product
	items []Product
}

// Load reads and validates the product definition file. Any malformed
// entry or duplicate itemdefid is fatal.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read product definitions: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw definition bytes.
func Parse(data []byte) (*Catalog, error) {
	schemaLoader := gojsonschema.NewStringLoader(productsSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validate product definitions: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return nil, fmt.Errorf("invalid product definitions: %s: %s", first.Field(), first.Description())
	}

	var file productsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode product definitions: %w", err)
	}

	return New(file.Items)
}

// New builds a catalog from already-decoded products, rejecting duplicates.
func New(items []Product) (*Catalog, error) {
	byID := make(map[int64]Product, len(items))
	for _, p := range items {
		if _, exists := byID[p.ItemDefID]; exists {
			return nil, fmt.Errorf("duplicate itemdefid %d in product definitions", p.ItemDefID)
		}
		byID[p.ItemDefID] = p
	}
	return &Catalog{byID: byID, items: items}, nil
}

// Lookup resolves an itemdefid to its product entry.
func (c *Catalog) Lookup(itemID int64) (Product, bool) {
	p, ok := c.byID[itemID]
	return p, ok
}

// Len returns the number of products loaded.
func (c *Catalog) Len() int {
	return len(c.byID)
}
