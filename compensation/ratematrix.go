/*
ratematrix.go - Sparse (territory, product) commission rates

LOOKUP:
  ResolveRate returns the configured rate for (territory, product), or the
  caller's fallback (the tier base rate) when no entry exists. A missing
  entry is expected: not every pair needs configuring. The result is
  never negative.

EDITING:
  The matrix owns its territory and product lists. Adding a territory seeds
  DefaultMatrixRate for every known product (and vice versa); removing one
  deletes every entry keyed by it. SetRate rejects rates outside [0, 1].
  Every edit returns a new RateMatrix; the receiver is never modified, so
  a matrix can be shared by concurrent calculations without locking.

JSON SHAPE:
  {
    "territories": ["West Coast", "East Coast"],
    "products":    ["Enterprise", "SMB"],
    "rates": [{"territory": "West Coast", "product": "Enterprise", "rate": "0.085"}]
  }
*/
package compensation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMatrixRate seeds new matrix cells.
var DefaultMatrixRate = decimal.RequireFromString("0.05")

type cell struct {
	territory string
	product   string
}

// RateEntry is one configured matrix cell.
type RateEntry struct {
	Territory string          `json:"territory"`
	Product   string          `json:"product"`
	Rate      decimal.Decimal `json:"rate"`
}

// RateMatrix is an immutable sparse rate table. The zero value is an empty matrix.
type RateMatrix struct {
	territories []string
	products    []string
	rates       map[cell]decimal.Decimal
}

// NewRateMatrix builds a matrix from entries, registering every territory
// and product they mention. Entries are stored as given; use Validate to
// flag out-of-range values loaded from storage.
func NewRateMatrix(entries ...RateEntry) RateMatrix {
	m := RateMatrix{rates: make(map[cell]decimal.Decimal, len(entries))}
	for _, e := range entries {
		if !contains(m.territories, e.Territory) {
			m.territories = append(m.territories, e.Territory)
		}
		if !contains(m.products, e.Product) {
			m.products = append(m.products, e.Product)
		}
		m.rates[cell{e.Territory, e.Product}] = e.Rate
	}
	return m
}

// =============================================================================
// LOOKUP
// =============================================================================

// Rate returns the configured rate for (territory, product).
func (m RateMatrix) Rate(territory, product string) (decimal.Decimal, bool) {
	r, ok := m.rates[cell{territory, product}]
	return r, ok
}

// ResolveRate returns the matrix rate or fallback when the pair is not
// configured. The second result reports whether fallback was used.
func (m RateMatrix) ResolveRate(territory, product string, fallback decimal.Decimal) (decimal.Decimal, bool) {
	rate, ok := m.Rate(territory, product)
	usedFallback := !ok
	if usedFallback {
		rate = fallback
	}
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return rate, usedFallback
}

// Territories returns the known territories in insertion order.
func (m RateMatrix) Territories() []string { return append([]string(nil), m.territories...) }

// Products returns the known products in insertion order.
func (m RateMatrix) Products() []string { return append([]string(nil), m.products...) }

// Entries returns every configured cell, ordered by territory then product
// position.
func (m RateMatrix) Entries() []RateEntry {
	out := make([]RateEntry, 0, len(m.rates))
	for _, t := range m.territories {
		for _, p := range m.products {
			if r, ok := m.rates[cell{t, p}]; ok {
				out = append(out, RateEntry{Territory: t, Product: p, Rate: r})
			}
		}
	}
	return out
}

// Len returns the number of configured cells.
func (m RateMatrix) Len() int { return len(m.rates) }

// =============================================================================
// EDITS (copy-on-write)
// =============================================================================

// SetRate configures one cell. Both dimensions must already be known.
func (m RateMatrix) SetRate(territory, product string, rate decimal.Decimal) (RateMatrix, error) {
	if !contains(m.territories, territory) || !contains(m.products, product) {
		return RateMatrix{}, fmt.Errorf("%w: %s/%s", ErrUnknownDimension, territory, product)
	}
	if err := checkRate(territory+"/"+product, rate); err != nil {
		return RateMatrix{}, err
	}
	out := m.clone()
	out.rates[cell{territory, product}] = rate
	return out, nil
}

// AddTerritory registers a territory and seeds DefaultMatrixRate for every product.
func (m RateMatrix) AddTerritory(name string) (RateMatrix, error) {
	name = strings.TrimSpace(name)
	if name == "" || contains(m.territories, name) {
		return RateMatrix{}, fmt.Errorf("%w: territory %q", ErrDuplicateDimension, name)
	}
	out := m.clone()
	out.territories = append(out.territories, name)
	for _, p := range out.products {
		out.rates[cell{name, p}] = DefaultMatrixRate
	}
	return out, nil
}

// AddProduct registers a product and seeds DefaultMatrixRate for every territory.
func (m RateMatrix) AddProduct(name string) (RateMatrix, error) {
	name = strings.TrimSpace(name)
	if name == "" || contains(m.products, name) {
		return RateMatrix{}, fmt.Errorf("%w: product %q", ErrDuplicateDimension, name)
	}
	out := m.clone()
	out.products = append(out.products, name)
	for _, t := range out.territories {
		out.rates[cell{t, name}] = DefaultMatrixRate
	}
	return out, nil
}

// RemoveTerritory drops a territory and every entry keyed by it.
func (m RateMatrix) RemoveTerritory(name string) (RateMatrix, error) {
	if !contains(m.territories, name) {
		return RateMatrix{}, fmt.Errorf("%w: territory %q", ErrUnknownDimension, name)
	}
	out := m.clone()
	out.territories = without(out.territories, name)
	for k := range out.rates {
		if k.territory == name {
			delete(out.rates, k)
		}
	}
	return out, nil
}

// RemoveProduct drops a product and every entry keyed by it.
func (m RateMatrix) RemoveProduct(name string) (RateMatrix, error) {
	if !contains(m.products, name) {
		return RateMatrix{}, fmt.Errorf("%w: product %q", ErrUnknownDimension, name)
	}
	out := m.clone()
	out.products = without(out.products, name)
	for k := range out.rates {
		if k.product == name {
			delete(out.rates, k)
		}
	}
	return out, nil
}

func (m RateMatrix) clone() RateMatrix {
	out := RateMatrix{
		territories: append([]string(nil), m.territories...),
		products:    append([]string(nil), m.products...),
		rates:       make(map[cell]decimal.Decimal, len(m.rates)),
	}
	for k, v := range m.rates {
		out.rates[k] = v
	}
	return out
}

// =============================================================================
// JSON
// =============================================================================

type rateMatrixJSON struct {
	Territories []string    `json:"territories"`
	Products    []string    `json:"products"`
	Rates       []RateEntry `json:"rates"`
}

func (m RateMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(rateMatrixJSON{
		Territories: nonNil(m.territories),
		Products:    nonNil(m.products),
		Rates:       m.Entries(),
	})
}

func (m *RateMatrix) UnmarshalJSON(data []byte) error {
	var raw rateMatrixJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := NewRateMatrix(raw.Rates...)
	// Declared dimensions keep their declared order; extras from entries follow.
	territories := append([]string(nil), raw.Territories...)
	for _, t := range out.territories {
		if !contains(territories, t) {
			territories = append(territories, t)
		}
	}
	products := append([]string(nil), raw.Products...)
	for _, p := range out.products {
		if !contains(products, p) {
			products = append(products, p)
		}
	}
	out.territories = territories
	out.products = products
	*m = out
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// sortedKeys is used where map iteration must be deterministic.
func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
