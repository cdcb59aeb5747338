package cart

// Item is one cart line. PriceCents is the unit price snapshot taken when the
// line was added; checkout charges the snapshot, not the live price.
type Item struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	Variant    string `json:"variant,omitempty"`
	PriceCents int    `json:"price_cents"`
}

// Merge adds a line to the cart. The same product+variant merges quantities
// and keeps the existing price snapshot; otherwise the line is appended.
func Merge(items []Item, add Item) []Item {
	for i, it := range items {
		if it.ProductID == add.ProductID && it.Variant == add.Variant {
			items[i].Qty += add.Qty
			return items
		}
	}
	return append(items, add)
}

// Remove drops the line matching product+variant, preserving order.
func Remove(items []Item, productID, variant string) []Item {
	out := items[:0]
	for _, it := range items {
		if it.ProductID == productID && it.Variant == variant {
			continue
		}
		out = append(out, it)
	}
	return out
}
