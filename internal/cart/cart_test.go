package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	items := Merge(nil, Item{ProductID: "a", Qty: 1, PriceCents: 100})
	items = Merge(items, Item{ProductID: "b", Qty: 2, PriceCents: 200})
	require.Len(t, items, 2)

	// same product+variant merges quantities, keeps the original snapshot
	items = Merge(items, Item{ProductID: "a", Qty: 3, PriceCents: 999})
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[0].Qty)
	assert.Equal(t, 100, items[0].PriceCents)

	// a different variant is its own line
	items = Merge(items, Item{ProductID: "a", Qty: 1, Variant: "large", PriceCents: 150})
	assert.Len(t, items, 3)
}

func TestRemove(t *testing.T) {
	items := []Item{
		{ProductID: "a", Qty: 1},
		{ProductID: "a", Qty: 2, Variant: "large"},
		{ProductID: "b", Qty: 1},
	}
	items = Remove(items, "a", "")
	require.Len(t, items, 2)
	assert.Equal(t, "large", items[0].Variant)
	assert.Equal(t, "b", items[1].ProductID)

	// removing something absent is a no-op
	items = Remove(items, "zzz", "")
	assert.Len(t, items, 2)
}
