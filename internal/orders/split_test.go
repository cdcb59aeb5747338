package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByShop(t *testing.T) {
	lines := []PricedLine{
		{ProductID: "a", Name: "Mug", PriceCents: 1000, Qty: 2, ShopID: "shop1", VendorID: "v1"},
		{ProductID: "b", Name: "Tea", PriceCents: 2000, Qty: 1, ShopID: "shop2", VendorID: "v2"},
		{ProductID: "c", Name: "Pot", PriceCents: 500, Qty: 4, ShopID: "shop1", VendorID: "v1"},
	}
	buckets, total := SplitByShop(lines)

	assert.Equal(t, 6000, total)
	require.Len(t, buckets, 2)

	// first-appearance order
	assert.Equal(t, "shop1", buckets[0].ShopID)
	assert.Equal(t, "v1", buckets[0].VendorID)
	assert.Equal(t, 4000, buckets[0].TotalCents)
	require.Len(t, buckets[0].Items, 2)
	assert.Equal(t, "Mug", buckets[0].Items[0].Name)

	assert.Equal(t, "shop2", buckets[1].ShopID)
	assert.Equal(t, 2000, buckets[1].TotalCents)

	sum := 0
	for _, b := range buckets {
		sum += b.TotalCents
	}
	assert.Equal(t, total, sum)
}

func TestSplitByShopSameVendorTwoShops(t *testing.T) {
	// grouping key is the shop, not the vendor
	lines := []PricedLine{
		{ProductID: "a", PriceCents: 100, Qty: 1, ShopID: "shop1", VendorID: "v1"},
		{ProductID: "b", PriceCents: 100, Qty: 1, ShopID: "shop2", VendorID: "v1"},
	}
	buckets, total := SplitByShop(lines)
	assert.Equal(t, 200, total)
	assert.Len(t, buckets, 2)
}

func TestSplitByShopEmpty(t *testing.T) {
	buckets, total := SplitByShop(nil)
	assert.Zero(t, total)
	assert.Empty(t, buckets)
}
