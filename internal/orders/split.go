package orders

// PricedLine is a request line joined with its product at placement time.
type PricedLine struct {
	ProductID  string
	Name       string
	PriceCents int
	Qty        int
	ShopID     string
	VendorID   string
}

// VendorBucket is the draft of one sub-order: all lines of one shop.
type VendorBucket struct {
	ShopID     string
	VendorID   string
	Items      []SubOrderItem
	TotalCents int
}

// SplitByShop partitions lines into per-shop buckets and returns them with
// the grand total. The grouping key is the shop id, not the vendor id: two
// shops owned by the same vendor produce two buckets. Buckets come out in
// first-appearance order.
func SplitByShop(lines []PricedLine) ([]VendorBucket, int) {
	idx := map[string]int{}
	var buckets []VendorBucket
	total := 0
	for _, l := range lines {
		itemTotal := l.PriceCents * l.Qty
		total += itemTotal
		i, ok := idx[l.ShopID]
		if !ok {
			i = len(buckets)
			idx[l.ShopID] = i
			buckets = append(buckets, VendorBucket{ShopID: l.ShopID, VendorID: l.VendorID})
		}
		buckets[i].Items = append(buckets[i].Items, SubOrderItem{
			ProductID:  l.ProductID,
			Name:       l.Name,
			PriceCents: l.PriceCents,
			Qty:        l.Qty,
		})
		buckets[i].TotalCents += itemTotal
	}
	return buckets, total
}
