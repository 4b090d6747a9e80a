package entities

// CartLine is one requested variant and its quantity. A line present in a cart
// always has a positive quantity.
type CartLine struct {
	Variant  Variant  `json:"variant"`
	Quantity Quantity `json:"quantity"`
}

// Cart is an ordered sequence of lines with at most one line per variant id.
// Transitions never modify the receiver; they return the next cart.
type Cart []CartLine

// IndexOf returns the position of the line for variantID, or -1
func (c Cart) IndexOf(variantID VariantID) int {
	for i := range c {
		if c[i].Variant.ID == variantID {
			return i
		}
	}
	return -1
}

// Line returns the line for variantID if present
func (c Cart) Line(variantID VariantID) (CartLine, bool) {
	if i := c.IndexOf(variantID); i >= 0 {
		return c[i], true
	}
	return CartLine{}, false
}

// ItemCount returns the sum of all line quantities. Lines are capped at
// MaxQuantity so the sum cannot overflow.
func (c Cart) ItemCount() Quantity {
	var total Quantity
	for _, line := range c {
		total += line.Quantity
	}
	return total
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// Clone returns an independent copy of the cart
func (c Cart) Clone() Cart {
	next := make(Cart, len(c))
	copy(next, c)
	return next
}

// AddItem merges quantity into the line for variant. An existing line whose
// quantity drops to zero or below is removed; a missing line is only created
// for a positive quantity. Line quantities saturate at MaxQuantity.
func (c Cart) AddItem(variant Variant, quantity Quantity) Cart {
	if variant.ID <= 0 {
		return c.Clone()
	}

	next := c.Clone()
	if i := next.IndexOf(variant.ID); i >= 0 {
		next[i].Quantity = addCapped(next[i].Quantity, quantity)
		if next[i].Quantity <= 0 {
			return append(next[:i], next[i+1:]...)
		}
		return next
	}

	if quantity <= 0 {
		return next
	}
	return append(next, CartLine{Variant: variant, Quantity: min(quantity, MaxQuantity)})
}

// RemoveItem deletes the line for variantID if present
func (c Cart) RemoveItem(variantID VariantID) Cart {
	next := make(Cart, 0, len(c))
	for _, line := range c {
		if line.Variant.ID != variantID {
			next = append(next, line)
		}
	}
	return next
}

// SetQuantity replaces the quantity of an existing line. Negative quantities
// clamp to zero and zero removes the line. A variant without a line is left
// absent: the line must already exist for SetQuantity to act.
func (c Cart) SetQuantity(variantID VariantID, quantity Quantity) Cart {
	if quantity < 0 {
		quantity = 0
	}

	i := c.IndexOf(variantID)
	if i < 0 {
		return c.Clone()
	}
	if quantity == 0 {
		return c.RemoveItem(variantID)
	}

	next := c.Clone()
	next[i].Quantity = min(quantity, MaxQuantity)
	return next
}

// Clear returns an empty cart
func (c Cart) Clear() Cart {
	return Cart{}
}

// DraftItems maps each line to the payload used to create a draft request
func (c Cart) DraftItems() []DraftItem {
	items := make([]DraftItem, 0, len(c))
	for _, line := range c {
		items = append(items, DraftItem{
			VariantID:         line.Variant.ID,
			QuantityRequested: line.Quantity,
		})
	}
	return items
}

// DraftItem is one line of a draft request creation payload
type DraftItem struct {
	VariantID         VariantID `json:"variant_id"`
	QuantityRequested Quantity  `json:"quantity_requested"`
}
