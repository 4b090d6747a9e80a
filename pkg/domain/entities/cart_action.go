package entities

// CartActionKind identifies a cart transition
type CartActionKind int

const (
	CartAdd CartActionKind = iota
	CartRemove
	CartSetQuantity
	CartClear
	CartLoad
)

// String method for CartActionKind enum
func (k CartActionKind) String() string {
	switch k {
	case CartAdd:
		return "add"
	case CartRemove:
		return "remove"
	case CartSetQuantity:
		return "set_quantity"
	case CartClear:
		return "clear"
	case CartLoad:
		return "load"
	default:
		return "unknown"
	}
}

// CartAction describes one transition so it can be journaled and replayed
type CartAction struct {
	Kind      CartActionKind `json:"kind"`
	Variant   Variant        `json:"variant,omitzero"`
	VariantID VariantID      `json:"variant_id,omitempty"`
	Quantity  Quantity       `json:"quantity,omitempty"`
	Lines     Cart           `json:"lines,omitempty"`
}

// AddAction builds an add transition
func AddAction(variant Variant, quantity Quantity) CartAction {
	return CartAction{Kind: CartAdd, Variant: variant, VariantID: variant.ID, Quantity: quantity}
}

// RemoveAction builds a remove transition
func RemoveAction(variantID VariantID) CartAction {
	return CartAction{Kind: CartRemove, VariantID: variantID}
}

// SetQuantityAction builds a set-quantity transition
func SetQuantityAction(variantID VariantID, quantity Quantity) CartAction {
	return CartAction{Kind: CartSetQuantity, VariantID: variantID, Quantity: quantity}
}

// ClearAction builds a clear transition
func ClearAction() CartAction {
	return CartAction{Kind: CartClear}
}

// LoadAction builds a transition that replaces the cart with lines
func LoadAction(lines Cart) CartAction {
	return CartAction{Kind: CartLoad, Lines: lines.Clone()}
}

// Reduce applies action to cart and returns the next cart. Loaded lines are
// merged one by one through AddItem so a loaded cart obeys the same
// invariants as one built interactively.
func Reduce(cart Cart, action CartAction) Cart {
	switch action.Kind {
	case CartAdd:
		return cart.AddItem(action.Variant, action.Quantity)
	case CartRemove:
		return cart.RemoveItem(action.VariantID)
	case CartSetQuantity:
		return cart.SetQuantity(action.VariantID, action.Quantity)
	case CartClear:
		return cart.Clear()
	case CartLoad:
		next := Cart{}
		for _, line := range action.Lines {
			next = next.AddItem(line.Variant, line.Quantity)
		}
		return next
	default:
		return cart.Clone()
	}
}

// Replay folds actions over an empty cart
func Replay(actions []CartAction) Cart {
	cart := Cart{}
	for _, action := range actions {
		cart = Reduce(cart, action)
	}
	return cart
}
