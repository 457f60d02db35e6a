package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/devdazzlee/sphire-client/pkg/types"
)

// Reduce rebuilds a cart state from its lines. Total and ItemCount are
// always recomputed in full, never patched incrementally, so aggregates
// cannot drift from the lines even if a snapshot arrived inconsistent.
// Lines with a non-positive quantity are dropped, never stored as zero.
func Reduce(lines []types.CartLine) types.CartState {
	kept := make([]types.CartLine, 0, len(lines))
	total := decimal.Zero
	count := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		kept = append(kept, line)
		total = total.Add(line.Total())
		count += line.Quantity
	}
	return types.CartState{Lines: kept, Total: total, ItemCount: count}
}

// addLine increments the existing line for the product or appends a new one.
func addLine(lines []types.CartLine, product types.Product, qty int) []types.CartLine {
	next := make([]types.CartLine, len(lines))
	copy(next, lines)
	for i := range next {
		if next[i].Product.ID == product.ID {
			next[i].Quantity += qty
			return next
		}
	}
	return append(next, types.CartLine{Product: product, Quantity: qty})
}

// setQuantity replaces the quantity of an existing line. Callers handle the
// qty <= 0 removal policy before reaching here.
func setQuantity(lines []types.CartLine, productID uuid.UUID, qty int) []types.CartLine {
	next := make([]types.CartLine, len(lines))
	copy(next, lines)
	for i := range next {
		if next[i].Product.ID == productID {
			next[i].Quantity = qty
		}
	}
	return next
}

func removeLine(lines []types.CartLine, productID uuid.UUID) []types.CartLine {
	next := make([]types.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Product.ID == productID {
			continue
		}
		next = append(next, line)
	}
	return next
}
