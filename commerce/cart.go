package commerce

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/shopAuth/store"
)

// Cart is the set of product ids a user has added.
type Cart struct {
	Email    string  `json:"email" bson:"email"`
	Products []int64 `json:"products" bson:"products"`
}

// CartManager maintains one cart per email. Carts are created on first add.
type CartManager struct {
	records store.RecordStore
	coll    store.Collection
	opts    options
}

// NewCartManager returns a manager over coll.
func NewCartManager(records store.RecordStore, coll store.Collection, opts ...Option) *CartManager {
	return &CartManager{records: records, coll: coll, opts: buildOptions(opts)}
}

// Add puts productID in the cart for email. Adding a product twice is a
// no-op.
func (m *CartManager) Add(ctx context.Context, email string, productID int64) error {
	email = normalizeEmail(email)
	if email == "" || productID <= 0 {
		return ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.timeout)
	defer cancel()

	_, err := m.records.UpdateOne(ctx, m.coll,
		store.Filter{fieldEmail: email},
		store.Update{AddToSet: map[string]any{fieldProducts: productID}},
		true,
	)
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

// Remove takes productID out of the cart and reports whether it was there.
func (m *CartManager) Remove(ctx context.Context, email string, productID int64) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || productID <= 0 {
		return false, ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.timeout)
	defer cancel()

	res, err := m.records.UpdateOne(ctx, m.coll,
		store.Filter{fieldEmail: email},
		store.Update{Pull: map[string]any{fieldProducts: productID}},
		false,
	)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove from cart: %w", err)
	}
	return res.Modified > 0, nil
}

// Items returns the product ids in the cart, empty when there is no cart.
func (m *CartManager) Items(ctx context.Context, email string) ([]int64, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.timeout)
	defer cancel()

	var c Cart
	err := m.records.FindOne(ctx, m.coll, store.Filter{fieldEmail: email}, &c)
	if errors.Is(err, store.ErrNotFound) {
		return []int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if c.Products == nil {
		c.Products = []int64{}
	}
	return c.Products, nil
}

// Clear empties the cart for email.
func (m *CartManager) Clear(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.timeout)
	defer cancel()

	_, err := m.records.UpdateOne(ctx, m.coll,
		store.Filter{fieldEmail: email},
		store.Update{Set: map[string]any{fieldProducts: []int64{}}},
		true,
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
