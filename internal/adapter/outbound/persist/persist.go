// Package persist encodes storefront state to and from a key/value store.
//
// Three keys are used: "cart" holds the JSON array of line items,
// "auth:currentUser" holds the signed-in user (absent when signed out) and
// "auth:users" holds the account registry keyed by email.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lumenshop/storefront/internal/domain/account"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/port/outbound"
)

// Storage keys.
const (
	KeyCart        = "cart"
	KeyCurrentUser = "auth:currentUser"
	KeyUsers       = "auth:users"
)

// Keys lists every key this package writes.
var Keys = []string{KeyCart, KeyCurrentUser, KeyUsers}

// ErrMalformed is returned when a stored value cannot be decoded.
// Callers recover by treating the key as absent.
var ErrMalformed = errors.New("malformed stored value")

func decode(key, raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrMalformed, key, err)
	}
	return nil
}

func encode(ctx context.Context, kv outbound.KeyValueStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// CartRepository reads and writes the persisted cart.
type CartRepository struct {
	kv outbound.KeyValueStore
}

// NewCartRepository creates a CartRepository over kv.
func NewCartRepository(kv outbound.KeyValueStore) *CartRepository {
	return &CartRepository{kv: kv}
}

// Load returns the stored cart. An absent key or JSON null yields an empty
// cart. Undecodable data returns an error wrapping ErrMalformed.
func (r *CartRepository) Load(ctx context.Context) (cart.Cart, error) {
	raw, ok, err := r.kv.Get(ctx, KeyCart)
	if err != nil {
		return cart.Empty(), fmt.Errorf("read %q: %w", KeyCart, err)
	}
	if !ok {
		return cart.Empty(), nil
	}

	var items []cart.LineItem
	if err := decode(KeyCart, raw, &items); err != nil {
		return cart.Empty(), err
	}
	if items == nil {
		items = []cart.LineItem{}
	}
	return cart.Cart{Items: items}, nil
}

// Save writes c as a JSON array of line items.
func (r *CartRepository) Save(ctx context.Context, c cart.Cart) error {
	items := c.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return encode(ctx, r.kv, KeyCart, items)
}

// AccountRepository reads and writes the account registry and the signed-in user.
type AccountRepository struct {
	kv outbound.KeyValueStore
}

// NewAccountRepository creates an AccountRepository over kv.
func NewAccountRepository(kv outbound.KeyValueStore) *AccountRepository {
	return &AccountRepository{kv: kv}
}

// LoadCurrent returns the signed-in user, or nil when nobody is signed in.
func (r *AccountRepository) LoadCurrent(ctx context.Context) (*account.User, error) {
	raw, ok, err := r.kv.Get(ctx, KeyCurrentUser)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", KeyCurrentUser, err)
	}
	if !ok {
		return nil, nil
	}

	var u *account.User
	if err := decode(KeyCurrentUser, raw, &u); err != nil {
		return nil, err
	}
	if u != nil && u.Email == "" {
		return nil, fmt.Errorf("%w: key %q: missing email", ErrMalformed, KeyCurrentUser)
	}
	return u, nil
}

// SaveCurrent stores u as the signed-in user. A nil u removes the key.
func (r *AccountRepository) SaveCurrent(ctx context.Context, u *account.User) error {
	if u == nil {
		if err := r.kv.Delete(ctx, KeyCurrentUser); err != nil {
			return fmt.Errorf("delete %q: %w", KeyCurrentUser, err)
		}
		return nil
	}
	return encode(ctx, r.kv, KeyCurrentUser, u)
}

// LoadRegistry returns the account registry. An absent key yields an empty registry.
func (r *AccountRepository) LoadRegistry(ctx context.Context) (account.Registry, error) {
	raw, ok, err := r.kv.Get(ctx, KeyUsers)
	if err != nil {
		return account.Registry{}, fmt.Errorf("read %q: %w", KeyUsers, err)
	}
	if !ok {
		return account.Registry{}, nil
	}

	var reg account.Registry
	if err := decode(KeyUsers, raw, &reg); err != nil {
		return account.Registry{}, err
	}
	if reg == nil {
		reg = account.Registry{}
	}
	return reg, nil
}

// SaveRegistry writes the account registry.
func (r *AccountRepository) SaveRegistry(ctx context.Context, reg account.Registry) error {
	if reg == nil {
		reg = account.Registry{}
	}
	return encode(ctx, r.kv, KeyUsers, reg)
}
