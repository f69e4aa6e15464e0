package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/production"
	"github.com/tailorflow/tailorflow/internal/products"
	"github.com/tailorflow/tailorflow/internal/users"
)

// OrdersRepo implements orders.RepositoryPort.
type OrdersRepo struct{ store *Store }

// WithTx runs fn in a transaction.
func (r *OrdersRepo) WithTx(ctx context.Context, fn func(context.Context, orders.TxRepository) error) error {
	return r.store.withTx(func(st *state) error { return fn(ctx, &txView{st: st}) })
}

// ListOrders returns orders newest first.
func (r *OrdersRepo) ListOrders(ctx context.Context, status orders.OrderStatus) ([]orders.Order, error) {
	var out []orders.Order
	r.store.read(func(st *state) {
		for _, o := range st.orders {
			if status != "" && o.Status != status {
				continue
			}
			out = append(out, st.orderWithItems(o))
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetOrder fetches one order with its items.
func (r *OrdersRepo) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	var (
		out orders.Order
		ok  bool
	)
	r.store.read(func(st *state) {
		var o orders.Order
		if o, ok = st.orders[id]; ok {
			out = st.orderWithItems(o)
		}
	})
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return out, nil
}

// GetItem fetches one item.
func (r *OrdersRepo) GetItem(ctx context.Context, id string) (orders.Item, error) {
	var (
		out orders.Item
		ok  bool
	)
	r.store.read(func(st *state) {
		var it orders.Item
		if it, ok = st.items[id]; ok {
			out = it.Clone()
		}
	})
	if !ok {
		return orders.Item{}, orders.ErrItemNotFound
	}
	return out, nil
}

// ListItems lists items matching the filter, oldest first.
func (r *OrdersRepo) ListItems(ctx context.Context, filter orders.ItemFilter) ([]orders.Item, error) {
	var out []orders.Item
	r.store.read(func(st *state) {
		for _, it := range st.items {
			if filter.Matches(it) {
				out = append(out, it.Clone())
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// InventoryRepo implements inventory.RepositoryPort.
type InventoryRepo struct{ store *Store }

// WithTx runs fn in a transaction.
func (r *InventoryRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	return r.store.withTx(func(st *state) error { return fn(ctx, &txView{st: st}) })
}

// ListItems returns all stock items.
func (r *InventoryRepo) ListItems(ctx context.Context) ([]inventory.Item, error) {
	var out []inventory.Item
	r.store.read(func(st *state) {
		for _, it := range st.inventory {
			out = append(out, it)
		}
	})
	return out, nil
}

// GetItem fetches one stock item.
func (r *InventoryRepo) GetItem(ctx context.Context, id string) (inventory.Item, error) {
	var (
		out inventory.Item
		ok  bool
	)
	r.store.read(func(st *state) { out, ok = st.inventory[id] })
	if !ok {
		return inventory.Item{}, inventory.ErrItemNotFound
	}
	return out, nil
}

// ListMovements returns the latest movements of an item, newest first.
func (r *InventoryRepo) ListMovements(ctx context.Context, itemID string, limit int) ([]inventory.Movement, error) {
	var out []inventory.Movement
	r.store.read(func(st *state) {
		for i := len(st.movements) - 1; i >= 0 && len(out) < limit; i-- {
			if st.movements[i].InventoryItemID == itemID {
				out = append(out, st.movements[i])
			}
		}
	})
	return out, nil
}

// PacketsRepo implements packets.RepositoryPort.
type PacketsRepo struct{ store *Store }

// WithTx runs fn in a transaction.
func (r *PacketsRepo) WithTx(ctx context.Context, fn func(context.Context, packets.TxRepository) error) error {
	return r.store.withTx(func(st *state) error { return fn(ctx, &txView{st: st}) })
}

// ListPackets returns packets matching the filter.
func (r *PacketsRepo) ListPackets(ctx context.Context, filter packets.ListFilter) ([]packets.Packet, error) {
	var out []packets.Packet
	r.store.read(func(st *state) {
		for _, p := range st.packets {
			if filter.Matches(p) {
				out = append(out, p.Clone())
			}
		}
	})
	sortPackets(out)
	return out, nil
}

// GetPacket fetches one packet.
func (r *PacketsRepo) GetPacket(ctx context.Context, id string) (packets.Packet, error) {
	var (
		out packets.Packet
		ok  bool
	)
	r.store.read(func(st *state) {
		var p packets.Packet
		if p, ok = st.packets[id]; ok {
			out = p.Clone()
		}
	})
	if !ok {
		return packets.Packet{}, packets.ErrPacketNotFound
	}
	return out, nil
}

// ProductsRepo implements products.RepositoryPort.
type ProductsRepo struct{ store *Store }

// ListProducts returns products ordered by name.
func (r *ProductsRepo) ListProducts(ctx context.Context, activeOnly bool) ([]products.Product, error) {
	var out []products.Product
	r.store.read(func(st *state) {
		for _, p := range st.products {
			if activeOnly && !p.IsActive {
				continue
			}
			out = append(out, p.Clone())
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetProduct fetches one product.
func (r *ProductsRepo) GetProduct(ctx context.Context, id string) (products.Product, error) {
	var (
		out products.Product
		ok  bool
	)
	r.store.read(func(st *state) {
		var p products.Product
		if p, ok = st.products[id]; ok {
			out = p.Clone()
		}
	})
	if !ok {
		return products.Product{}, products.ErrProductNotFound
	}
	return out, nil
}

// CreateProduct stores a product with a unique SKU.
func (r *ProductsRepo) CreateProduct(ctx context.Context, p products.Product) error {
	return r.store.withTx(func(st *state) error {
		for _, existing := range st.products {
			if strings.EqualFold(existing.SKU, p.SKU) {
				return fmt.Errorf("product sku %s: %w", p.SKU, httpx.ErrDuplicate)
			}
		}
		st.products[p.ID] = p.Clone()
		return nil
	})
}

// UpdateProduct replaces a product.
func (r *ProductsRepo) UpdateProduct(ctx context.Context, p products.Product) error {
	return r.store.withTx(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return products.ErrProductNotFound
		}
		st.products[p.ID] = p.Clone()
		return nil
	})
}

// ProductionRepo implements production.Repository.
type ProductionRepo struct{ store *Store }

// WithTx runs fn in a transaction spanning orders, stock and packets.
func (r *ProductionRepo) WithTx(ctx context.Context, fn func(context.Context, production.Tx) error) error {
	return r.store.withTx(func(st *state) error { return fn(ctx, &txView{st: st}) })
}

// UsersRepo implements the account repositories.
type UsersRepo struct{ store *Store }

// FindByUsername looks an account up case-insensitively.
func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (auth.User, error) {
	var (
		out auth.User
		ok  bool
	)
	r.store.read(func(st *state) {
		for _, u := range st.users {
			if strings.EqualFold(u.Username, username) {
				out, ok = u.Clone(), true
				return
			}
		}
	})
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return out, nil
}

// FindByID fetches an account.
func (r *UsersRepo) FindByID(ctx context.Context, id string) (auth.User, error) {
	var (
		out auth.User
		ok  bool
	)
	r.store.read(func(st *state) {
		var u auth.User
		if u, ok = st.users[id]; ok {
			out = u.Clone()
		}
	})
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return out, nil
}

// GetUser is FindByID under the users module's name.
func (r *UsersRepo) GetUser(ctx context.Context, id string) (auth.User, error) {
	return r.FindByID(ctx, id)
}

// ListUsers returns accounts ordered by username.
func (r *UsersRepo) ListUsers(ctx context.Context) ([]auth.User, error) {
	var out []auth.User
	r.store.read(func(st *state) {
		for _, u := range st.users {
			out = append(out, u.Clone())
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// CreateUser stores an account with a unique username.
func (r *UsersRepo) CreateUser(ctx context.Context, u auth.User) error {
	return r.store.withTx(func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Username, u.Username) {
				return fmt.Errorf("username %s: %w", u.Username, httpx.ErrDuplicate)
			}
		}
		st.users[u.ID] = u.Clone()
		return nil
	})
}

// UpdateUser replaces an account.
func (r *UsersRepo) UpdateUser(ctx context.Context, u auth.User) error {
	return r.store.withTx(func(st *state) error {
		if _, ok := st.users[u.ID]; !ok {
			return auth.ErrUserNotFound
		}
		st.users[u.ID] = u.Clone()
		return nil
	})
}

var (
	_ orders.RepositoryPort    = (*OrdersRepo)(nil)
	_ inventory.RepositoryPort = (*InventoryRepo)(nil)
	_ packets.RepositoryPort   = (*PacketsRepo)(nil)
	_ products.RepositoryPort  = (*ProductsRepo)(nil)
	_ production.Repository    = (*ProductionRepo)(nil)
	_ auth.Repository          = (*UsersRepo)(nil)
	_ users.RepositoryPort     = (*UsersRepo)(nil)
	_ production.Tx            = (*txView)(nil)
)
