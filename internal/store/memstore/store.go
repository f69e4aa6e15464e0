// Package memstore keeps every aggregate in process memory. Transactions
// serialise on one mutex and work on a copy that replaces the live state
// only when the callback succeeds.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/packets"
	"github.com/tailorflow/tailorflow/internal/products"
)

type state struct {
	orders     map[string]orders.Order
	orderItems map[string][]string
	items      map[string]orders.Item
	orderSeq   int
	inventory  map[string]inventory.Item
	movements  []inventory.Movement
	packets    map[string]packets.Packet
	products   map[string]products.Product
	users      map[string]auth.User
}

func newState() *state {
	return &state{
		orders:     map[string]orders.Order{},
		orderItems: map[string][]string{},
		items:      map[string]orders.Item{},
		inventory:  map[string]inventory.Item{},
		packets:    map[string]packets.Packet{},
		products:   map[string]products.Product{},
		users:      map[string]auth.User{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.orders {
		out.orders[k] = v.Clone()
	}
	for k, v := range s.orderItems {
		out.orderItems[k] = append([]string(nil), v...)
	}
	for k, v := range s.items {
		out.items[k] = v.Clone()
	}
	out.orderSeq = s.orderSeq
	for k, v := range s.inventory {
		out.inventory[k] = v
	}
	out.movements = append([]inventory.Movement(nil), s.movements...)
	for k, v := range s.packets {
		out.packets[k] = v.Clone()
	}
	for k, v := range s.products {
		out.products[k] = v.Clone()
	}
	for k, v := range s.users {
		out.users[k] = v.Clone()
	}
	return out
}

// Store is the in-memory backing for all repositories.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) withTx(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) read(fn func(*state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

// Orders returns the order repository.
func (s *Store) Orders() *OrdersRepo { return &OrdersRepo{store: s} }

// Inventory returns the stock repository.
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{store: s} }

// Packets returns the packet repository.
func (s *Store) Packets() *PacketsRepo { return &PacketsRepo{store: s} }

// Products returns the product catalog repository.
func (s *Store) Products() *ProductsRepo { return &ProductsRepo{store: s} }

// Production returns the cross-module transactional repository.
func (s *Store) Production() *ProductionRepo { return &ProductionRepo{store: s} }

// Users returns the account repository.
func (s *Store) Users() *UsersRepo { return &UsersRepo{store: s} }

func (st *state) orderWithItems(o orders.Order) orders.Order {
	out := o.Clone()
	out.Items = make([]orders.Item, 0, len(st.orderItems[o.ID]))
	for _, id := range st.orderItems[o.ID] {
		out.Items = append(out.Items, st.items[id].Clone())
	}
	return out
}

func (st *state) itemPackets(orderItemID string) []packets.Packet {
	var out []packets.Packet
	for _, p := range st.packets {
		if p.OrderItemID == orderItemID {
			out = append(out, p.Clone())
		}
	}
	sortPackets(out)
	return out
}

func sortPackets(list []packets.Packet) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
