// Package seed loads demo accounts, stock, products and orders into an
// empty store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/tailorflow/tailorflow/internal/auth"
	"github.com/tailorflow/tailorflow/internal/fabrication"
	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/internal/orders"
	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/products"
	"github.com/tailorflow/tailorflow/internal/rbac"
	"github.com/tailorflow/tailorflow/internal/shared"
	"github.com/tailorflow/tailorflow/internal/users"
)

//go:embed default.toml
var defaultData string

// File is the decoded seed document.
type File struct {
	Users     []User    `toml:"users"`
	Inventory []Stock   `toml:"inventory"`
	Products  []Product `toml:"products"`
	Orders    []Order   `toml:"orders"`
}

// User is a seeded account.
type User struct {
	Username    string   `toml:"username"`
	Name        string   `toml:"name"`
	Email       string   `toml:"email"`
	Password    string   `toml:"password"`
	Role        string   `toml:"role"`
	Permissions []string `toml:"permissions"`
}

// Stock is a seeded inventory item.
type Stock struct {
	SKU          string  `toml:"sku"`
	Name         string  `toml:"name"`
	Category     string  `toml:"category"`
	Unit         string  `toml:"unit"`
	OpeningStock float64 `toml:"opening_stock"`
	ReorderLevel float64 `toml:"reorder_level"`
	UnitCost     float64 `toml:"unit_cost"`
}

// Product is a seeded catalog entry. BOM lines reference stock by SKU.
type Product struct {
	SKU       string    `toml:"sku"`
	Name      string    `toml:"name"`
	Category  string    `toml:"category"`
	BasePrice float64   `toml:"base_price"`
	Sections  []string  `toml:"sections"`
	BOM       []BOMLine `toml:"bom"`
}

// BOMLine is one material of a seeded product.
type BOMLine struct {
	InventorySKU string  `toml:"inventory_sku"`
	Section      string  `toml:"section"`
	Quantity     float64 `toml:"quantity"`
}

// Order is a seeded customer order. InventoryCheck runs the fabrication
// stock check on every item with sections once the order exists.
type Order struct {
	CustomerName   string      `toml:"customer_name"`
	CustomerPhone  string      `toml:"customer_phone"`
	Address        string      `toml:"address"`
	City           string      `toml:"city"`
	Method         string      `toml:"method"`
	Notes          string      `toml:"notes"`
	InventoryCheck bool        `toml:"inventory_check"`
	Items          []OrderItem `toml:"items"`
}

// OrderItem is one line of a seeded order.
type OrderItem struct {
	ProductSKU string `toml:"product_sku"`
	Size       string `toml:"size"`
	CustomSize bool   `toml:"custom_size"`
	Quantity   int    `toml:"quantity"`
}

// Parse decodes a seed document and rejects unknown keys.
func Parse(data string) (File, error) {
	var f File
	md, err := toml.Decode(data, &f)
	if err != nil {
		return File{}, fmt.Errorf("seed: decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return File{}, fmt.Errorf("seed: unknown keys: %s", strings.Join(keys, ", "))
	}
	return f, nil
}

// Load reads the seed file at path, or the built-in demo data when path is empty.
func Load(path string) (File, error) {
	if path == "" {
		return Parse(defaultData)
	}
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return File{}, fmt.Errorf("seed: decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return File{}, fmt.Errorf("seed: %s: unknown key %s", path, undecoded[0].String())
	}
	return f, nil
}

// Seeder writes a File through the domain services so every record goes
// through the same validation and invariants as API traffic.
type Seeder struct {
	Users       *users.Service
	Inventory   *inventory.Service
	Products    *products.Service
	Orders      *orders.Service
	Fabrication *fabrication.Service
	Logger      *slog.Logger

	validate *validator.Validate
}

// Summary counts what a run created.
type Summary struct {
	Users     int `json:"users"`
	Inventory int `json:"inventory"`
	Products  int `json:"products"`
	Orders    int `json:"orders"`
}

// Run seeds f unless accounts already exist.
func (s *Seeder) Run(ctx context.Context, f File) (Summary, error) {
	if s.validate == nil {
		s.validate = httpx.NewValidator()
	}
	existing, err := s.Users.ListUsers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("seed: list users: %w", err)
	}
	if len(existing) > 0 {
		s.logger().Info("seed skipped: store already has accounts", slog.Int("users", len(existing)))
		return Summary{}, nil
	}

	var sum Summary
	var admin *shared.Principal
	for _, u := range f.Users {
		req := users.CreateRequest{
			Username:    u.Username,
			Name:        u.Name,
			Email:       u.Email,
			Password:    u.Password,
			Role:        u.Role,
			Permissions: u.Permissions,
		}
		created, err := create(s, req, func() (auth.User, error) { return s.Users.CreateUser(ctx, req) })
		if err != nil {
			return sum, fmt.Errorf("seed: user %s: %w", u.Username, err)
		}
		if admin == nil || (created.Role == rbac.RoleAdmin && admin.Role != rbac.RoleAdmin) {
			admin = created.Principal()
		}
		sum.Users++
	}
	if admin == nil {
		return sum, errors.New("seed: at least one user is required")
	}

	stock := make(map[string]inventory.Item, len(f.Inventory))
	for _, st := range f.Inventory {
		req := inventory.CreateRequest{
			SKU:          st.SKU,
			Name:         st.Name,
			Category:     inventory.Category(st.Category),
			Unit:         st.Unit,
			OpeningStock: st.OpeningStock,
			ReorderLevel: st.ReorderLevel,
			UnitCost:     st.UnitCost,
		}
		item, err := create(s, req, func() (inventory.Item, error) { return s.Inventory.Create(ctx, req, admin.DisplayName()) })
		if err != nil {
			return sum, fmt.Errorf("seed: inventory %s: %w", st.SKU, err)
		}
		stock[strings.ToUpper(st.SKU)] = item
		sum.Inventory++
	}

	catalog := make(map[string]products.Product, len(f.Products))
	for _, p := range f.Products {
		req := products.CreateRequest{
			SKU:       p.SKU,
			Name:      p.Name,
			Category:  products.Category(p.Category),
			BasePrice: p.BasePrice,
			Sections:  p.Sections,
		}
		for _, line := range p.BOM {
			it, ok := stock[strings.ToUpper(line.InventorySKU)]
			if !ok {
				return sum, fmt.Errorf("seed: product %s: unknown inventory sku %s", p.SKU, line.InventorySKU)
			}
			req.BOM = append(req.BOM, products.BOMLine{
				InventoryItemID: it.ID,
				Name:            it.Name,
				Section:         line.Section,
				Quantity:        line.Quantity,
				Unit:            it.Unit,
			})
		}
		created, err := create(s, req, func() (products.Product, error) { return s.Products.Create(ctx, req) })
		if err != nil {
			return sum, fmt.Errorf("seed: product %s: %w", p.SKU, err)
		}
		catalog[strings.ToUpper(p.SKU)] = created
		sum.Products++
	}

	for i, o := range f.Orders {
		req := orders.CreateOrderRequest{
			Customer: orders.Customer{Name: o.CustomerName, Phone: o.CustomerPhone},
			Shipping: orders.Shipping{Address: o.Address, City: o.City, Method: o.Method},
			Notes:    o.Notes,
		}
		for _, line := range o.Items {
			p, ok := catalog[strings.ToUpper(line.ProductSKU)]
			if !ok {
				return sum, fmt.Errorf("seed: order %d: unknown product sku %s", i+1, line.ProductSKU)
			}
			req.Items = append(req.Items, orders.CreateItemRequest{
				ProductID:    p.ID,
				Size:         line.Size,
				IsCustomSize: line.CustomSize,
				Quantity:     line.Quantity,
			})
		}
		order, err := create(s, req, func() (orders.Order, error) { return s.Orders.CreateOrder(ctx, req, admin) })
		if err != nil {
			return sum, fmt.Errorf("seed: order %d: %w", i+1, err)
		}
		sum.Orders++
		if o.InventoryCheck && s.Fabrication != nil {
			for _, it := range order.Items {
				if len(it.SectionStatuses) == 0 {
					continue
				}
				if _, err := s.Fabrication.CheckInventory(ctx, it.ID, fabrication.CheckRequest{}, admin); err != nil {
					return sum, fmt.Errorf("seed: order %s inventory check: %w", order.OrderNumber, err)
				}
			}
		}
	}

	s.logger().Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("inventory", sum.Inventory),
		slog.Int("products", sum.Products),
		slog.Int("orders", sum.Orders),
	)
	return sum, nil
}

func create[T any](s *Seeder, req any, fn func() (T, error)) (T, error) {
	if err := httpx.Validate(s.validate, req); err != nil {
		var zero T
		return zero, err
	}
	return fn()
}

func (s *Seeder) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
