package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lumenshop/storefront/internal/domain/account"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/catalog"
	"github.com/lumenshop/storefront/internal/domain/checkout"
	"github.com/lumenshop/storefront/internal/service"
)

// ErrOutOfStock is returned by add_to_cart for products with no stock.
var ErrOutOfStock = errors.New("product is out of stock")

// Services are the storefront services exposed as tools. Nil services
// leave their tools unregistered.
type Services struct {
	Catalog  *service.CatalogService
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Accounts *service.AccountService
}

type listProductsArgs struct {
	Category string `json:"category"`
	Price    string `json:"price"`
	Sort     string `json:"sort"`
	Featured bool   `json:"featured"`
	Where    string `json:"where"`
}

type getProductArgs struct {
	Ref string `json:"ref"`
}

type addToCartArgs struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateCartItemArgs struct {
	LineID   int64 `json:"lineId"`
	Quantity int   `json:"quantity"`
}

type removeCartItemArgs struct {
	LineID int64 `json:"lineId"`
}

type shippingArgs struct {
	Shipping string `json:"shipping"`
}

type listOrdersArgs struct {
	Limit int `json:"limit"`
}

type ordersOutput struct {
	Orders []service.Order `json:"orders"`
}

type productsOutput struct {
	Products []catalog.Product `json:"products"`
}

type categoriesOutput struct {
	Categories []catalog.Category `json:"categories"`
}

type addToCartOutput struct {
	Item cart.LineItem    `json:"item"`
	Cart service.CartView `json:"cart"`
}

type sessionOutput struct {
	Authenticated bool          `json:"authenticated"`
	User          *account.User `json:"user,omitempty"`
}

const (
	listProductsSchema = `{
  "type": "object",
  "properties": {
    "category": {"type": "string", "description": "Category slug or name"},
    "price": {"type": "string", "enum": ["", "under-50", "50-100", "100-200", "over-200"]},
    "sort": {"type": "string", "enum": ["", "featured", "newest", "price-low-high", "price-high-low"]},
    "featured": {"type": "boolean"},
    "where": {"type": "string", "description": "Boolean expression over product fields, e.g. price < 100.0 && in_stock"}
  }
}`
	getProductSchema = `{
  "type": "object",
  "properties": {"ref": {"type": "string", "description": "Product slug or numeric id"}},
  "required": ["ref"]
}`
	addToCartSchema = `{
  "type": "object",
  "properties": {
    "productId": {"type": "integer"},
    "quantity": {"type": "integer", "description": "Clamped to [1, stock]; defaults to 1"}
  },
  "required": ["productId"]
}`
	updateCartItemSchema = `{
  "type": "object",
  "properties": {
    "lineId": {"type": "integer"},
    "quantity": {"type": "integer", "maximum": 9999, "description": "Zero or less removes the line"}
  },
  "required": ["lineId", "quantity"]
}`
	removeCartItemSchema = `{
  "type": "object",
  "properties": {"lineId": {"type": "integer"}},
  "required": ["lineId"]
}`
	shippingSchema = `{
  "type": "object",
  "properties": {"shipping": {"type": "string", "enum": ["", "standard", "express"]}}
}`
	listOrdersSchema = `{
  "type": "object",
  "properties": {"limit": {"type": "integer", "minimum": 1, "description": "Defaults to 10"}}
}`
)

// RegisterTools adds the storefront tools backed by svc to s.
func RegisterTools(s *Server, svc Services) {
	if svc.Catalog != nil {
		registerCatalogTools(s, svc.Catalog)
	}
	if svc.Carts != nil {
		registerCartTools(s, svc.Carts, svc.Catalog)
	}
	if svc.Checkout != nil {
		registerCheckoutTools(s, svc.Checkout)
	}
	if svc.Accounts != nil {
		s.AddTool(Tool{
			Name:        "whoami",
			Description: "Show the signed-in customer, if any.",
		}, Typed(func(ctx context.Context, _ struct{}) (any, error) {
			user, ok := svc.Accounts.Current()
			if !ok {
				return sessionOutput{}, nil
			}
			return sessionOutput{Authenticated: true, User: &user}, nil
		}))
	}
}

func registerCatalogTools(s *Server, catalogs *service.CatalogService) {
	s.AddTool(Tool{
		Name:        "list_products",
		Description: "List catalog products with optional category, price band, sort and expression filters.",
		InputSchema: json.RawMessage(listProductsSchema),
	}, Typed(func(ctx context.Context, in listProductsArgs) (any, error) {
		products, err := catalogs.List(ctx, service.ProductQuery{
			Category:     in.Category,
			Price:        in.Price,
			Sort:         in.Sort,
			FeaturedOnly: in.Featured,
			Where:        in.Where,
		})
		if err != nil {
			return nil, err
		}
		return productsOutput{Products: products}, nil
	}))

	s.AddTool(Tool{
		Name:        "get_product",
		Description: "Get one product by slug or id.",
		InputSchema: json.RawMessage(getProductSchema),
	}, Typed(func(ctx context.Context, in getProductArgs) (any, error) {
		if in.Ref == "" {
			return nil, fmt.Errorf("%w: ref is required", ErrInvalidArguments)
		}
		return catalogs.Product(ctx, in.Ref)
	}))

	s.AddTool(Tool{
		Name:        "list_categories",
		Description: "List product categories.",
	}, Typed(func(ctx context.Context, _ struct{}) (any, error) {
		cats, err := catalogs.Categories(ctx)
		if err != nil {
			return nil, err
		}
		return categoriesOutput{Categories: cats}, nil
	}))
}

func registerCartTools(s *Server, carts *service.CartService, catalogs *service.CatalogService) {
	s.AddTool(Tool{
		Name:        "view_cart",
		Description: "Show the cart lines, item count and subtotal.",
	}, Typed(func(ctx context.Context, _ struct{}) (any, error) {
		return carts.View(), nil
	}))

	if catalogs != nil {
		s.AddTool(Tool{
			Name:        "add_to_cart",
			Description: "Add a product to the cart. Adding a product already in the cart increases its quantity.",
			InputSchema: json.RawMessage(addToCartSchema),
		}, Typed(func(ctx context.Context, in addToCartArgs) (any, error) {
			p, err := catalogs.ProductByID(ctx, in.ProductID)
			if err != nil {
				return nil, err
			}
			qty := p.ClampQuantity(in.Quantity)
			if qty == 0 {
				return nil, fmt.Errorf("%w: %s", ErrOutOfStock, p.Name)
			}
			line, err := carts.AddProduct(ctx, *p, qty)
			if err != nil {
				return nil, err
			}
			LoggerFromContext(ctx).Info("added to cart", "product_id", p.ID, "quantity", qty)
			return addToCartOutput{Item: line, Cart: carts.View()}, nil
		}))
	}

	s.AddTool(Tool{
		Name:        "update_cart_item",
		Description: "Set the quantity of a cart line. Zero or less removes it.",
		InputSchema: json.RawMessage(updateCartItemSchema),
	}, Typed(func(ctx context.Context, in updateCartItemArgs) (any, error) {
		if err := requireLine(carts, in.LineID); err != nil {
			return nil, err
		}
		if in.Quantity > cart.MaxQuantity {
			return nil, cart.ErrQuantityLimit
		}
		if err := carts.UpdateQuantity(ctx, in.LineID, in.Quantity); err != nil {
			return nil, err
		}
		return carts.View(), nil
	}))

	s.AddTool(Tool{
		Name:        "remove_cart_item",
		Description: "Remove a cart line.",
		InputSchema: json.RawMessage(removeCartItemSchema),
	}, Typed(func(ctx context.Context, in removeCartItemArgs) (any, error) {
		if err := requireLine(carts, in.LineID); err != nil {
			return nil, err
		}
		if err := carts.RemoveItem(ctx, in.LineID); err != nil {
			return nil, err
		}
		return carts.View(), nil
	}))

	s.AddTool(Tool{
		Name:        "clear_cart",
		Description: "Remove every line from the cart.",
	}, Typed(func(ctx context.Context, _ struct{}) (any, error) {
		if err := carts.Clear(ctx); err != nil {
			return nil, err
		}
		return carts.View(), nil
	}))
}

func registerCheckoutTools(s *Server, checkouts *service.CheckoutService) {
	s.AddTool(Tool{
		Name:        "checkout_quote",
		Description: "Price the cart: subtotal, shipping, tax and total.",
		InputSchema: json.RawMessage(shippingSchema),
	}, Typed(func(ctx context.Context, in shippingArgs) (any, error) {
		method, err := checkout.ParseShippingMethod(in.Shipping)
		if err != nil {
			return nil, err
		}
		return checkouts.Quote(ctx, method), nil
	}))

	s.AddTool(Tool{
		Name:        "place_order",
		Description: "Place a demo order for the cart. Nothing is charged and the cart is kept.",
		InputSchema: json.RawMessage(shippingSchema),
	}, Typed(func(ctx context.Context, in shippingArgs) (any, error) {
		method, err := checkout.ParseShippingMethod(in.Shipping)
		if err != nil {
			return nil, err
		}
		order, err := checkouts.PlaceOrder(ctx, method)
		if err != nil {
			return nil, err
		}
		LoggerFromContext(ctx).Info("order placed", "order_id", order.ID)
		return order, nil
	}))

	s.AddTool(Tool{
		Name:        "list_orders",
		Description: "List recently placed orders, newest first.",
		InputSchema: json.RawMessage(listOrdersSchema),
	}, Typed(func(_ context.Context, in listOrdersArgs) (any, error) {
		limit := in.Limit
		if limit <= 0 {
			limit = 10
		}
		orders := checkouts.RecentOrders(limit)
		if orders == nil {
			orders = []service.Order{}
		}
		return ordersOutput{Orders: orders}, nil
	}))
}

var errLineNotFound = errors.New("cart line not found")

func requireLine(carts *service.CartService, lineID int64) error {
	if _, ok := carts.Snapshot().Find(lineID); !ok {
		return fmt.Errorf("%w: %d", errLineNotFound, lineID)
	}
	return nil
}
