// Package http provides the storefront JSON API.
//
// # Usage
//
//	api := http.NewAPIHandler(
//	    http.WithCatalogService(catalogs),
//	    http.WithCartService(carts),
//	    http.WithCheckoutService(checkouts),
//	    http.WithAccountService(accounts),
//	    http.WithAPILogger(logger),
//	)
//	srv := http.NewServer(api,
//	    http.WithAddr("127.0.0.1:8080"),
//	    http.WithRegistry(reg),
//	    http.WithHealthChecker(http.NewHealthChecker(store, catalog, version)),
//	)
//	err := srv.Start(ctx)
//
// # Endpoints
//
//	GET    /api/products            - list (category, price, sort, featured, where)
//	GET    /api/products/featured   - featured products
//	GET    /api/products/{slug}     - product by slug or numeric id
//	GET    /api/categories          - all categories
//	GET    /api/cart                - cart view, ETag from the cart version
//	POST   /api/cart/items          - add {productId, quantity}
//	PUT    /api/cart/items/{id}     - set quantity, <= 0 removes
//	DELETE /api/cart/items/{id}     - remove line
//	DELETE /api/cart                - clear
//	GET    /api/checkout/quote      - totals for ?shipping=standard|express
//	POST   /api/checkout            - place a demo order {shipping}
//	POST   /api/auth/signup         - {name, email, password}
//	POST   /api/auth/signin         - {email, password}
//	POST   /api/auth/signout
//	GET    /api/auth/me
//	GET    /health
//	GET    /metrics
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. RequestIDMiddleware - Extracts or generates X-Request-ID and enriches the logger
//  2. MetricsMiddleware - Records duration and status per route pattern
//  3. DNSRebindingProtection - Validates the Origin header
//  4. ServeMux - Routes to the API handler
package http
