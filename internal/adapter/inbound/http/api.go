package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/lumenshop/storefront/internal/domain/account"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/catalog"
	"github.com/lumenshop/storefront/internal/domain/checkout"
	"github.com/lumenshop/storefront/internal/domain/ratelimit"
	"github.com/lumenshop/storefront/internal/service"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// APIHandler serves the storefront JSON API.
type APIHandler struct {
	catalogs  *service.CatalogService
	carts     *service.CartService
	checkouts *service.CheckoutService
	accounts  *service.AccountService
	logger    *slog.Logger

	limiter   ratelimit.Limiter
	authLimit ratelimit.Limit
}

// APIOption configures an APIHandler dependency.
type APIOption func(*APIHandler)

// WithCatalogService enables the product and category routes.
func WithCatalogService(s *service.CatalogService) APIOption {
	return func(h *APIHandler) { h.catalogs = s }
}

// WithCartService enables the cart routes.
func WithCartService(s *service.CartService) APIOption {
	return func(h *APIHandler) { h.carts = s }
}

// WithCheckoutService enables the checkout routes.
func WithCheckoutService(s *service.CheckoutService) APIOption {
	return func(h *APIHandler) { h.checkouts = s }
}

// WithAccountService enables the auth routes.
func WithAccountService(s *service.AccountService) APIOption {
	return func(h *APIHandler) { h.accounts = s }
}

// WithAuthRateLimit throttles sign-in and sign-up attempts per client IP.
// A disabled limit leaves the auth routes unthrottled.
func WithAuthRateLimit(l ratelimit.Limiter, limit ratelimit.Limit) APIOption {
	return func(h *APIHandler) {
		h.limiter = l
		h.authLimit = limit
	}
}

// WithAPILogger sets the fallback logger used outside a request context.
func WithAPILogger(l *slog.Logger) APIOption {
	return func(h *APIHandler) { h.logger = l }
}

// NewAPIHandler creates an APIHandler. Route groups whose service is not
// configured are not registered.
func NewAPIHandler(opts ...APIOption) *APIHandler {
	h := &APIHandler{logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the API routes to mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	if h.catalogs != nil {
		mux.HandleFunc("GET /api/products", h.handleListProducts)
		mux.HandleFunc("GET /api/products/featured", h.handleFeaturedProducts)
		mux.HandleFunc("GET /api/products/{slug}", h.handleGetProduct)
		mux.HandleFunc("GET /api/categories", h.handleListCategories)
	}
	if h.carts != nil {
		mux.HandleFunc("GET /api/cart", h.handleGetCart)
		mux.HandleFunc("DELETE /api/cart", h.handleClearCart)
		mux.HandleFunc("PUT /api/cart/items/{id}", h.handleUpdateCartItem)
		mux.HandleFunc("DELETE /api/cart/items/{id}", h.handleRemoveCartItem)
		if h.catalogs != nil {
			mux.HandleFunc("POST /api/cart/items", h.handleAddCartItem)
		}
	}
	if h.checkouts != nil {
		mux.HandleFunc("GET /api/checkout/quote", h.handleQuote)
		mux.HandleFunc("POST /api/checkout", h.handlePlaceOrder)
		mux.HandleFunc("GET /api/orders", h.handleListOrders)
	}
	if h.accounts != nil {
		mux.HandleFunc("POST /api/auth/signup", h.handleSignUp)
		mux.HandleFunc("POST /api/auth/signin", h.handleSignIn)
		mux.HandleFunc("POST /api/auth/signout", h.handleSignOut)
		mux.HandleFunc("GET /api/auth/me", h.handleMe)
	}
}

// Handler returns a mux serving only the API routes.
func (h *APIHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

// --- Catalog ---

func (h *APIHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	featured, _ := strconv.ParseBool(q.Get("featured"))

	products, err := h.catalogs.List(r.Context(), service.ProductQuery{
		Category:     q.Get("category"),
		Price:        q.Get("price"),
		Sort:         q.Get("sort"),
		FeaturedOnly: featured,
		Where:        q.Get("where"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, r, "failed to list products", err)
		return
	}
	h.respondJSON(w, http.StatusOK, products)
}

func (h *APIHandler) handleFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogs.Featured(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to list featured products", err)
		return
	}
	h.respondJSON(w, http.StatusOK, products)
}

func (h *APIHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalogs.Product(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, "failed to get product", err)
		return
	}
	h.respondJSON(w, http.StatusOK, p)
}

func (h *APIHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalogs.Categories(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to list categories", err)
		return
	}
	h.respondJSON(w, http.StatusOK, cats)
}

// --- Cart ---

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type addItemResponse struct {
	Item cart.LineItem    `json:"item"`
	Cart service.CartView `json:"cart"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *APIHandler) respondCart(w http.ResponseWriter, status int) {
	view := h.carts.View()
	w.Header().Set("ETag", strconv.Quote(view.Version))
	h.respondJSON(w, status, view)
}

func (h *APIHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view := h.carts.View()
	etag := strconv.Quote(view.Version)
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	h.respondJSON(w, http.StatusOK, view)
}

func (h *APIHandler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := h.catalogs.ProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, "failed to get product", err)
		return
	}

	qty := p.ClampQuantity(req.Quantity)
	if qty == 0 {
		h.respondError(w, http.StatusConflict, "product is out of stock")
		return
	}

	line, err := h.carts.AddProduct(ctx, *p, qty)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, cart.ErrQuantityLimit):
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.internalError(w, r, "failed to add cart item", err)
		return
	}

	view := h.carts.View()
	w.Header().Set("ETag", strconv.Quote(view.Version))
	h.respondJSON(w, http.StatusCreated, addItemResponse{Item: line, Cart: view})
}

func (h *APIHandler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lineID(w, r)
	if !ok {
		return
	}
	if _, found := h.carts.Snapshot().Find(id); !found {
		h.respondError(w, http.StatusNotFound, "cart line not found")
		return
	}

	var req updateItemRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity > cart.MaxQuantity {
		h.respondError(w, http.StatusBadRequest, cart.ErrQuantityLimit.Error())
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		h.internalError(w, r, "failed to update cart item", err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

func (h *APIHandler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lineID(w, r)
	if !ok {
		return
	}
	if err := h.carts.RemoveItem(r.Context(), id); err != nil {
		h.internalError(w, r, "failed to remove cart item", err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

func (h *APIHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context()); err != nil {
		h.internalError(w, r, "failed to clear cart", err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

// lineID parses the {id} path value.
// It writes the error response itself when ok is false.
func (h *APIHandler) lineID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid line id")
		return 0, false
	}
	return id, true
}

// --- Checkout ---

type placeOrderRequest struct {
	Shipping string `json:"shipping"`
}

func (h *APIHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	method, err := checkout.ParseShippingMethod(r.URL.Query().Get("shipping"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, h.checkouts.Quote(r.Context(), method))
}

func (h *APIHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if r.ContentLength != 0 {
		if err := h.readJSON(w, r, &req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	method, err := checkout.ParseShippingMethod(req.Shipping)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.checkouts.PlaceOrder(r.Context(), method)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			h.respondError(w, http.StatusUnprocessableEntity, "cart is empty")
			return
		}
		h.internalError(w, r, "failed to place order", err)
		return
	}
	LoggerFromContext(r.Context()).Info("order placed", "order_id", order.ID, "total", order.Display.Total)
	h.respondJSON(w, http.StatusCreated, order)
}

// maxOrderHistory caps the limit parameter of GET /api/orders.
const maxOrderHistory = 100

func (h *APIHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxOrderHistory)
	}
	orders := h.checkouts.RecentOrders(limit)
	if orders == nil {
		orders = []service.Order{}
	}
	h.respondJSON(w, http.StatusOK, orders)
}

// --- Auth ---

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *account.User `json:"user"`
}

func (h *APIHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuth(w, r, ratelimit.ScopeSignUp) {
		return
	}
	var req account.SignUpInput
	if err := h.readJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.accounts.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidInput):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, account.ErrAccountExists):
			h.respondError(w, http.StatusConflict, err.Error())
		default:
			h.internalError(w, r, "failed to sign up", err)
		}
		return
	}
	h.respondJSON(w, http.StatusCreated, sessionResponse{Authenticated: true, User: &user})
}

func (h *APIHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuth(w, r, ratelimit.ScopeSignIn) {
		return
	}
	var req signInRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			h.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.internalError(w, r, "failed to sign in", err)
		return
	}
	h.respondJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: &user})
}

// allowAuth consumes one attempt for the caller. It answers 429 and returns
// false once the caller is over the limit.
func (h *APIHandler) allowAuth(w http.ResponseWriter, r *http.Request, scope ratelimit.Scope) bool {
	if h.limiter == nil || !h.authLimit.Enabled() {
		return true
	}
	client := clientIP(r)
	res, err := h.limiter.Allow(r.Context(), ratelimit.Key(scope, client), h.authLimit)
	if err != nil {
		// Fail open.
		LoggerFromContext(r.Context()).Warn("rate limiter failed", "scope", scope, "error", err)
		return true
	}
	if res.Allowed {
		return true
	}
	LoggerFromContext(r.Context()).Info("auth attempt throttled", "scope", scope, "client", client)
	secs := int(math.Ceil(res.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	h.respondError(w, http.StatusTooManyRequests, "too many attempts, try again later")
	return false
}

// clientIP returns the remote host of r without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *APIHandler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SignOut(r.Context()); err != nil {
		h.internalError(w, r, "failed to sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) handleMe(w http.ResponseWriter, _ *http.Request) {
	user, ok := h.accounts.Current()
	if !ok {
		h.respondJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	h.respondJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: &user})
}

// --- JSON helper methods ---

// respondJSON writes a JSON response with the given status code and data.
func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response with the given status code and message.
func (h *APIHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// internalError logs err with the request logger and answers 500.
func (h *APIHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	LoggerFromContext(r.Context()).Error(msg, "error", err)
	h.respondError(w, http.StatusInternalServerError, "internal error")
}

// readJSON decodes a size-limited request body into v.
func (h *APIHandler) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
