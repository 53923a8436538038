package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
	"storefront-service/internal/logger"
	"storefront-service/internal/store"
)

// Stores groups the storage dependencies of the HTTP handlers. A single
// *store.PostgresStore satisfies all of them.
type Stores struct {
	Users      store.UserStorer
	Categories store.CategoryStorer
	Products   store.ProductStorer
	Carts      store.CartStorer
	Orders     store.OrderStorer
	Reviews    store.ReviewStorer
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	userStore     store.UserStorer
	categoryStore store.CategoryStorer
	productStore  store.ProductStorer
	cartStore     store.CartStorer
	orderStore    store.OrderStorer
	reviewStore   store.ReviewStorer
	authn         *auth.Authenticator
	loginLimiter  *RateLimiter
	logger        *zap.Logger
	validate      *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies. A nil
// loginLimiter disables login throttling.
func NewHTTPHandler(stores Stores, authn *auth.Authenticator, loginLimiter *RateLimiter, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{
		userStore:     stores.Users,
		categoryStore: stores.Categories,
		productStore:  stores.Products,
		cartStore:     stores.Carts,
		orderStore:    stores.Orders,
		reviewStore:   stores.Reviews,
		authn:         authn,
		loginLimiter:  loginLimiter,
		logger:        log,
		validate:      validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by soft deletes.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			zap.L().Error("failed to encode JSON response", zap.Error(err))
		}
	}
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithDomainError writes err with the status of its kind. Errors
// without a kind are logged and reported as "Failed to <action>".
func (h *HTTPHandler) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error, action string) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		logger.FromContext(r.Context(), h.logger).Error("store operation failed",
			zap.String("action", action), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
		return
	}
	respondWithError(w, statusForKind(kind), err.Error())
}

func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// pathID parses a positive int64 URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, param, label string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid "+label+" ID format")
		return 0, false
	}
	return id, true
}

// pageParams reads page and page_size, applying defaults and rejecting
// values outside 1..maxSize.
// maxPage keeps (page-1)*pageSize within an int32 OFFSET.
func maxPage(maxSize int) int {
	return math.MaxInt32 / maxSize
}

func pageParams(w http.ResponseWriter, r *http.Request, defaultSize, maxSize int) (page, size int, ok bool) {
	page, size = 1, defaultSize
	q := r.URL.Query()
	if s := q.Get("page"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 || p > maxPage(maxSize) {
			respondWithError(w, http.StatusBadRequest, "page must be between 1 and "+strconv.Itoa(maxPage(maxSize)))
			return 0, 0, false
		}
		page = p
	}
	if s := q.Get("page_size"); s != "" {
		ps, err := strconv.Atoi(s)
		if err != nil || ps < 1 || ps > maxSize {
			respondWithError(w, http.StatusBadRequest, "page_size must be between 1 and "+strconv.Itoa(maxSize))
			return 0, 0, false
		}
		size = ps
	}
	return page, size, true
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.RegisterUser)
		r.With(h.limitLogin).Post("/token", h.Login)
		r.Post("/refresh-token", h.RefreshToken)
		r.Post("/access-token", h.AccessToken)
		r.With(h.Authenticate).Get("/me", h.CurrentUser)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{categoryID}", h.GetCategoryByID)
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate, h.RequireRoles(domain.RoleAdmin))
			r.Post("/", h.CreateCategory)
			r.Put("/{categoryID}", h.UpdateCategory)
			r.Delete("/{categoryID}", h.DeleteCategory)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/category/{categoryID}", h.ListProductsByCategory)
		r.Get("/{productID}", h.GetProductByID)
		r.Get("/{productID}/reviews/", h.ListProductReviews)
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate, h.RequireRoles(domain.RoleSeller))
			r.Post("/", h.CreateProduct)
			r.Put("/{productID}", h.UpdateProduct)
			r.Delete("/{productID}", h.DeleteProduct)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(h.Authenticate, h.RequireRoles(domain.RoleBuyer, domain.RoleSeller))
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Put("/items/{productID}", h.UpdateCartItem)
		r.Delete("/items/{productID}", h.RemoveCartItem)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.Authenticate, h.RequireRoles(domain.RoleBuyer))
		r.Get("/", h.ListOrders)
		r.Post("/checkout", h.Checkout)
		r.Get("/{orderID}", h.GetOrder)
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", h.ListReviews)
		r.With(h.Authenticate, h.RequireRoles(domain.RoleBuyer)).Post("/", h.CreateReview)
		r.With(h.Authenticate, h.RequireRoles(domain.RoleBuyer, domain.RoleAdmin)).Delete("/{reviewID}", h.DeleteReview)
	})
}
