package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

// HTTPHandler exposes the catalog, cart and sign-up operations. Routing and
// validation live here; invariants live in the services.
type HTTPHandler struct {
	carts   *service.CartService
	catalog *service.CatalogService
	users   *service.UserService
	log     *logrus.Logger
}

func NewHTTPHandler(carts *service.CartService, catalog *service.CatalogService, users *service.UserService, log *logrus.Logger) *HTTPHandler {
	return &HTTPHandler{carts: carts, catalog: catalog, users: users, log: log}
}

// Routes builds the router. Cart routes demand a provisioned user; sign-up
// only needs a verified token since the user record does not exist yet.
func (h *HTTPHandler) Routes(auth *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/products", h.CreateProducts).Methods(http.MethodPost)

	signup := r.PathPrefix("/user").Subrouter()
	signup.Use(auth.RequireAuth)
	signup.HandleFunc("/sign_up", h.SignUp).Methods(http.MethodPost)

	cart := r.PathPrefix("/cart").Subrouter()
	cart.Use(auth.RequireUser)
	cart.HandleFunc("/all", h.GetCart).Methods(http.MethodGet)
	cart.HandleFunc("/add/{productId}", h.AddToCart).Methods(http.MethodPost)
	cart.HandleFunc("/remove/{productId}", h.RemoveFromCart).Methods(http.MethodPut)

	return r
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	productID := mux.Vars(r)["productId"]

	item, err := h.carts.AddToCart(r.Context(), ident.UserID, productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	productID := mux.Vars(r)["productId"]

	item, err := h.carts.RemoveFromCart(r.Context(), ident.UserID, productID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())

	items, err := h.carts.ListCart(r.Context(), ident.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) CreateProducts(w http.ResponseWriter, r *http.Request) {
	var batch []domain.Product
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	created, err := h.catalog.CreateProducts(r.Context(), batch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())

	var req service.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.users.SignUp(r.Context(), ident, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if status := errorStatus(err); status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeError(w, err)
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrNotInCart):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfStock):
		return http.StatusGone
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
