package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/rl1809/cart-service/internal/core/domain"
	"github.com/rl1809/cart-service/internal/core/service"
)

const (
	UserIDHeader = "X-User-Id"

	maxBodySize = 1 << 16
)

type HTTPHandler struct {
	carts    *service.CartService
	health   *HealthProber
	validate *validator.Validate
	log      zerolog.Logger
}

type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewHTTPHandler builds the REST handler. health may be nil, in which case
// /health only reports liveness.
func NewHTTPHandler(carts *service.CartService, health *HealthProber, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		carts:    carts,
		health:   health,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// Register mounts the cart routes on r. Routes under /api/v1/carts take the
// user from the X-User-Id header; the admin routes take it from the path.
func (h *HTTPHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1/carts").Subrouter()

	admin := api.PathPrefix("/admin/{userId}").Subrouter()
	admin.HandleFunc("", h.GetCart).Methods(http.MethodGet)
	admin.HandleFunc("", h.ClearCart).Methods(http.MethodDelete)
	admin.HandleFunc("/items/{productId}", h.UpdateItem).Methods(http.MethodPut)
	admin.HandleFunc("/items/{productId}", h.RemoveItem).Methods(http.MethodDelete)

	api.HandleFunc("", h.GetCart).Methods(http.MethodGet)
	api.HandleFunc("", h.ClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/items", h.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/items/{productId}", h.UpdateItem).Methods(http.MethodPut)
	api.HandleFunc("/items/{productId}", h.RemoveItem).Methods(http.MethodDelete)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "cart retrieved", Data: cart})
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Message: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: validationMessage(err)})
		return
	}

	cart, err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "item added to cart", Data: cart})
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "quantity must be an integer"})
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), userID, mux.Vars(r)["productId"], quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "cart item updated", Data: cart})
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), userID, mux.Vars(r)["productId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "item removed from cart", Data: cart})
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "cart cleared"})
}

type HealthResponse struct {
	Status       string          `json:"status"`
	Dependencies map[string]bool `json:"dependencies,omitempty"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	serving, deps := h.health.Status()
	if !serving {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Dependencies: deps})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Dependencies: deps})
}

// userID reads the path variable on admin routes and the header elsewhere.
func (h *HTTPHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if id, ok := mux.Vars(r)["userId"]; ok {
		return strings.TrimSpace(id), true
	}
	id := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, Response{Message: "missing " + UserIDHeader + " header"})
		return "", false
	}
	if len(id) > domain.MaxIDLength {
		writeJSON(w, http.StatusBadRequest, Response{Message: service.ErrUserIDTooLong.Error()})
		return "", false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch service.ErrorKind(err) {
	case service.KindInvalid:
		writeJSON(w, http.StatusBadRequest, Response{Message: err.Error()})
	case service.KindNotFound:
		writeJSON(w, http.StatusNotFound, Response{Message: err.Error()})
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", RequestID(r.Context())).Msg("cart request failed")
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal error"})
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	switch fe := verrs[0]; fe.Field() {
	case "Quantity":
		return "quantity must be greater than 0"
	case "ProductID":
		if fe.Tag() == "required" {
			return "productId is required"
		}
		return "productId is too long"
	default:
		return "invalid " + strings.ToLower(fe.Field())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
