// Package api exposes the notification operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	apperrors "insurance-notifications/internal/common/errors"
	commonhttp "insurance-notifications/internal/common/http"
	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/common/validation"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/notification/dispatch"
	"insurance-notifications/internal/notification/resolver"
	"insurance-notifications/internal/store"
	"insurance-notifications/pkg/registry"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// NotificationService is the dispatch surface the API drives.
type NotificationService interface {
	SendWelcome(ctx context.Context, user *models.User) bool
	SendPolicyCreated(ctx context.Context, policy *models.Policy) bool
	SendPaymentConfirmation(ctx context.Context, payment *models.Payment) bool
	SendBulk(ctx context.Context, userIDs []int64, kind string, data map[string]interface{}) models.BulkResult
	History(ctx context.Context, userID int64, page int) (*dispatch.History, error)
}

type HandlerDependencies struct {
	Service   NotificationService
	Lookup    store.Lookup
	Catalogue *registry.Catalogue
	Validator *Validator
	Logger    logger.Logger
}

type Handler struct {
	service   NotificationService
	lookup    store.Lookup
	resolver  *resolver.Resolver
	catalogue *registry.Catalogue
	validator *Validator
	logger    logger.Logger
}

func NewHandler(deps HandlerDependencies) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		service:   deps.Service,
		lookup:    deps.Lookup,
		resolver:  resolver.New(deps.Lookup),
		catalogue: deps.Catalogue,
		validator: deps.Validator,
		logger:    log,
	}
}

// Register mounts the notification routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/notifications/welcome", h.SendWelcome)
		r.Post("/notifications/policy-created", h.SendPolicyCreated)
		r.Post("/notifications/payment-confirmation", h.SendPaymentConfirmation)
		r.Post("/notifications/bulk", h.SendBulk)
		r.Get("/users/{userId}/notifications", h.History)
	})
}

func (h *Handler) SendWelcome(w http.ResponseWriter, r *http.Request) {
	var req WelcomeRequest
	if !h.bind(w, r, &req) {
		return
	}

	user, err := h.lookup.FindUser(r.Context(), req.UserID)
	if !h.found(w, "User", user != nil, err) {
		return
	}

	ok := h.service.SendWelcome(r.Context(), user)
	respond(w, ok, "Welcome notification sent successfully", "Failed to send welcome notification",
		WelcomeData{UserID: user.ID, Email: user.Email})
}

func (h *Handler) SendPolicyCreated(w http.ResponseWriter, r *http.Request) {
	var req PolicyCreatedRequest
	if !h.bind(w, r, &req) {
		return
	}

	policy, err := h.lookup.FindPolicy(r.Context(), req.PolicyID)
	if !h.found(w, "Policy", policy != nil, err) {
		return
	}

	ok := h.service.SendPolicyCreated(r.Context(), policy)

	data := PolicyCreatedData{PolicyID: policy.ID, CustomerID: policy.CustomerID}
	if recipient, err := h.resolver.ResolvePolicy(r.Context(), policy); err == nil && recipient != nil {
		data.UserEmail = &recipient.User.Email
	}
	respond(w, ok, "Policy notification sent successfully", "Failed to send policy notification", data)
}

func (h *Handler) SendPaymentConfirmation(w http.ResponseWriter, r *http.Request) {
	var req PaymentConfirmationRequest
	if !h.bind(w, r, &req) {
		return
	}

	payment, err := h.lookup.FindPayment(r.Context(), req.PaymentID)
	if !h.found(w, "Payment", payment != nil, err) {
		return
	}

	ok := h.service.SendPaymentConfirmation(r.Context(), payment)

	amount := decimal.Zero
	if payment.Amount.Valid {
		amount = payment.Amount.Decimal
	}
	respond(w, ok, "Payment confirmation sent successfully", "Failed to send payment confirmation",
		PaymentConfirmationData{PaymentID: payment.ID, Amount: amount})
}

func (h *Handler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if !h.bind(w, r, &req) {
		return
	}

	kindSpec, ok := h.catalogue.Kind(req.NotificationType)
	if !ok || !kindSpec.Bulk {
		h.invalid(w, ValidationErrors{"notification_type": "The selected notification_type is invalid."})
		return
	}
	if req.Data != nil {
		result, err := validation.Validate(kindSpec.DataSchema, req.Data)
		if err != nil {
			h.serverError(w, "Failed to validate notification data", err)
			return
		}
		if !result.Valid {
			h.invalid(w, ValidationErrors{"data": result.GetErrorMessages()[0]})
			return
		}
	}

	result := h.service.SendBulk(r.Context(), req.UserIDs, req.NotificationType, req.Data)

	commonhttp.WriteJSON(w, http.StatusOK, Response{
		Success: result.Sent > 0,
		Message: fmt.Sprintf("Bulk notification completed: %d sent, %d failed", result.Sent, result.Failed),
		Data:    BulkData(result),
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID < 1 {
		notFound(w, "User")
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	history, err := h.service.History(r.Context(), userID, page)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound) {
			notFound(w, "User")
			return
		}
		h.serverError(w, "Failed to retrieve notification history", err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Notification history retrieved successfully",
		Data:    HistoryData(*history),
	})
}

// bind decodes and validates the request body, writing the error reply
// itself when it returns false.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		commonhttp.WriteJSON(w, http.StatusBadRequest, Response{Success: false, Message: "Invalid request body"})
		return false
	}
	if err := h.validator.Validate(dst); err != nil {
		if ve, ok := err.(ValidationErrors); ok {
			h.invalid(w, ve)
			return false
		}
		h.serverError(w, "Failed to validate request", err)
		return false
	}
	return true
}

func (h *Handler) found(w http.ResponseWriter, resource string, exists bool, err error) bool {
	if err != nil {
		h.serverError(w, fmt.Sprintf("Failed to load %s", resource), err)
		return false
	}
	if !exists {
		notFound(w, resource)
		return false
	}
	return true
}

func (h *Handler) invalid(w http.ResponseWriter, errs ValidationErrors) {
	commonhttp.WriteJSON(w, http.StatusUnprocessableEntity, Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, map[string]interface{}{"error": err.Error()})
	commonhttp.WriteJSON(w, http.StatusInternalServerError, Response{Success: false, Message: message})
}

func notFound(w http.ResponseWriter, resource string) {
	commonhttp.WriteJSON(w, http.StatusNotFound, Response{Success: false, Message: resource + " not found"})
}

func respond(w http.ResponseWriter, ok bool, successMsg, failureMsg string, data interface{}) {
	status, message := http.StatusOK, successMsg
	if !ok {
		status, message = http.StatusInternalServerError, failureMsg
	}
	commonhttp.WriteJSON(w, status, Response{Success: ok, Message: message, Data: data})
}
