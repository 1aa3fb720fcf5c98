// Package handlers provides API endpoint handling functionality.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	handlersErrors "github.com/danilovkiri/dk-go-donations/internal/api/rest/errors"
	"github.com/danilovkiri/dk-go-donations/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/service/initiator"
	"github.com/danilovkiri/dk-go-donations/internal/service/processor"
	"github.com/danilovkiri/dk-go-donations/internal/service/reconciler"
	"github.com/danilovkiri/dk-go-donations/internal/service/reporter"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/rs/zerolog"
)

const (
	requestTimeout = 5 * time.Second
	// maxBodySize caps request bodies after decompression.
	maxBodySize = 1 << 20
)

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	users        processor.Processor
	initiator    initiator.Initiator
	reconciler   reconciler.Reconciler
	reporter     reporter.Reporter
	orderTimeout time.Duration
	log          *zerolog.Logger
}

// InitHandlers initializes a handler object. The order timeout bounds create-order requests,
// which wait on the payment gateway.
func InitHandlers(users processor.Processor, ini initiator.Initiator, rec reconciler.Reconciler, rep reporter.Reporter, orderTimeout time.Duration, log *zerolog.Logger) (*Handler, error) {
	if users == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	if ini == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil initiator was passed to handlers initializer"}
	}
	if rec == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil reconciler was passed to handlers initializer"}
	}
	if rep == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil reporter was passed to handlers initializer"}
	}
	if orderTimeout < requestTimeout {
		orderTimeout = requestTimeout
	}
	return &Handler{
		users:        users,
		initiator:    ini,
		reconciler:   rec,
		reporter:     rep,
		orderTimeout: orderTimeout,
		log:          log,
	}, nil
}

// readJSON decodes the request body into v and answers 400 itself when that is impossible.
// An empty body is accepted when allowEmpty is set.
func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, op string, v interface{}, allowEmpty bool) bool {
	b, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.log.Error().Err(err).Msg(op + " failed")
		if len(b) >= maxBodySize {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if len(b) == 0 && allowEmpty {
		return true
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "Invalid Content-Type", http.StatusBadRequest)
		return false
	}
	err = json.Unmarshal(b, v)
	if err != nil {
		h.log.Error().Err(err).Msg(op + " failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, op string, status int, v interface{}) {
	resBody, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg(op + " failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(resBody)
	if err != nil {
		h.log.Error().Err(err).Msg(op + " failed")
	}
}

// writeError maps service and storage errors to response codes.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	h.log.Error().Err(err).Msg(op + " failed")
	var (
		contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
		alreadyExistsError          *storageErrors.AlreadyExistsError
		invalidAmount               *serviceErrors.InvalidAmount
		unknownUser                 *serviceErrors.UnknownUser
		invalidCredentials          *serviceErrors.InvalidCredentials
		invalidSignature            *serviceErrors.InvalidSignature
		orderNotFound               *serviceErrors.OrderNotFound
		foreignOrder                *serviceErrors.ForeignOrder
		gatewayUnavailable          *serviceErrors.GatewayUnavailable
		persistenceFailure          *serviceErrors.PersistenceFailure
	)
	switch {
	// both wrap lower level errors that must not leak into the status code
	case errors.As(err, &gatewayUnavailable), errors.As(err, &persistenceFailure):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	case errors.As(err, &contextTimeoutExceededError), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	case errors.As(err, &invalidSignature):
		http.Error(w, "Invalid Transaction", http.StatusBadRequest)
	case errors.As(err, &invalidAmount), errors.As(err, &unknownUser), errors.As(err, &invalidCredentials):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &orderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &foreignOrder):
		http.Error(w, "Order belongs to another user", http.StatusForbidden)
	case errors.As(err, &alreadyExistsError):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// actingUser resolves the user a request is about: the token user when none is given,
// otherwise the given one, which only admins may choose freely.
func actingUser(r *http.Request, requested string) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	if requested == "" || requested == claims.UserID {
		return claims.UserID, true
	}
	return requested, claims.Role == modelstorage.RoleAdmin
}

func requester(r *http.Request) modeldto.Requester {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return modeldto.Requester{}
	}
	return modeldto.Requester{UserID: claims.UserID, Admin: claims.Role == modelstorage.RoleAdmin}
}

// HandlePing reports liveness.
func (h *Handler) HandlePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	}
}

// HandleRegister processes user register requests.
func (h *Handler) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var user modeldto.User
		if !h.readJSON(w, r, "HandleRegister", &user, false) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new user register request detected for %s", user.Email))
		info, err := h.users.AddNewUser(ctx, user)
		if err != nil {
			h.writeError(w, "HandleRegister", err)
			return
		}
		h.writeJSON(w, "HandleRegister", http.StatusCreated, info)
	}
}

// HandleLogin processes user login requests.
func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var credentials modeldto.Credentials
		if !h.readJSON(w, r, "HandleLogin", &credentials, false) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new login request detected for %s", credentials.Email))
		login, err := h.users.LoginUser(ctx, credentials)
		if err != nil {
			var invalidCredentials *serviceErrors.InvalidCredentials
			if errors.As(err, &invalidCredentials) {
				h.log.Error().Err(err).Msg("HandleLogin failed")
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			h.writeError(w, "HandleLogin", err)
			return
		}
		w.Header().Set("Authorization", "Bearer "+login.Token)
		h.writeJSON(w, "HandleLogin", http.StatusOK, login)
	}
}

// HandleCreateOrder opens a gateway order and records a pending donation.
func (h *Handler) HandleCreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.orderTimeout)
		defer cancel()
		var order modeldto.NewOrder
		if !h.readJSON(w, r, "HandleCreateOrder", &order, false) {
			return
		}
		userID, allowed := actingUser(r, order.UserID)
		if !allowed {
			http.Error(w, "Orders can only be created for yourself", http.StatusForbidden)
			return
		}
		order.UserID = userID
		h.log.Info().Msg(fmt.Sprintf("new order request detected for user %s, amount %s", order.UserID, order.Amount))
		gatewayOrder, err := h.initiator.CreateOrder(ctx, order)
		if err != nil {
			h.writeError(w, "HandleCreateOrder", err)
			return
		}
		h.writeJSON(w, "HandleCreateOrder", http.StatusOK, gatewayOrder)
	}
}

// HandleVerifyPayment processes client-reported payment success.
func (h *Handler) HandleVerifyPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var confirmation modeldto.PaymentConfirmation
		if !h.readJSON(w, r, "HandleVerifyPayment", &confirmation, false) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("payment verification request detected for order %s", confirmation.OrderCreationID))
		entry, err := h.reconciler.ConfirmPayment(ctx, requester(r), confirmation)
		if err != nil {
			h.writeError(w, "HandleVerifyPayment", err)
			return
		}
		donation := modeldto.NewDonation(*entry)
		if entry.Status == modelstorage.StatusFailed {
			h.writeJSON(w, "HandleVerifyPayment", http.StatusConflict, modeldto.ResolvedDonation{Message: "Order already failed", Donation: &donation})
			return
		}
		h.writeJSON(w, "HandleVerifyPayment", http.StatusOK, modeldto.ResolvedDonation{Message: "Payment Verified", Donation: &donation})
	}
}

// HandlePaymentFailed processes client-reported payment failure.
func (h *Handler) HandlePaymentFailed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var failure modeldto.PaymentFailure
		if !h.readJSON(w, r, "HandlePaymentFailed", &failure, false) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("payment failure request detected for order %s", failure.OrderID))
		entry, err := h.reconciler.FailPayment(ctx, requester(r), failure)
		if err != nil {
			h.writeError(w, "HandlePaymentFailed", err)
			return
		}
		message := "Payment marked as failed"
		if entry.Status == modelstorage.StatusSuccess {
			message = "Payment already verified"
		}
		donation := modeldto.NewDonation(*entry)
		h.writeJSON(w, "HandlePaymentFailed", http.StatusOK, modeldto.ResolvedDonation{Message: message, Donation: &donation})
	}
}

// HandleHistory lists a user's donations, newest first.
func (h *Handler) HandleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var request modeldto.HistoryRequest
		if !h.readJSON(w, r, "HandleHistory", &request, true) {
			return
		}
		userID, allowed := actingUser(r, request.UserID)
		if !allowed {
			http.Error(w, "History of other users is not available", http.StatusForbidden)
			return
		}
		history, err := h.reporter.GetUserHistory(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleHistory", err)
			return
		}
		h.writeJSON(w, "HandleHistory", http.StatusOK, history)
	}
}

// HandleAdminStats reports portal-wide statistics.
func (h *Handler) HandleAdminStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		stats, err := h.reporter.GetAdminStats(ctx)
		if err != nil {
			h.writeError(w, "HandleAdminStats", err)
			return
		}
		h.writeJSON(w, "HandleAdminStats", http.StatusOK, stats)
	}
}
