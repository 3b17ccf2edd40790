// Package server exposes the purchase pipeline over HTTP. Each route runs
// an ordered pipeline: request logging, schema validation, optional app
// ticket verification, then the operation itself.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"steam-microtxn/internal/appticket"
	"steam-microtxn/internal/common/config"
	apierrors "steam-microtxn/internal/common/errors"
	"steam-microtxn/internal/common/logger"
	"steam-microtxn/internal/common/validation"
	"steam-microtxn/internal/purchase"
)

const ticketHeaderName = "x-steam-app-ticket"

// operationFunc adapts one purchase operation to the route pipeline. The
// body map has already passed schema validation.
type operationFunc func(ctx context.Context, body map[string]interface{}) (interface{}, error)

type Server struct {
	cfg      *config.Config
	handler  *purchase.Handler
	verifier *appticket.Verifier
	router   *mux.Router
	http     *http.Server
	logger   logger.Logger
}

func New(cfg *config.Config, h *purchase.Handler, v *appticket.Verifier, log logger.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		handler:  h,
		verifier: v,
		logger:   log,
	}
	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	return s
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogging)

	r.HandleFunc("/", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/GetReliableUserInfo",
		s.endpoint(purchase.GetReliableUserInfoSchema, false, func(ctx context.Context, body map[string]interface{}) (interface{}, error) {
			return s.handler.GetReliableUserInfo(ctx, purchase.UserInfoRequestFromBody(body))
		})).Methods(http.MethodPost)

	r.HandleFunc("/CheckAppOwnership",
		s.endpoint(purchase.CheckAppOwnershipSchema, false, func(ctx context.Context, body map[string]interface{}) (interface{}, error) {
			return s.handler.CheckAppOwnership(ctx, purchase.OwnershipRequestFromBody(body))
		})).Methods(http.MethodPost)

	initOp := func(ctx context.Context, body map[string]interface{}) (interface{}, error) {
		return s.handler.InitPurchase(ctx, purchase.InitRequestFromBody(body))
	}
	r.HandleFunc("/InitPurchase",
		s.endpoint(purchase.InitPurchaseSchema, false, initOp)).Methods(http.MethodPost)
	r.HandleFunc("/InitPurchaseAppTicket",
		s.endpoint(purchase.InitPurchaseAppTicketSchema, true, initOp)).Methods(http.MethodPost)

	finalizeOp := func(ctx context.Context, body map[string]interface{}) (interface{}, error) {
		return s.handler.FinalizePurchase(ctx, purchase.FinalizeRequestFromBody(body))
	}
	r.HandleFunc("/FinalizePurchase",
		s.endpoint(purchase.FinalizePurchaseSchema, false, finalizeOp)).Methods(http.MethodPost)
	r.HandleFunc("/FinalizePurchaseAppTicket",
		s.endpoint(purchase.FinalizePurchaseAppTicketSchema, true, finalizeOp)).Methods(http.MethodPost)

	r.HandleFunc("/checkPurchaseStatus",
		s.endpoint(purchase.CheckPurchaseStatusSchema, false, func(ctx context.Context, body map[string]interface{}) (interface{}, error) {
			return s.handler.CheckPurchaseStatus(ctx, purchase.StatusRequestFromBody(body))
		})).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "Not found txn route",
		})
	})
	return r
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"addr":        s.cfg.Server.Addr(),
		"environment": s.cfg.App.Environment,
	})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	mode := "production"
	if s.cfg.App.Development() {
		mode = "development"
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  true,
		"message": fmt.Sprintf("API is running in %s mode %s", mode, time.Now().Format(time.RFC3339)),
	})
}

// endpoint builds the fallible stage pipeline for one POST route. Schema
// validation always runs first so malformed input never reaches the
// ticket verifier or a settlement call.
func (s *Server) endpoint(schema validation.RequestSchema, requireTicket bool, op operationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeBody(r)
		if err != nil {
			s.writeValidationFailure(w, []validation.ValidationError{{
				Field:   "body",
				Message: "Request body must be valid JSON",
			}})
			return
		}

		if result := validation.Validate(schema, r.Header, body); !result.Valid {
			s.writeValidationFailure(w, result.Errors)
			return
		}

		if requireTicket {
			ticket := r.Header.Get(ticketHeaderName)
			if ticket == "" {
				// Unreachable when the schema lists the header, kept as a guard.
				s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"error": "Missing x-steam-app-ticket header",
				})
				return
			}
			if _, apiErr := s.verifier.Verify(ticket); apiErr != nil {
				s.writeError(w, apiErr)
				return
			}
		}

		resp, err := op(r.Context(), body)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]interface{}{}, nil
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Server) writeValidationFailure(w http.ResponseWriter, errs []validation.ValidationError) {
	details := make([]map[string]string, 0, len(errs))
	for _, e := range errs {
		details = append(details, map[string]string{
			"field":   e.Field,
			"message": e.Message,
		})
	}
	s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "Validation failed",
		"details": details,
	})
}

// writeError normalizes any error to the uniform {error: message} shape.
// Raw diagnostics are only attached in development mode.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	apiErr := apierrors.Normalize(err)

	payload := map[string]interface{}{
		"error": apiErr.Message,
	}
	if len(apiErr.Fields) > 0 {
		payload["details"] = apiErr.Fields
	} else if s.cfg.App.Development() && apiErr.Details != "" {
		payload["details"] = apiErr.Details
	}

	if apiErr.Code == apierrors.ErrCodeInternal {
		s.logger.WithError(err).Error("request failed with internal error", nil)
	}
	s.writeJSON(w, apiErr.HTTPStatus(), payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("failed to encode response", nil)
	}
}
