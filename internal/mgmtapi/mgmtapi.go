// Package mgmtapi implements the optional loopback diagnostics API
// (SPEC_FULL.md §6.2): a bearer-token-protected HTTP server exposing
// GET /status and POST /message. It is never required for core FANET
// behavior and stays disabled unless a listen address is configured.
// Grounded on the teacher's internal/controllers/management package
// (gorilla/mux router, logging/auth middleware, bearer-token-or-none
// auth) and its pkg/responseformat formatter (JSON-by-default,
// msgpack on ?format=msgpack). Request logging uses gorilla/handlers'
// own LoggingHandler middleware, fed from the zap logger's standard
// *log.Logger adapter.
package mgmtapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/message"
	"github.com/mlohse/fanetgs/internal/log"
)

// Status supplies the live values GET /status reports. Both fields
// are cheap accessors backed by the running radio/app state, called
// fresh on every request.
type Status struct {
	State     func() string
	LastEvent func() (message.ReceiveEvent, bool)
}

// TransmitFunc unicasts a text message, mirroring the CLI's -m flag.
type TransmitFunc func(addr address.Address, text string) bool

// API is the loopback management HTTP server.
type API struct {
	listenAddr string
	authToken  string
	status     Status
	transmit   TransmitFunc
	logger     *zap.SugaredLogger
	server     *http.Server
}

// New builds an API bound to listenAddr (host:port, expected to be a
// loopback address — e.g. "127.0.0.1:8090"). A fresh bearer token is
// generated and logged once at startup, the same one-shot-token
// pattern as the teacher's generateAuthToken()/token.go.
func New(listenAddr string, status Status, transmit TransmitFunc, logger *zap.SugaredLogger) *API {
	token := uuid.New().String()
	logger.Infow("mgmtapi: access token generated", "token", token)

	a := &API{
		listenAddr: listenAddr,
		authToken:  token,
		status:     status,
		transmit:   transmit,
		logger:     logger,
	}

	stdLog := zap.NewStdLog(log.GetZapLogger())

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return handlers.LoggingHandler(stdLog.Writer(), next)
	})

	api := router.NewRoute().Subrouter()
	api.Use(a.authMiddleware)
	api.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/message", a.handleMessage).Methods(http.MethodPost)

	a.server = &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}
	return a
}

// Run starts the HTTP server and blocks until ctx is canceled, then
// shuts the server down gracefully.
func (a *API) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.server.Shutdown(shutdownCtx)
	}()

	a.logger.Infow("mgmtapi: listening", "addr", a.listenAddr)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Errorw("mgmtapi: server error", "error", err)
	}
}

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+a.authToken {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "authentication required", http.StatusUnauthorized)
	})
}

type statusResponse struct {
	State          string `json:"state"`
	HasLastEvent   bool   `json:"has_last_event"`
	LastSender     string `json:"last_sender,omitempty"`
	LastBroadcast  bool   `json:"last_broadcast,omitempty"`
	LastPayloadLen int    `json:"last_payload_len,omitempty"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{State: a.status.State()}
	if ev, ok := a.status.LastEvent(); ok {
		resp.HasLastEvent = true
		resp.LastSender = ev.Sender.String()
		resp.LastBroadcast = ev.Broadcast
		resp.LastPayloadLen = ev.Payload.Len()
	}
	writeResponse(w, r, resp)
}

type messageRequest struct {
	Addr string `json:"addr"`
	Text string `json:"text"`
}

type messageResponse struct {
	OK bool `json:"ok"`
}

func (a *API) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	addr, err := address.Parse(req.Addr)
	if err != nil {
		http.Error(w, "malformed address: "+err.Error(), http.StatusBadRequest)
		return
	}
	ok := a.transmit(addr, req.Text)
	writeResponse(w, r, messageResponse{OK: ok})
}

// writeResponse writes data as JSON, or as msgpack when the request's
// format query parameter is "msgpack" — the same format-selection
// rule as the teacher's pkg/responseformat.Formatter.WriteResponse.
func writeResponse(w http.ResponseWriter, r *http.Request, data any) {
	if r.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", "application/x-msgpack")
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		enc.Encode(data)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
