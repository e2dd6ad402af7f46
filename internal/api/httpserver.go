package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostd/internal/cron"
	"hostd/internal/hosterr"
	"hostd/pkg/dispatcher"
	"hostd/pkg/logger"
)

// Server exposes the command surface over HTTP and the admin/debug
// surface (metrics, websocket event push) described in SPEC_FULL.md §9.
// Grounded on internal/routes.Server's CORS-wrapped-router-plus-graceful-
// shutdown shape: routes are registered on a pkg/dispatcher.Router rather
// than a bare stdlib mux, adapted to a verb table instead of a resource
// path router.
type Server struct {
	port   int
	table  *VerbTable
	ctx    *Context
	log    logger.Logger
	events <-chan cron.Event

	upgrader websocket.Upgrader
	subs     map[*websocket.Conn]struct{}
	subsLock sync.Mutex
}

// ErrUnexpectedServeError mirrors the teacher's sentinel for an
// unrecovered panic inside the serving goroutine.
var ErrUnexpectedServeError = fmt.Errorf("api: unexpected error occurred while serving http requests")

// ErrServerShutdownError mirrors the teacher's sentinel for a failed
// graceful shutdown.
var ErrServerShutdownError = fmt.Errorf("api: unexpected error occurred while shutting down the server")

// NewServer builds the HTTP surface. events, when non-nil, is drained
// continuously and fanned out to every connected websocket subscriber.
func NewServer(port int, ctx *Context, events <-chan cron.Event, log logger.Logger) *Server {
	return &Server{
		port:   port,
		table:  NewVerbTable(),
		ctx:    ctx,
		log:    log,
		events: events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[*websocket.Conn]struct{}),
	}
}

// wireReply is the JSON envelope every command reply and error is
// rendered as.
type wireReply struct {
	OK    bool   `json:"ok"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(wireReply{Error: err.Error()})
		return
	}

	reply, err := s.table.Dispatch(s.ctx, body.Command)
	if err != nil {
		s.log.Trace(logger.Debug, "api", fmt.Sprintf("command %q failed: %v", body.Command, err))
		json.NewEncoder(w).Encode(wireReply{Error: err.Error(), Kind: hosterr.Classify(err).String()})
		return
	}

	json.NewEncoder(w).Encode(wireReply{OK: true, Reply: reply})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Trace(logger.Warning, "api", fmt.Sprintf("websocket upgrade failed: %v", err))
		return
	}

	s.subsLock.Lock()
	s.subs[conn] = struct{}{}
	s.subsLock.Unlock()

	// Drain (and discard) client frames purely to detect disconnects;
	// this socket is push-only.
	go func() {
		defer func() {
			s.subsLock.Lock()
			delete(s.subs, conn)
			s.subsLock.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// pumpEvents fans out every event received on s.events to connected
// websocket subscribers, run as its own goroutine for the server's
// lifetime.
func (s *Server) pumpEvents() {
	if s.events == nil {
		return
	}

	for e := range s.events {
		encoded, err := json.Marshal(e)
		if err != nil {
			continue
		}

		s.subsLock.Lock()
		for conn := range s.subs {
			if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
				conn.Close()
				delete(s.subs, conn)
			}
		}
		s.subsLock.Unlock()
	}
}

// Serve starts the HTTP server and blocks until SIGINT, then shuts down
// gracefully, mirroring internal/routes.Server.Serve's lifecycle.
func (s *Server) Serve() error {
	router := dispatcher.NewRouter(s.log)
	router.HandleFunc("/command", s.handleCommand).Methods("POST")
	router.HandleFunc("/events", s.handleWebsocket).Methods("GET")
	router.HandleFunc("/metrics", promhttp.Handler().ServeHTTP).Methods("GET")

	aMethods := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
	aOrigins := handlers.AllowedOrigins([]string{"*"})
	aHeaders := handlers.AllowedHeaders([]string{"Content-Type", "Accept"})
	corsRouter := handlers.CORS(aHeaders, aOrigins, aMethods)(router)

	server := &http.Server{
		Addr:    ":" + strconv.FormatInt(int64(s.port), 10),
		Handler: corsRouter,
	}

	go s.pumpEvents()

	var serveErr error
	wg := sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer func() {
			if err := recover(); err != nil {
				s.log.Trace(logger.Fatal, "api", fmt.Sprintf("caught unexpected error while serving requests (err: %v)", err))
				serveErr = ErrUnexpectedServeError
			}
			wg.Done()
			s.log.Trace(logger.Notice, "api", "server has stopped")
		}()

		s.log.Trace(logger.Notice, "api", "server has started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		s.log.Trace(logger.Error, "api", fmt.Sprintf("caught unexpected error while shutting down server (err: %v)", err))
		return ErrServerShutdownError
	}

	wg.Wait()

	return serveErr
}
