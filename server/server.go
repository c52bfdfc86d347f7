package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/vigiacam/vigia/server/configdb"
	"github.com/vigiacam/vigia/server/monitor"
	"github.com/vigiacam/vigia/server/notifications"
	"github.com/vigiacam/vigia/server/recorddb"
)

// Server is the HTTP front-end over a running monitor. The monitor keeps
// processing frames regardless of whether anybody is connected; the server
// just exposes its state and configuration.
type Server struct {
	Log     logs.Log
	Monitor *monitor.Monitor

	configDB *configdb.ConfigDB
	recordDB *recorddb.RecordDB
	notifier *notifications.Notifier

	notifierShutdown chan bool
	signalIn         chan os.Signal
	httpServer       *http.Server
	httpRouter       *httprouter.Router
	wsUpgrader       websocket.Upgrader
	wsShutdown       chan bool
}

// NewServer wires the monitor, config store and record store into an HTTP
// server. recordDB may be nil, in which case crossings and alerts are not
// persisted.
func NewServer(logger logs.Log, mon *monitor.Monitor, configDB *configdb.ConfigDB, recordDB *recorddb.RecordDB) (*Server, error) {
	s := &Server{
		Log:        logger,
		Monitor:    mon,
		configDB:   configDB,
		recordDB:   recordDB,
		wsShutdown: make(chan bool),
	}
	if recordDB != nil {
		mon.SetRecorder(recordDB)
	}
	s.setupHttpRoutes()
	return s, nil
}

// StartNotifier attaches a Telegram sender to the monitor's alert stream.
// With empty credentials the notifier runs in disabled mode, which keeps the
// alert channel drained.
func (s *Server) StartNotifier(botToken, chatID string) {
	s.notifierShutdown = make(chan bool)
	s.notifier = notifications.NewNotifier(s.Log, botToken, chatID, s.Monitor.AddAlertWatcher(), s.notifierShutdown)
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. Shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}
	close(s.wsShutdown)
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := s.httpServer.Shutdown(ctx)
		cancel()
		if err != nil {
			s.Log.Warnf("HTTP server shutdown error: %v", err)
		}
	}
	s.Monitor.Close()
	if s.notifier != nil {
		close(s.notifierShutdown)
		<-s.notifier.ShutdownComplete
	}
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
}
