package server

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// httpWebSocket streams monitor snapshots to the client, one JSON message per
// processed frame. The client is not expected to send anything; we only read
// to detect disconnects.
func (s *Server) httpWebSocket(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	c, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("httpWebSocket upgrade failed: %v", err)
		return
	}
	defer c.Close()

	ch := s.Monitor.AddWatcher()
	defer s.Monitor.RemoveWatcher(ch)

	closed := make(chan bool)
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	}()

	for {
		select {
		case snapshot := <-ch:
			if err := c.WriteJSON(snapshot); err != nil {
				return
			}
		case <-closed:
			return
		case <-s.wsShutdown:
			return
		}
	}
}
