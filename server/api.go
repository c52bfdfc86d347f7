package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
	"github.com/vigiacam/vigia/server/configdb"
	"github.com/vigiacam/vigia/server/report"
)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	handle := func(method, route string, h httprouter.Handle) {
		www.Handle(s.Log, router, method, route, h)
	}

	// Each mutating endpoint gets its own per-IP limiter.
	ratelimited := func(method, route string, h httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	handle("GET", "/api/ping", s.httpPing)

	handle("GET", "/api/stats", s.httpGetStats)
	handle("GET", "/api/colors", s.httpGetColors)
	handle("GET", "/api/summary", s.httpGetSummary)
	handle("GET", "/api/vehicle/:id", s.httpGetVehicle)
	handle("GET", "/api/alerts", s.httpGetAlerts)
	handle("GET", "/api/records", s.httpGetRecords)
	handle("GET", "/api/frame", s.httpGetFrame)
	handle("GET", "/api/ws", s.httpWebSocket)

	handle("GET", "/api/report", s.httpGetReport)
	handle("GET", "/api/report.pdf", s.httpGetReportPDF)

	ratelimited("POST", "/api/line", s.httpSetLine, 30, time.Minute)
	ratelimited("POST", "/api/reset", s.httpReset, 10, time.Minute)
	ratelimited("POST", "/api/pause", s.httpPause, 30, time.Minute)
	ratelimited("POST", "/api/resume", s.httpResume, 30, time.Minute)

	handle("GET", "/api/config/definitions", s.httpConfigGetVariableDefinitions)
	handle("GET", "/api/config/values", s.httpConfigGetVariableValues)
	ratelimited("POST", "/api/config/setVariable/:key", s.httpConfigSetVariable, 30, time.Minute)

	handle("GET", "/api/db/crossings", s.httpDBCrossings)
	handle("GET", "/api/db/alerts", s.httpDBAlerts)

	s.httpRouter = router
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time int64 `json:"time"`
	}
	www.SendJSON(w, &pingJSON{Time: time.Now().Unix()})
}

func (s *Server) httpGetStats(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type statsJSON struct {
		Counting           interface{} `json:"counting"`
		CrossingsPerMinute int         `json:"crossingsPerMinute"`
		FrameCount         int64       `json:"frameCount"`
		LinePosition       float64     `json:"linePosition"`
		Paused             bool        `json:"paused"`
	}
	www.CacheNever(w)
	www.SendJSON(w, &statsJSON{
		Counting:           s.Monitor.CountingStats(),
		CrossingsPerMinute: s.Monitor.CrossingsPerMinute(),
		FrameCount:         s.Monitor.FrameCount(),
		LinePosition:       s.Monitor.LinePosition(),
		Paused:             s.Monitor.IsPaused(),
	})
}

func (s *Server) httpGetColors(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.CacheNever(w)
	www.SendJSON(w, s.Monitor.ColorDistribution())
}

func (s *Server) httpGetSummary(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.CacheNever(w)
	www.SendJSON(w, s.Monitor.Summary())
}

func (s *Server) httpGetVehicle(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("id"))
	stats, ok := s.Monitor.VehicleStats(id)
	if !ok {
		www.PanicNotFound()
	}
	www.SendJSON(w, stats)
}

func (s *Server) httpGetAlerts(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	n := www.QueryInt(r, "count")
	if n <= 0 {
		n = 20
	}
	www.CacheNever(w)
	www.SendJSON(w, s.Monitor.RecentAlerts(n))
}

func (s *Server) httpGetRecords(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.CacheNever(w)
	www.SendJSON(w, s.Monitor.Records())
}

// Annotated JPEG of the most recent frame.
// Example: curl -o frame.jpg localhost:8080/api/frame
func (s *Server) httpGetFrame(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	img, ok := s.Monitor.RenderAnnotated()
	if !ok {
		www.PanicBadRequestf("No frame available yet")
	}
	jpg, err := compressJPEG(img)
	www.Check(err)
	www.CacheNever(w)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(jpg)
}

func (s *Server) httpGetReport(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rep := report.Build(s.Monitor)
	www.CacheNever(w)
	w.Header().Set("Content-Type", "application/json")
	www.Check(rep.WriteJSON(w))
}

func (s *Server) httpGetReportPDF(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rep := report.Build(s.Monitor)
	www.CacheNever(w)
	w.Header().Set("Content-Type", "application/pdf")
	www.Check(rep.WritePDF(w))
}

func (s *Server) httpSetLine(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	pos, err := strconv.ParseFloat(www.RequiredQueryValue(r, "position"), 64)
	if err != nil {
		www.PanicBadRequestf("Invalid line position: %v", err)
	}
	www.CheckClient(s.Monitor.SetLinePosition(pos))
	if s.configDB != nil {
		www.Check(s.configDB.SetVariable(configdb.VarLinePosition, strconv.FormatFloat(pos, 'f', -1, 64)))
	}
	www.SendOK(w)
}

func (s *Server) httpReset(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.Monitor.ResetStats()
	s.Log.Infof("Statistics reset via API")
	www.SendOK(w)
}

func (s *Server) httpPause(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.Monitor.Pause()
	www.SendOK(w)
}

func (s *Server) httpResume(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.Monitor.Unpause()
	www.SendOK(w)
}

func (s *Server) httpDBCrossings(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.recordDB == nil {
		www.PanicBadRequestf("No record database configured")
	}
	crossings, err := s.recordDB.Crossings(www.QueryInt(r, "limit"))
	www.Check(err)
	www.SendJSON(w, crossings)
}

func (s *Server) httpDBAlerts(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.recordDB == nil {
		www.PanicBadRequestf("No record database configured")
	}
	alerts, err := s.recordDB.Alerts(www.QueryInt(r, "limit"))
	www.Check(err)
	www.SendJSON(w, alerts)
}
