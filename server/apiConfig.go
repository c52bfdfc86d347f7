package server

import (
	"net/http"
	"strconv"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/server/configdb"
)

func (s *Server) httpConfigGetVariableDefinitions(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, configdb.AllVariables)
}

func (s *Server) httpConfigGetVariableValues(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.configDB == nil {
		www.PanicBadRequestf("No config database configured")
	}
	values := []configdb.Variable{}
	www.Check(s.configDB.DB.Find(&values).Error)
	www.SendJSON(w, values)
}

func (s *Server) httpConfigSetVariable(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.configDB == nil {
		www.PanicBadRequestf("No config database configured")
	}
	key := configdb.VariableKey(params.ByName("key"))
	value := ""
	if r.URL.Query().Has("value") {
		value = r.URL.Query().Get("value")
	} else {
		value = www.ReadString(w, r, 1024*1024)
	}

	www.CheckClient(s.configDB.SetVariable(key, value))
	s.applyVariable(key, value)

	// If you receive wantRestart:true, then you should restart the service
	// when you're ready. You may want to batch a few setVariable calls before
	// restarting.
	type Response struct {
		WantRestart bool `json:"wantRestart"`
	}
	www.SendJSON(w, &Response{
		WantRestart: configdb.VariableSetNeedsRestart(key),
	})
}

// applyVariable pushes an already validated variable into the running
// monitor. Variables that need a restart are left alone.
func (s *Server) applyVariable(key configdb.VariableKey, value string) {
	switch key {
	case configdb.VarLinePosition:
		pos, _ := strconv.ParseFloat(value, 64)
		if err := s.Monitor.SetLinePosition(pos); err != nil {
			s.Log.Warnf("Failed to apply line position %v: %v", value, err)
		}
	case configdb.VarPixelsPerMeter:
		ppm, _ := strconv.ParseFloat(value, 64)
		s.Monitor.SetPixelsPerMeter(ppm)
	case configdb.VarWatchColor:
		s.Monitor.SetWatchColor(colorclass.Color(value))
	}
}
