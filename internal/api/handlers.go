package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/orangelab/pulsemon/internal/config"
	"github.com/orangelab/pulsemon/internal/db"
	"github.com/orangelab/pulsemon/internal/httputil"
	"github.com/orangelab/pulsemon/internal/monitoring"
	"github.com/orangelab/pulsemon/internal/serialmux"
)

// showResult serves the most recent evaluation cycle.
func (s *Server) showResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.monitor.LastResult())
}

type statusResponse struct {
	Port          string  `json:"port"`
	SampleRateSPS float64 `json:"sample_rate_sps"`
	WindowSamples int     `json:"window_samples"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, statusResponse{
		Port:          s.portInfo,
		SampleRateSPS: s.monitor.SampleRate(),
		WindowSamples: s.monitor.WindowLen(),
	})
}

func (s *Server) showRawTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string][]string{"lines": s.monitor.RawTail()})
}

// exportWindow streams the buffered window as CSV, one row per sample.
func (s *Server) exportWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	filename := fmt.Sprintf("pulse-%s.csv", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "adc_raw", "voltage_V"})
	s.monitor.EachSample(func(ts float64, raw uint32, voltage float64) {
		cw.Write([]string{
			strconv.FormatFloat(ts, 'f', 6, 64),
			strconv.FormatUint(uint64(raw), 10),
			strconv.FormatFloat(voltage, 'f', 6, 64),
		})
	})
	cw.Flush()
	if err := cw.Error(); err != nil {
		monitoring.Logf("csv export failed: %v", err)
	}
}

// handleConfig serves the resolved settings on GET and applies a partial
// update on PATCH. Updates persist to the database when one is attached.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.monitor.Settings())

	case http.MethodPatch:
		patch := &config.Config{}
		if err := json.NewDecoder(r.Body).Decode(patch); err != nil {
			httputil.BadRequest(w, "invalid config document: "+err.Error())
			return
		}
		settings, err := s.monitor.ApplyConfig(patch)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if s.db != nil {
			if err := s.db.SaveTuning(settings.Document()); err != nil {
				monitoring.Logf("failed to persist tuning: %v", err)
			}
		}
		httputil.WriteJSONOK(w, settings)

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) clearWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.monitor.Clear()
	httputil.WriteJSONOK(w, map[string]string{"status": "cleared"})
}

// handlePortConfigs lists stored port configurations on GET and creates one
// on POST.
func (s *Server) handlePortConfigs(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no configuration database")
		return
	}

	switch r.Method {
	case http.MethodGet:
		configs, err := s.db.ListPortConfigs()
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		if configs == nil {
			configs = []db.PortConfig{}
		}
		httputil.WriteJSONOK(w, configs)

	case http.MethodPost:
		var c db.PortConfig
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			httputil.BadRequest(w, "invalid port config: "+err.Error())
			return
		}
		if c.Name == "" || c.PortPath == "" {
			httputil.BadRequest(w, "name and port_path are required")
			return
		}
		opts, err := serialmux.PortOptions{
			BaudRate: c.BaudRate,
			DataBits: c.DataBits,
			StopBits: c.StopBits,
			Parity:   c.Parity,
		}.Normalize()
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		c.BaudRate, c.DataBits, c.StopBits, c.Parity = opts.BaudRate, opts.DataBits, opts.StopBits, opts.Parity

		id, err := s.db.CreatePortConfig(&c)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		created, err := s.db.GetPortConfig(int(id))
		if err != nil || created == nil {
			httputil.InternalServerError(w, "failed to load created port config")
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, created)

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) showAvailablePorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	ports, err := s.listPorts()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if ports == nil {
		ports = []string{}
	}
	httputil.WriteJSONOK(w, map[string][]string{"ports": ports})
}
