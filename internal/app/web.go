package app

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/gnss_skyplot/internal/config"
	"github.com/relabs-tech/gnss_skyplot/internal/fusion"
	"github.com/relabs-tech/gnss_skyplot/internal/gnss"
	"github.com/relabs-tech/gnss_skyplot/internal/skyplot"
)

// RunWeb subscribes to the GNSS topics, keeps the sky plot current and
// serves it over HTTP and WebSocket.
func RunWeb() error {
	cfg := config.Get()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := fusion.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("web: metrics: %w", err)
	}

	geometry := skyplot.Geometry{
		Width:       cfg.SkyplotSize,
		Height:      cfg.SkyplotSize,
		GlyphRadius: cfg.SkyplotGlyphRadius,
	}
	view := skyplot.NewView(geometry)
	p := newPipeline("web", newEngine(cfg, metrics), view)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, "web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := p.subscribe(client, cfg); err != nil {
		return err
	}

	hub := newWSHub(view)
	stop := p.start(millis(cfg.SkyplotRefreshInterval), func(_ []gnss.Satellite, f skyplot.Frame) {
		hub.broadcast(f)
	})
	defer stop()

	mux := newWebMux(p, hub, reg)
	mux.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

// newWebMux registers the API routes. Static files are added by the caller.
func newWebMux(p *pipeline, hub *wsHub, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/satellites", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, p.engine.Snapshot())
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		f, ok := p.view.Frame()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, f.Stats)
	})

	mux.HandleFunc("/api/frame", func(w http.ResponseWriter, r *http.Request) {
		f, ok := p.view.Frame()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, f)
	})

	mux.HandleFunc("/api/skyplot.png", func(w http.ResponseWriter, r *http.Request) {
		f, ok := p.view.Frame()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if err := png.Encode(w, skyplot.Render(f, p.view.Geometry())); err != nil {
			log.Printf("web: png encode error: %v", err)
		}
	})

	mux.Handle("/ws", hub)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}
