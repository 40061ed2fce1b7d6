package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-yaml/yaml"
	"github.com/tarm/serial"
	"goji.io"

	"github.com/photonbench/golight/comm"
	"github.com/photonbench/golight/generichttp/ascii"
	"github.com/photonbench/golight/gpib"
	"github.com/photonbench/golight/monitor"
	"github.com/photonbench/golight/mpm"
	"github.com/photonbench/golight/pcu"
	"github.com/photonbench/golight/server"
	"github.com/photonbench/golight/server/middleware/locker"
	"github.com/photonbench/golight/sme"
	"github.com/photonbench/golight/tsl"
	"github.com/photonbench/golight/usbtmc"
)

// ObjSetup holds the arguments to bring up one instrument node
type ObjSetup struct {
	// Addr is the network or filesystem address of the device, e.g.
	// 192.168.100.40:5000 for LAN, or /dev/ttyUSB0 for a serial link
	Addr string `yaml:"Addr"`

	// Endpoint is the URL fragment the node's routes are served under,
	// e.g. Endpoint="bench/tsl" produces /bench/tsl/wavelength etc.
	Endpoint string `yaml:"Endpoint"`

	// Type selects the driver: tsl, mpm, or pcu
	Type string `yaml:"Type"`

	// Conn selects the transport: lan (default), gpib, gpib-serial, usb
	Conn string `yaml:"Conn"`

	// GPIBAddr is the primary bus address when Conn is gpib or gpib-serial
	GPIBAddr int `yaml:"GPIBAddr"`

	// VID and PID identify the device when Conn is usb
	VID uint16 `yaml:"VID"`
	PID uint16 `yaml:"PID"`
}

// SweepSetup wires a sweep engine to two already-declared nodes
type SweepSetup struct {
	// Endpoint is the URL fragment the sweep's routes are served under
	Endpoint string `yaml:"Endpoint"`

	// Laser and Meter name the Endpoints of the nodes to borrow
	Laser string `yaml:"Laser"`
	Meter string `yaml:"Meter"`
}

// Config holds the initialization parameters for the server, populated
// from the yaml config file
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Mock replaces every driver with an in-memory simulation
	Mock bool `yaml:"Mock"`

	// Nodes is the list of instrument nodes to set up
	Nodes []ObjSetup `yaml:"Nodes"`

	// Sweeps is the list of sweep engines to set up over the nodes
	Sweeps []SweepSetup `yaml:"Sweeps"`
}

// LoadYaml converts a (path to a) yaml file into a Config struct
func LoadYaml(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

// makePool builds a connection pool for a node based on its transport
func makePool(node ObjSetup) *comm.Pool {
	var maker comm.CreationFunc
	switch strings.ToLower(node.Conn) {
	case "", "lan":
		maker = comm.BackingOffTCPConnMaker(node.Addr, 3*time.Second)
	case "gpib":
		inner := comm.BackingOffTCPConnMaker(node.Addr, 3*time.Second)
		maker = gpib.NewConnMaker(inner, node.GPIBAddr)
	case "gpib-serial":
		inner := comm.SerialConnMaker(&serial.Config{Name: node.Addr, Baud: 115200})
		maker = gpib.NewConnMaker(inner, node.GPIBAddr)
	case "usb":
		maker = usbtmc.NewConnMaker(node.VID, node.PID)
	default:
		log.Fatal("connection type ", node.Conn, " not understood")
	}
	return comm.NewPool(1, 30*time.Second, maker)
}

// BuildMux assembles the root router from the config: one submux per
// node, one per sweep, plus /endpoints and /metrics
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}
	lasers := map[string]sme.Laser{}
	meters := map[string]sme.PowerMeter{}

	for _, node := range c.Nodes {
		var (
			httper server.HTTPer
			raw    ascii.RawCommunicator
		)
		typ := strings.ToLower(node.Type)
		switch typ {
		case "tsl", "tsl-570", "laser":
			var drv tsl.Controller
			if c.Mock {
				mock := tsl.NewMock()
				drv = mock
				raw = mock
				lasers[node.Endpoint] = mock
			} else {
				real := tsl.NewFromPool(makePool(node))
				drv = real
				raw = real.SCPI
				lasers[node.Endpoint] = real
			}
			httper = tsl.NewHTTPWrapper(drv)

		case "mpm", "mpm-210", "powermeter":
			var drv mpm.Meter
			if c.Mock {
				mock := mpm.NewMock()
				drv = mock
				raw = mock
				meters[node.Endpoint] = mock
			} else {
				real := mpm.NewFromPool(makePool(node))
				drv = real
				raw = real.SCPI
				meters[node.Endpoint] = real
			}
			httper = mpm.NewHTTPWrapper(drv)

		case "pcu", "polarization":
			var drv pcu.Controller
			if c.Mock {
				mock := pcu.NewMock()
				drv = mock
				raw = mock
			} else {
				real := pcu.NewFromPool(makePool(node))
				drv = real
				raw = real.SCPI
			}
			httper = pcu.NewHTTPWrapper(drv)

		default:
			log.Fatal("type ", typ, " not understood")
		}

		ascii.InjectRawComm(httper, raw)

		// add a lock interface for this node
		lock := locker.New()
		locker.Inject(httper, lock)

		mount(root, node.Endpoint, httper, lock, supergraph)
	}

	for _, sw := range c.Sweeps {
		laser, ok := lasers[sw.Laser]
		if !ok {
			log.Fatal("sweep references unknown laser node ", sw.Laser)
		}
		meter, ok := meters[sw.Meter]
		if !ok {
			log.Fatal("sweep references unknown meter node ", sw.Meter)
		}
		engine := sme.New(laser, meter)
		httper := sme.NewHTTPWrapper(engine)
		mount(root, sw.Endpoint, httper, nil, supergraph)
	}

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	root.Method(http.MethodGet, "/metrics", monitor.Handler())
	return root
}

// mount binds an HTTPer's route table under its endpoint on the root
// router, recording its routes in the supergraph
func mount(root chi.Router, endpoint string, httper server.HTTPer, lock *locker.Locker, supergraph map[string][]string) {
	// "bench/tsl" => "/bench/tsl/*"
	hndlS := server.SubMuxSanitize(endpoint)
	supergraph[hndlS] = httper.RT().Endpoints()

	mux := goji.NewMux()
	httper.RT().Bind(mux)
	var handler http.Handler = mux
	if lock != nil {
		handler = lock.Check(handler)
	}
	// chi mounts on the bare prefix and adds its own wildcard; goji matches
	// on URL.Path, so the prefix is stripped before the submux sees it
	prefix := strings.TrimSuffix(hndlS, "/*")
	root.Mount(prefix, http.StripPrefix(prefix, handler))
}
