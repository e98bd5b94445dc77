// Package daemon serves the Morse toolbox on a unix socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/morse-mcp/internal/config"
	"github.com/alucardeht/morse-mcp/internal/logger"
	"github.com/alucardeht/morse-mcp/internal/mcp"
	"github.com/alucardeht/morse-mcp/internal/metrics"
	"github.com/alucardeht/morse-mcp/internal/tools"
	"github.com/alucardeht/morse-mcp/internal/tools/history"
	"github.com/alucardeht/morse-mcp/internal/watcher"
	"github.com/alucardeht/morse-mcp/pkg/protocol"
)

var log = logger.ForComponent("daemon")

type Daemon struct {
	cfg      *config.Config
	registry *tools.Registry
	history  *history.Store
	metrics  *metrics.Metrics
	watcher  *watcher.Watcher

	listener      net.Listener
	metricsServer *http.Server
	metricsAddr   net.Addr

	connections map[*jsonrpc2.Conn]struct{}
	active      int
	connMu      sync.Mutex
	wg          sync.WaitGroup

	cancel       context.CancelFunc
	shutdown     chan struct{}
	shutdownOnce sync.Once
	startTime    time.Time
}

// New opens the history store when enabled and registers every tool. Nothing
// listens until Start.
func New(cfg *config.Config) (*Daemon, error) {
	d := &Daemon{
		cfg:         cfg,
		metrics:     metrics.New(),
		connections: make(map[*jsonrpc2.Conn]struct{}),
		shutdown:    make(chan struct{}),
		startTime:   time.Now(),
	}

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		d.history = store
	}

	registry, err := NewRegistry(cfg, d.history)
	if err != nil {
		d.closeHistory()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	registry.SetObserver(d.metrics)
	d.registry = registry

	if cfg.Watch.Enabled && len(cfg.Watch.Rules) > 0 {
		wcfg, err := watcher.FromConfig(cfg.Watch, int64(cfg.Translate.MaxInputBytes))
		if err != nil {
			d.closeHistory()
			return nil, fmt.Errorf("invalid watch config: %w", err)
		}
		w, err := watcher.New(wcfg)
		if err != nil {
			d.closeHistory()
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		w.SetObserver(d.metrics)
		d.watcher = w
	}

	return d, nil
}

func (d *Daemon) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	if d.history != nil && d.cfg.History.RetentionDays > 0 {
		maxAge := time.Duration(d.cfg.History.RetentionDays) * 24 * time.Hour
		if _, err := d.history.Purge(ctx, maxAge); err != nil {
			log.Warn("history purge failed", "error", err)
		}
	}

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	if d.cfg.Metrics.Addr != "" {
		if err := d.startMetrics(); err != nil {
			return err
		}
	}

	listener, err := Listen(d.cfg.Daemon.SocketPath)
	if err != nil {
		return err
	}
	d.listener = listener

	log.Info("daemon listening",
		"socket", d.cfg.Daemon.SocketPath,
		"tools", d.registry.Len())

	d.wg.Add(1)
	go d.acceptConnections(ctx)

	return nil
}

func (d *Daemon) startMetrics() error {
	ln, err := net.Listen("tcp", d.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	d.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	d.metricsAddr = ln.Addr()

	go func() {
		if err := d.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	log.Info("metrics listening", "addr", d.metricsAddr.String())
	return nil
}

func (d *Daemon) acceptConnections(ctx context.Context) {
	defer d.wg.Done()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("accept failed", "error", err)
			continue
		}

		if !d.reserveSlot() {
			log.Warn("connection limit reached, refusing client", "limit", d.cfg.Daemon.MaxConnections)
			conn.Close()
			continue
		}

		d.wg.Add(1)
		go d.serveConnection(ctx, conn)
	}
}

// reserveSlot claims a max_connections slot before the client's goroutine
// starts.
func (d *Daemon) reserveSlot() bool {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if d.active >= d.cfg.Daemon.MaxConnections {
		return false
	}
	d.active++
	return true
}

func (d *Daemon) releaseSlot() {
	d.connMu.Lock()
	d.active--
	d.connMu.Unlock()
}

// serveConnection gives each client its own MCP session. The caller has
// already reserved its slot.
func (d *Daemon) serveConnection(ctx context.Context, netConn net.Conn) {
	defer d.wg.Done()
	defer d.releaseSlot()

	d.metrics.ConnectionOpened()
	defer d.metrics.ConnectionClosed()

	session := mcp.NewHandler(d.registry, d.cfg.Translate.CallTimeout)
	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(sessionHandler(session)))

	d.connMu.Lock()
	select {
	case <-d.shutdown:
		d.connMu.Unlock()
		conn.Close()
		return
	default:
	}
	d.connections[conn] = struct{}{}
	d.connMu.Unlock()
	log.Debug("client connected")

	<-conn.DisconnectNotify()

	d.connMu.Lock()
	delete(d.connections, conn)
	d.connMu.Unlock()
	log.Debug("client disconnected", "client", session.ClientInfo().Name)
}

func sessionHandler(session *mcp.Handler) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		mreq := &mcp.Request{JSONRPC: protocol.Version, Method: req.Method}
		if req.Params != nil {
			mreq.Params = *req.Params
		}
		if !req.Notif {
			mreq.ID = req.ID
		}

		resp := session.Handle(ctx, mreq)
		if resp == nil {
			return nil, nil
		}
		if resp.Error != nil {
			return nil, &jsonrpc2.Error{Code: int64(resp.Error.Code), Message: resp.Error.Message}
		}
		return resp.Result, nil
	})
}

// Shutdown stops accepting clients, drops open connections and releases
// the watcher, metrics server and history store. Safe to call more than once.
func (d *Daemon) Shutdown() error {
	var err error

	d.shutdownOnce.Do(func() {
		close(d.shutdown)
		if d.cancel != nil {
			d.cancel()
		}

		if d.listener != nil {
			d.listener.Close()
		}

		d.connMu.Lock()
		for conn := range d.connections {
			conn.Close()
		}
		d.connMu.Unlock()

		d.wg.Wait()

		if d.watcher != nil {
			if werr := d.watcher.Stop(); werr != nil {
				log.Warn("failed to stop watcher", "error", werr)
			}
		}

		if d.metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			d.metricsServer.Shutdown(ctx)
			cancel()
		}

		err = d.closeHistory()
		log.Info("daemon stopped", "uptime", d.Uptime().Round(time.Second).String())
	})

	return err
}

func (d *Daemon) closeHistory() error {
	if d.history == nil {
		return nil
	}
	return d.history.Close()
}

func (d *Daemon) Done() <-chan struct{} {
	return d.shutdown
}

func (d *Daemon) Registry() *tools.Registry {
	return d.registry
}

func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}

// MetricsAddr is nil unless the metrics endpoint is serving.
func (d *Daemon) MetricsAddr() net.Addr {
	return d.metricsAddr
}

func (d *Daemon) SocketPath() string {
	return d.cfg.Daemon.SocketPath
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}

// ConnectionCount reports the clients currently holding a slot.
func (d *Daemon) ConnectionCount() int {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return d.active
}
