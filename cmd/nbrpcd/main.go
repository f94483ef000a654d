// Command nbrpcd runs a standalone nbrpc server: a nonblocking,
// framed-RPC reactor dispatching to the echo processor. It exists to
// exercise the reactor/transport/protocol packages end to end; a real
// deployment would wire in its own processor.Processor.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/sphinxmux/nbrpc/internal/config"
	nbrpclog "github.com/sphinxmux/nbrpc/internal/log"
	"github.com/sphinxmux/nbrpc/processor"
	"github.com/sphinxmux/nbrpc/protocol"
	"github.com/sphinxmux/nbrpc/reactor"
	"github.com/sphinxmux/nbrpc/transport"
)

func main() {
	app := cli.NewApp()
	app.Name = "nbrpcd"
	app.Usage = "nonblocking framed-RPC server"
	app.Version = versioninfo.Short()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "path to a TOML config file"},
		cli.StringFlag{Name: "metrics-addr", Value: "", Usage: "address to serve /metrics on, empty disables it"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "nbrpcd:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	backend, err := nbrpclog.New(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("nbrpcd: logging: %w", err)
	}
	log := backend.GetLogger("nbrpcd")
	log.Noticef("nbrpcd %s starting", versioninfo.Short())

	registry := prometheus.NewRegistry()
	metrics := reactor.NewMetrics(registry)
	if addr := c.String("metrics-addr"); addr != "" {
		go serveMetrics(addr, registry, log)
	}

	tf, pf, err := protocol.ByKind(cfg.Server.Protocol)
	if err != nil {
		return fmt.Errorf("nbrpcd: %w", err)
	}

	rx, err := reactor.New(reactor.Config{
		NumWorkers:       cfg.Server.NumWorkers,
		Processor:        processor.Echo{},
		TransportFactory: tf,
		ProtocolFactory:  pf,
		Log:              backend.GetLogger("reactor"),
		Metrics:          metrics,
		WorkQueueCap:     cfg.Queue.WorkCapacity,
		SignalQueueCap:   cfg.Queue.SignalCapacity,
	})
	if err != nil {
		return fmt.Errorf("nbrpcd: %w", err)
	}

	st, err := serverTransportFor(cfg.Server)
	if err != nil {
		return err
	}
	if cfg.Accept.RateLimit > 0 {
		st = transport.NewRateLimited(st, cfg.Accept.RateLimit, cfg.Server.NumWorkers)
	}

	srv := reactor.NewServer(st, rx, backend.GetLogger("server"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Notice("nbrpcd: shutdown requested")
		srv.Shutdown(cfg.Shutdown.TimeoutSeconds, cfg.Shutdown.Block)
	}()

	log.Noticef("nbrpcd: serving %s on %s (%s/%s)", cfg.Server.Transport, cfg.Server.Listen, cfg.Server.Transport, cfg.Server.Protocol)
	return srv.Serve()
}

func serverTransportFor(s config.Server) (reactor.ServerTransport, error) {
	switch s.Transport {
	case "", "tcp":
		return transport.NewTCPServerTransport("tcp", s.Listen), nil
	case "unix":
		return transport.NewTCPServerTransport("unix", s.Listen), nil
	case "websocket":
		return transport.NewWebSocketServerTransport(s.Listen), nil
	case "quic":
		return transport.NewQUICServerTransport(s.Listen, generateQUICTLSConfig()), nil
	default:
		return nil, fmt.Errorf("nbrpcd: unknown transport %q", s.Transport)
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, log interface{ Errorf(string, ...interface{}) }) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("nbrpcd: metrics server: %v", err)
	}
}

// generateQUICTLSConfig is a self-signed placeholder for local runs:
// there is no config option for a certificate, so every run of the
// quic transport mints a fresh one.
func generateQUICTLSConfig() *tls.Config {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("nbrpcd: generating ephemeral TLS key: %v", err))
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		panic(fmt.Sprintf("nbrpcd: generating ephemeral TLS cert: %v", err))
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		panic(fmt.Sprintf("nbrpcd: marshaling ephemeral TLS key: %v", err))
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		panic(fmt.Sprintf("nbrpcd: loading ephemeral TLS cert: %v", err))
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, NextProtos: []string{"nbrpc"}}
}
