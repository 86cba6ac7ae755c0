// Command rfc2217d bridges a single serial port to any number of RFC 2217
// TCP clients, one session per accepted connection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/moodclient/rfc2217/bridge"
	"github.com/moodclient/rfc2217/comport"
)

func main() {
	var (
		serialPort = flag.String("serial_port", "/dev/ttyUSB0", "path to the serial device to bridge")
		address    = flag.String("address", "127.0.0.1", "address to listen for TCP clients on")
		tcpPort    = flag.Uint("tcp_port", 7878, "TCP port to listen for clients on")
		baud       = flag.Uint("baud", 9600, "initial baud rate to open the serial port with")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.StringVar(serialPort, "p", *serialPort, "shorthand for -serial_port")
	flag.StringVar(address, "a", *address, "shorthand for -address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	cfg := comport.DefaultConfig(*serialPort)
	cfg.BaudRate = uint32(*baud)

	port, err := comport.OpenBugStPort(cfg)
	if err != nil {
		logger.Error("failed to open serial port", slog.String("port", *serialPort), slog.Any("error", err))
		os.Exit(1)
	}
	defer port.Close()

	listenAddr := net.JoinHostPort(*address, strconv.FormatUint(uint64(*tcpPort), 10))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.Error("failed to listen", slog.String("address", listenAddr), slog.Any("error", err))
		os.Exit(1)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		cancel()
	}()

	logger.Info("rfc2217d listening", slog.String("address", listenAddr), slog.String("serial_port", *serialPort))

	acceptLoop(ctx, listener, port, logger)
}

// acceptLoop hands the shared serial port to one session engine at a time:
// the original implementation is single-client by construction (it accepts
// once and loops forever on that one connection), and concurrent writers on
// the same physical line would corrupt each other's framing, so each new
// connection here waits for the previous session to end before binding.
func acceptLoop(ctx context.Context, listener net.Listener, port comport.Port, logger *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("accept failed", slog.Any("error", err))
			continue
		}

		runSession(ctx, conn, port, logger)
	}
}

func runSession(ctx context.Context, conn net.Conn, port comport.Port, logger *slog.Logger) {
	defer conn.Close()

	engine := bridge.NewEngine(conn, port, logger, bridge.EventHooks{
		EncounteredError: []bridge.ErrorHandler{
			func(e *bridge.Engine, err error) {
				logger.Warn("session error", slog.String("session", e.ID.String()), slog.Any("error", err))
			},
		},
	})

	logger.Info("session opened", slog.String("session", engine.ID.String()), slog.String("remote", conn.RemoteAddr().String()))

	if err := engine.Run(ctx); err != nil {
		logger.Warn("session ended", slog.String("session", engine.ID.String()), slog.Any("error", err))
		return
	}
	logger.Info("session ended", slog.String("session", engine.ID.String()))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		fmt.Fprintf(os.Stderr, "rfc2217d: unrecognized log level %q, defaulting to info\n", s)
		return slog.LevelInfo
	}
}
