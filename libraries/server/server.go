// Package server holds the listener and response helpers shared by the
// HTTP services.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/greymass/workutils/libraries/enforce"
	"github.com/greymass/workutils/libraries/logger"
)

// SocketListen listens on a unix socket when addr ends in ".sock" and on
// TCP otherwise. A stale socket file is removed first. Failure is fatal.
func SocketListen(addr string) net.Listener {
	if !IsUnixSocket(addr) {
		ln, err := net.Listen("tcp", addr)
		enforce.ENFORCE(err, "Listen failure (TCP)", addr)
		return ln
	}

	os.Remove(addr)
	ln, err := net.Listen("unix", addr)
	enforce.ENFORCE(err, "Listen failure (UNIX socket)", addr)
	enforce.ENFORCE(os.Chmod(addr, 0777), "chmod", addr)
	return ln
}

func IsUnixSocket(addr string) bool {
	return strings.HasSuffix(addr, ".sock")
}

// Serve runs srv on ln until ctx is cancelled, then shuts it down, waiting
// up to grace for in-flight requests.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Printf("http", "Shutting down %s", ln.Addr())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
