// Package daemon runs the touchguide server detached from the terminal and
// stops it again through the server's own JSON-RPC endpoint.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/mobile-next/touchguide/server"
	"github.com/sevlyar/go-daemon"
)

// ChildEnv is set to "1" in the environment of the detached server.
const ChildEnv = "TOUCHGUIDE_DAEMON_CHILD"

// StopTimeout bounds a Stop call when the caller's context has no deadline.
const StopTimeout = 10 * time.Second

// Detach starts a copy of the current command in the background. The parent
// gets the child's process; inside the child the process is nil.
func Detach() (*os.Process, error) {
	// no pid or log file: the server logs through utils
	dctx := &daemon.Context{
		WorkDir: "/",
		Umask:   027,
		Args:    os.Args,
		Env:     append(os.Environ(), ChildEnv+"=1"),
	}

	child, err := dctx.Reborn()
	if err != nil {
		return nil, fmt.Errorf("failed to detach server: %w", err)
	}
	return child, nil
}

func InChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// Stop asks the server listening on addr to shut down.
func Stop(ctx context.Context, addr string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, StopTimeout)
		defer cancel()
	}

	base, err := serverURL(addr)
	if err != nil {
		return err
	}

	body, err := json.Marshal(server.JSONRPCRequest{JSONRPC: "2.0", Method: "server.shutdown", ID: 1})
	if err != nil {
		return fmt.Errorf("failed to encode shutdown request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build shutdown request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("no server is listening on %s", base)
	case err != nil:
		return fmt.Errorf("failed to reach server at %s: %w", base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return shutdownResult(resp)
}

func shutdownResult(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shutdown request failed: %s", resp.Status)
	}

	var reply server.JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("unreadable shutdown reply: %w", err)
	}
	if reply.Error != nil {
		return fmt.Errorf("server refused to shut down: %v", reply.Error)
	}
	return nil
}

// serverURL accepts the same listen addresses as the server and returns the
// base URL to dial. Full URLs pass through.
func serverURL(addr string) (string, error) {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr, nil
	}

	hostPort, err := server.NormalizeAddr(addr)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(hostPort, ":") {
		hostPort = "localhost" + hostPort
	}
	return "http://" + hostPort, nil
}
