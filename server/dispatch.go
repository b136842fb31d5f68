package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mobile-next/touchguide/explorer"
	"github.com/mobile-next/touchguide/utils"
)

// HandlerFunc is the signature for JSON-RPC method handlers
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// errInvalidParams marks errors caused by the caller's parameters.
var errInvalidParams = errors.New("invalid parameters")

type rpcError struct {
	code  int
	title string
	data  string
}

// methodRegistry returns a map of method names to handler functions.
// It is shared by the HTTP and websocket transports.
func (s *Server) methodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"touch.inject":    s.handleTouchInject,
		"touch.cancel":    s.handleTouchCancel,
		"touch.state":     s.handleTouchState,
		"focus.set":       s.handleFocusSet,
		"focus.put":       s.handleFocusPut,
		"config.get":      s.handleConfigGet,
		"server.shutdown": s.handleServerShutdown,
	}
}

// Execute dispatches a method call using the registry.
func (s *Server) Execute(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	result, rpcErr := s.execute(ctx, method, params)
	if rpcErr != nil {
		return nil, fmt.Errorf("%s: %s", rpcErr.title, rpcErr.data)
	}
	return result, nil
}

func (s *Server) execute(ctx context.Context, method string, params json.RawMessage) (interface{}, *rpcError) {
	handler, exists := s.methods[method]
	if !exists {
		return nil, &rpcError{code: ErrCodeMethodNotFound, title: errTitleNotFound, data: method + " not found"}
	}

	result, err := handler(ctx, params)
	if err != nil {
		utils.Verbose("Error executing method %s: %v", method, err)
		if isInvalidParams(err) {
			return nil, &rpcError{code: ErrCodeInvalidParams, title: errTitleInvalidParam, data: err.Error()}
		}
		return nil, &rpcError{code: ErrCodeServerError, title: errTitleServer, data: err.Error()}
	}
	return result, nil
}

func isInvalidParams(err error) bool {
	return errors.Is(err, errInvalidParams) ||
		errors.Is(err, explorer.ErrMalformedEvent) ||
		errors.Is(err, explorer.ErrDuplicatePointerID) ||
		errors.Is(err, explorer.ErrUnknownPointerID) ||
		errors.Is(err, explorer.ErrTooManyPointers)
}
