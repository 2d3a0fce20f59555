package lspclient

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"
)

// Kind classifies one Message the same way spec.md §4.6 classifies a
// raw decoded LSP envelope: by which of id/method/error are present.
type Kind int

const (
	// KindResponse is a reply to a request we sent (id present, no method).
	KindResponse Kind = iota
	// KindNotification is a server notification (method present, no id).
	KindNotification
	// KindServerRequest is a server-initiated request (id and method
	// both present); currently logged and replied to with an empty
	// result, never surfaced as actionable work (spec.md §4.6).
	KindServerRequest
)

// Message is one classified item arriving on a Client's channel.
type Message struct {
	Kind Kind

	// ID is this package's own locally-generated request id (see
	// Client.Send), not the wire-level jsonrpc2 id; it round-trips
	// opaquely through the caller's requests table for rendering
	// in-flight request lines.
	ID int64

	Method string
	Result interface{}
	Err    error

	Params json.RawMessage
}

// handler implements jsonrpc2.Handler for traffic the server
// initiates: notifications (logMessage, publishDiagnostics, progress,
// ...) and, rarely, server-to-client requests (e.g.
// workspace/configuration). Responses to our own outbound calls never
// reach here; jsonrpc2.Conn.Call consumes those directly.
type handler struct {
	messages chan Message
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	if req.Notif {
		h.messages <- Message{Kind: KindNotification, Method: req.Method, Params: params}
		return
	}

	h.messages <- Message{Kind: KindServerRequest, Method: req.Method, Params: params}
	_ = conn.Reply(ctx, req.ID, nil)
}
