// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ricetest

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gorilla/rpc/v2/json2"
	"google.golang.org/grpc/status"

	"github.com/luxfi/ricedb/internal/wire"
)

// DefaultPath is where the JSON-RPC endpoint is mounted.
const DefaultPath = "/rpc"

// HTTPServer serves a Backend over JSON-RPC 2.0.
type HTTPServer struct {
	srv *httptest.Server
}

// StartHTTP serves b at DefaultPath on a loopback port.
func StartHTTP(b *Backend) *HTTPServer {
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, &jsonHandler{codec: json2.NewCodec(), ops: b.unaryOps()})
	return &HTTPServer{srv: httptest.NewServer(mux)}
}

func (s *HTTPServer) Addr() *net.TCPAddr { return s.srv.Listener.Addr().(*net.TCPAddr) }

func (s *HTTPServer) URL() string { return s.srv.URL + DefaultPath }

func (s *HTTPServer) Close() { s.srv.Close() }

// jsonHandler dispatches JSON-RPC requests by method name. Errors are
// written as JSON-RPC error objects with the gRPC status code folded into
// the server error range.
type jsonHandler struct {
	codec *json2.Codec
	ops   map[string]unaryOp
}

func (h *jsonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	req := h.codec.NewRequest(r)
	method, err := req.Method()
	if err != nil {
		req.WriteError(w, http.StatusBadRequest, err)
		return
	}
	name, _ := strings.CutPrefix(method, wire.JSONService+".")
	op, ok := h.ops[name]
	if !ok {
		req.WriteError(w, http.StatusBadRequest, &json2.Error{
			Code:    json2.E_NO_METHOD,
			Message: fmt.Sprintf("method %q not found", method),
		})
		return
	}
	in := op.newIn()
	if err := req.ReadRequest(in); err != nil {
		req.WriteError(w, http.StatusBadRequest, err)
		return
	}
	ctx := withToken(r.Context(), bearerToken(r.Header.Get("Authorization")))
	out, err := op.call(ctx, in)
	if err != nil {
		st := status.Convert(err)
		req.WriteError(w, http.StatusBadRequest, &json2.Error{
			Code:    wire.JSONRPCCode(st.Code()),
			Message: st.Message(),
		})
		return
	}
	req.WriteResponse(w, out)
}
