// Package testutil provides a scriptable stand-in for a Chrome DevTools
// endpoint.
package testutil

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// PageTargetID and PageSessionID identify the single page FakeChrome exposes.
const (
	PageTargetID  = "page-1"
	PageSessionID = "session-1"
)

// Handler answers one CDP method. A non-nil error becomes a protocol error
// response.
type Handler func(params json.RawMessage) (interface{}, error)

// Call is a command received by FakeChrome.
type Call struct {
	SessionID string
	Method    string
	Params    json.RawMessage
}

// FakeChrome serves /json/version and a browser WebSocket endpoint that
// answers CDP commands from registered handlers. Unregistered methods
// succeed with an empty result.
type FakeChrome struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
	conn     *websocket.Conn

	writeMu sync.Mutex
}

// StartChrome starts a FakeChrome that is shut down when the test ends.
func StartChrome(t testing.TB) *FakeChrome {
	t.Helper()

	f := &FakeChrome{handlers: make(map[string]Handler)}
	f.Handle("Target.getTargets", func(json.RawMessage) (interface{}, error) {
		return map[string]interface{}{
			"targetInfos": []map[string]interface{}{
				{"targetId": "worker-1", "type": "service_worker", "url": "https://example.test/sw.js"},
				{"targetId": PageTargetID, "type": "page", "title": "", "url": "about:blank"},
			},
		}, nil
	})
	f.Handle("Target.attachToTarget", func(json.RawMessage) (interface{}, error) {
		return map[string]string{"sessionId": PageSessionID}, nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"Browser":              "HeadlessChrome/fake",
			"webSocketDebuggerUrl": "ws://" + r.Host + "/devtools/browser/fake",
		})
	})
	mux.HandleFunc("/devtools/browser/fake", f.serveWS)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// Handle registers h for method, replacing any previous handler.
func (f *FakeChrome) Handle(method string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

// HostPort returns the address clients pass to chrome.Connect.
func (f *FakeChrome) HostPort() (string, int) {
	host, portStr, _ := net.SplitHostPort(strings.TrimPrefix(f.server.URL, "http://"))
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Calls returns the commands received so far.
func (f *FakeChrome) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Methods returns the method names received so far, in order.
func (f *FakeChrome) Methods() []string {
	calls := f.Calls()
	methods := make([]string, 0, len(calls))
	for _, c := range calls {
		methods = append(methods, c.Method)
	}
	return methods
}

// Emit sends an event on the page session.
func (f *FakeChrome) Emit(method string, params interface{}) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no client connected")
	}

	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return f.write(conn, map[string]interface{}{
		"method":    method,
		"sessionId": PageSessionID,
		"params":    json.RawMessage(data),
	})
}

// DropConnection closes the client connection from the browser side.
func (f *FakeChrome) DropConnection() {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Close shuts the server down.
func (f *FakeChrome) Close() {
	f.DropConnection()
	f.server.Close()
}

// EvalResult wraps v the way Runtime.evaluate returns a by-value result.
func EvalResult(v interface{}) map[string]interface{} {
	return map[string]interface{}{"result": map[string]interface{}{"value": v}}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (f *FakeChrome) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	defer conn.Close()

	for {
		var req struct {
			ID        int64           `json:"id"`
			SessionID string          `json:"sessionId"`
			Method    string          `json:"method"`
			Params    json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		f.mu.Lock()
		f.calls = append(f.calls, Call{SessionID: req.SessionID, Method: req.Method, Params: req.Params})
		h := f.handlers[req.Method]
		f.mu.Unlock()

		resp := map[string]interface{}{"id": req.ID}
		if req.SessionID != "" {
			resp["sessionId"] = req.SessionID
		}
		var result interface{} = map[string]interface{}{}
		if h != nil {
			result, err = h(req.Params)
		}
		if err != nil {
			resp["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
		} else {
			resp["result"] = result
		}
		if err := f.write(conn, resp); err != nil {
			return
		}
	}
}

func (f *FakeChrome) write(conn *websocket.Conn, v interface{}) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return conn.WriteJSON(v)
}
