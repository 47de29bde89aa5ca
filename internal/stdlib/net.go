package stdlib

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"flowlang/internal/errs"
	"flowlang/internal/value"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// wsManager tracks open websocket connections by handle.
type wsManager struct {
	mu    sync.Mutex
	next  int
	conns map[string]*websocket.Conn
}

func newWSManager() *wsManager {
	return &wsManager{conns: make(map[string]*websocket.Conn)}
}

func (m *wsManager) add(conn *websocket.Conn) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("ws-%d", m.next)
	m.conns[id] = conn
	return id
}

func (m *wsManager) get(id string) (*websocket.Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[id]
	return conn, ok
}

func (m *wsManager) remove(id string) (*websocket.Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[id]
	delete(m.conns, id)
	return conn, ok
}

func (r *Registry) registerNet() {
	r.register("http_get", func(args []value.Value) (value.Value, error) {
		if err := exactly("http_get", args, 1); err != nil {
			return nil, err
		}
		url, err := wantString("http_get", args[0])
		if err != nil {
			return nil, err
		}
		return httpRequest(http.MethodGet, url, "")
	})

	r.register("http_post", func(args []value.Value) (value.Value, error) {
		return httpWithBody("http_post", http.MethodPost, args)
	})
	r.register("http_put", func(args []value.Value) (value.Value, error) {
		return httpWithBody("http_put", http.MethodPut, args)
	})

	r.register("ws_connect", func(args []value.Value) (value.Value, error) {
		if err := exactly("ws_connect", args, 1); err != nil {
			return nil, err
		}
		url, err := wantString("ws_connect", args[0])
		if err != nil {
			return nil, err
		}
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, derr := dialer.Dial(url, nil)
		if derr != nil {
			return nil, errs.Runtime("ws_connect %s: %v", url, derr)
		}
		return r.ws.add(conn), nil
	})

	r.register("ws_send", func(args []value.Value) (value.Value, error) {
		if err := exactly("ws_send", args, 2); err != nil {
			return nil, err
		}
		id, err := wantString("ws_send", args[0])
		if err != nil {
			return nil, err
		}
		msg, err := wantString("ws_send", args[1])
		if err != nil {
			return nil, err
		}
		conn, ok := r.ws.get(id)
		if !ok {
			return nil, errs.Runtime("ws_send: unknown connection %s", id)
		}
		if werr := conn.WriteMessage(websocket.TextMessage, []byte(msg)); werr != nil {
			return nil, errs.Runtime("ws_send: %v", werr)
		}
		return true, nil
	})

	r.register("ws_receive", func(args []value.Value) (value.Value, error) {
		if err := exactly("ws_receive", args, 1); err != nil {
			return nil, err
		}
		id, err := wantString("ws_receive", args[0])
		if err != nil {
			return nil, err
		}
		conn, ok := r.ws.get(id)
		if !ok {
			return nil, errs.Runtime("ws_receive: unknown connection %s", id)
		}
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return nil, errs.Runtime("ws_receive: %v", rerr)
		}
		return string(data), nil
	})

	r.register("ws_close", func(args []value.Value) (value.Value, error) {
		if err := exactly("ws_close", args, 1); err != nil {
			return nil, err
		}
		id, err := wantString("ws_close", args[0])
		if err != nil {
			return nil, err
		}
		conn, ok := r.ws.remove(id)
		if !ok {
			return nil, errs.Runtime("ws_close: unknown connection %s", id)
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return conn.Close() == nil, nil
	})
}

func httpWithBody(name, method string, args []value.Value) (value.Value, error) {
	if err := exactly(name, args, 2); err != nil {
		return nil, err
	}
	url, err := wantString(name, args[0])
	if err != nil {
		return nil, err
	}
	body, err := wantString(name, args[1])
	if err != nil {
		return nil, err
	}
	return httpRequest(method, url, body)
}

// httpRequest returns an object with status, body and ok fields.
func httpRequest(method, url, body string) (value.Value, error) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		return nil, errs.Runtime("%s %s: %v", method, url, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errs.Runtime("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Runtime("%s %s: reading body: %v", method, url, err)
	}
	out := value.NewObject()
	out.Fields["status"] = int64(resp.StatusCode)
	out.Fields["body"] = string(data)
	out.Fields["ok"] = resp.StatusCode >= 200 && resp.StatusCode < 300
	return out, nil
}
