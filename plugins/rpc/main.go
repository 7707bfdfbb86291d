// Command rpc is a visionctl action plugin that POSTs JSON to a local RPC
// host. params.method is the path, params.params (or the older
// params.args) the body. The host is params.url, then $VISIONCTL_RPC_URL,
// then http://localhost:18795.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:18795"
	requestTimeout = 5 * time.Second
)

type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture,omitempty"`
	Combo   string          `json:"combo,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type params struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Args   json.RawMessage `json:"args"`
	URL    string          `json:"url"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(nil, fmt.Errorf("decode request: %w", err))
		return
	}
	client := &http.Client{Timeout: requestTimeout}
	respond(handle(client, req, os.Getenv("VISIONCTL_RPC_URL")))
}

func handle(client *http.Client, req Request, envURL string) (json.RawMessage, error) {
	if req.Action != "openclaw_rpc" {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}

	var p params
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
	}
	if strings.TrimSpace(p.Method) == "" {
		return nil, errors.New("method is required")
	}

	base := p.URL
	if base == "" {
		base = envURL
	}
	if base == "" {
		base = defaultBaseURL
	}
	return call(client, strings.TrimRight(base, "/")+p.Method, p.body())
}

// body prefers params over args; neither gives an empty object.
func (p params) body() []byte {
	for _, raw := range []json.RawMessage{p.Params, p.Args} {
		if s := strings.TrimSpace(string(raw)); s != "" && s != "null" && s != "{}" {
			return raw
		}
	}
	return []byte("{}")
}

func call(client *http.Client, url string, body []byte) (json.RawMessage, error) {
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		var timeout interface{ Timeout() bool }
		if errors.As(err, &timeout) && timeout.Timeout() {
			return nil, errors.New("rpc timeout")
		}
		return nil, fmt.Errorf("cannot connect to rpc host: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rpc response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc failed with status %d", resp.StatusCode)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		quoted, _ := json.Marshal(string(data))
		return quoted, nil
	}
	return data, nil
}

func respond(data json.RawMessage, err error) {
	resp := Response{Success: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
