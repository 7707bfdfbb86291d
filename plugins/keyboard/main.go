// Command keyboard is a visionctl action plugin that injects key presses,
// text and mouse input.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-vgo/robotgo"
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

// params accepts either "keys" (modifiers first, key last) or "key" with
// "modifiers".
type params struct {
	Keys      []string `json:"keys"`
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
	Text      string   `json:"text"`
	Button    string   `json:"button"`
	Double    bool     `json:"double"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
}

var modifierAliases = map[string]string{
	"command": "cmd",
	"option":  "alt",
	"control": "ctrl",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("decode request: %w", err))
		return
	}
	respond(handle(req))
}

func handle(req Request) error {
	var p params
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return fmt.Errorf("parse params: %w", err)
		}
	}

	switch req.Action {
	case "keyboard", "keystroke", "shortcut":
		key, mods, err := p.chord()
		if err != nil {
			return err
		}
		if len(mods) == 0 {
			return robotgo.KeyTap(key)
		}
		return robotgo.KeyTap(key, mods)
	case "type":
		if p.Text == "" {
			return errors.New("text is required")
		}
		robotgo.TypeStr(p.Text)
		return nil
	case "mouse_click":
		button := p.Button
		if button == "" {
			button = "left"
		}
		robotgo.Click(button, p.Double)
		return nil
	case "mouse_move":
		robotgo.Move(p.X, p.Y)
		return nil
	default:
		return fmt.Errorf("unknown action: %s", req.Action)
	}
}

func (p params) chord() (string, []string, error) {
	keys := p.Keys
	if len(keys) == 0 && p.Key != "" {
		keys = append(append([]string{}, p.Modifiers...), p.Key)
	}
	if len(keys) == 0 {
		return "", nil, errors.New("key is required")
	}

	mods := make([]string, 0, len(keys)-1)
	for _, m := range keys[:len(keys)-1] {
		m = strings.ToLower(strings.TrimSpace(m))
		if alias, ok := modifierAliases[m]; ok {
			m = alias
		}
		mods = append(mods, m)
	}
	return strings.ToLower(keys[len(keys)-1]), mods, nil
}

func respond(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
