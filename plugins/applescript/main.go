// Command applescript is a visionctl action plugin that runs AppleScript.
// The "applescript" action runs params.script; the named system actions run
// fixed scripts for volume, brightness and media keys.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
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

type scriptParams struct {
	Script string `json:"script"`
}

var systemScripts = map[string]string{
	"volume-up":        `set volume output volume ((output volume of (get volume settings)) + 10)`,
	"volume-down":      `set volume output volume ((output volume of (get volume settings)) - 10)`,
	"volume-mute":      `set volume output muted (not (output muted of (get volume settings)))`,
	"brightness-up":    `tell application "System Events" to key code 144`,
	"brightness-down":  `tell application "System Events" to key code 145`,
	"media-play-pause": `tell application "System Events" to key code 100`,
	"media-next":       `tell application "System Events" to key code 101`,
	"media-prev":       `tell application "System Events" to key code 98`,
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
	if script, ok := systemScripts[req.Action]; ok {
		return runAppleScript(script)
	}
	if req.Action != "applescript" {
		return fmt.Errorf("unknown action: %s", req.Action)
	}

	var p scriptParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return fmt.Errorf("parse params: %w", err)
		}
	}
	if strings.TrimSpace(p.Script) == "" {
		return errors.New("script is required")
	}
	return runAppleScript(p.Script)
}

func respond(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func runAppleScript(script string) error {
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
