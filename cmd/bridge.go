package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nahidn4p/segdl/internal/config"
)

// portFilePath is where a running `segdl serve` publishes the port its
// HTTP bridge listens on, mirroring
// surge-downloader-surge/cmd/root.go's saveActivePort/readActivePort
// idiom (there used for browser-extension discovery, here for CLI ->
// daemon handoff).
func portFilePath() string {
	return filepath.Join(config.GetSurgeDir(), "port")
}

func savePort(port int) error {
	return os.WriteFile(portFilePath(), []byte(fmt.Sprintf("%d", port)), 0o644)
}

func clearPort() {
	os.Remove(portFilePath())
}

// activeDaemonPort returns the port of a running daemon, or 0 if none is
// reachable.
func activeDaemonPort() int {
	data, err := os.ReadFile(portFilePath())
	if err != nil {
		return 0
	}
	var port int
	if _, err := fmt.Sscanf(string(data), "%d", &port); err != nil {
		return 0
	}

	client := http.Client{Timeout: 300 * time.Millisecond}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0
	}
	return port
}

// daemonRequest sends body as JSON with method to path on the running daemon and
// decodes the JSON response into out (if non-nil).
func daemonRequest(port int, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, fmt.Sprintf("http://127.0.0.1:%d%s", port, path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
