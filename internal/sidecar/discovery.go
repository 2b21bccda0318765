package sidecar

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// discoveryFileName is the sibling file the sidecar uses to coordinate
// "already running" detection across invocations (§6).
const discoveryFileName = ".agrafes_sidecar.json"

// discovery is the on-disk shape of the discovery file.
type discovery struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	PID       int    `json:"pid"`
	StartedAt string `json:"started_at"`
	DBPath    string `json:"db_path"`
	Token     string `json:"token,omitempty"`
}

func discoveryPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), discoveryFileName)
}

func readDiscovery(dbPath string) (*discovery, error) {
	data, err := os.ReadFile(discoveryPath(dbPath))
	if err != nil {
		return nil, err
	}
	var d discovery
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse discovery file: %w", err)
	}
	return &d, nil
}

func writeDiscovery(dbPath string, d *discovery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal discovery file: %w", err)
	}
	return os.WriteFile(discoveryPath(dbPath), data, 0600)
}

func removeDiscovery(dbPath string) error {
	err := os.Remove(discoveryPath(dbPath))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// processAlive reports whether pid names a live process on this host.
// Signal 0 performs existence/permission checks only, per the usual Unix
// idiom; it never actually signals the target.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// probeHealth reports whether a sidecar at host:port answers GET /health
// within the startup health budget (§5: ~1s per-request deadline).
func probeHealth(host string, port int) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	url := fmt.Sprintf("http://%s:%d/health", host, port)
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// freePort asks the OS for an unused loopback port, used when the caller
// requests port=0.
func freePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
