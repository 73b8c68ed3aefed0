// Package debug is the core's lightweight diagnostic sink. It never
// decides policy about errors — the pipeline always returns a proper
// error or warning record — it only gives every stage a cheap way to
// leave a breadcrumb trail when a caller opts in.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug is a build flag that can be overridden at link time:
// go build -ldflags "-X github.com/sibyllinesoft/valknut-go/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	debugOutput io.Writer
	debugFile   *os.File
	debugMutex  sync.Mutex
)

// SetOutput sets a custom writer for debug output. Pass nil to disable it.
func SetOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitLogFile initializes debug logging to a timestamped file under the
// OS temp directory and returns its path. Call CloseLogFile when done.
func InitLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "valknut-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseLogFile closes the debug log file if one is open.
func CloseLogFile() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsEnabled reports whether debug output is active, either via the build
// flag or the DEBUG environment variable.
func IsEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf writes a debug line when enabled and a sink is configured.
func Printf(format string, args ...interface{}) {
	if !IsEnabled() {
		return
	}
	if w := writer(); w != nil {
		fmt.Fprintf(w, "[DEBUG] "+format+"\n", args...)
	}
}

// Log writes a component-tagged debug line, e.g. Log("clone/phase1", "...").
func Log(component, format string, args ...interface{}) {
	if !IsEnabled() {
		return
	}
	if w := writer(); w != nil {
		fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
	}
}
