package debug

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/xyenon/company-lens/internal/paths"
	"github.com/xyenon/company-lens/pkg"
)

const maxLogSize = 5 * 1024 * 1024

var (
	enabled   bool
	mu        sync.RWMutex
	logger    *log.Logger
	logFile   *os.File
	initOnce  sync.Once
	initError error
)

// Rotator keeps the debug log bounded. It is checked once per process, when
// logging is first enabled.
var Rotator = pkg.NewLogRotator(&pkg.LogRotateConfig{
	MaxSize:    maxLogSize,
	MaxBackups: 3,
	MaxAge:     7,
	Compress:   true,
})

func Enable(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e {
		initOnce.Do(initLogger)
	}
}

func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Path is the file debug entries are appended to.
func Path() string {
	return paths.GetDebugLogFile()
}

func initLogger() {
	path := Path()
	if err := paths.EnsureDir(path); err != nil {
		initError = err
		return
	}
	if err := Rotator.CheckAndRotate(path); err != nil {
		fmt.Fprintf(os.Stderr, "Debug log rotation failed: %v\n", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		initError = fmt.Errorf("failed to open debug log file: %w", err)
		return
	}

	logFile = f
	logger = log.New(f, "", 0)
}

// Log appends one JSON object to the debug log: the message under "log",
// a timestamp under "date", and every field of data.
func Log(message string, data map[string]any) {
	if !Enabled() {
		return
	}

	if initError != nil {
		fmt.Fprintf(os.Stderr, "Debug logging failed to initialize: %v\n", initError)
		mu.Lock()
		enabled = false
		mu.Unlock()
		return
	}

	mu.RLock()
	l := logger
	mu.RUnlock()

	if l == nil {
		return
	}

	entry := make(map[string]any, len(data)+2)
	for k, v := range data {
		if e, ok := v.(error); ok {
			v = e.Error()
		}
		entry[k] = v
	}
	entry["date"] = time.Now().Format(time.RFC3339)
	entry["log"] = message

	line, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal debug log: %v\n", err)
		return
	}

	l.Println(string(line))
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
		logger = nil
	}
}
