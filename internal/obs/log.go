// Package obs carries the service-wide logging and metrics plumbing.
package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	setupLogger sync.Once
	std         *log.Logger
)

// Logger returns the process-wide line logger. Output is one JSON object per
// line with no prefix so collectors can parse it without stripping anything.
func Logger() *log.Logger {
	setupLogger.Do(func() {
		std = log.New(os.Stdout, "", 0)
	})
	return std
}

// LogRequest emits one structured log line. A ts field is stamped when the
// caller did not provide one.
func LogRequest(entry map[string]any) {
	if _, ok := entry["ts"]; !ok {
		entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	line, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log entry not serializable"}`)
		return
	}
	Logger().Println(string(line))
}
