// Package errlog reports errors to a remote collection endpoint. Reports are
// fire-and-forget: they never block the caller and the response is ignored.
package errlog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/commentron/commentron/internal/logger"
)

var (
	mu       sync.RWMutex
	endpoint string
	client   = &http.Client{Timeout: 10 * time.Second}
)

type report struct {
	Context string `json:"context"`
	Error   string `json:"error"`
	TS      string `json:"ts"`
}

// Init sets the remote endpoint. An empty URL disables remote reporting;
// errors are still logged locally.
func Init(url string) {
	mu.Lock()
	endpoint = url
	mu.Unlock()
}

// Report logs the error locally and ships it to the remote endpoint in the
// background.
func Report(label string, err error) {
	if err == nil {
		return
	}
	logger.Error("reported error", "context", label, "error", err)

	mu.RLock()
	url := endpoint
	mu.RUnlock()
	if url == "" {
		return
	}

	body, marshalErr := json.Marshal(report{
		Context: label,
		Error:   err.Error(),
		TS:      time.Now().UTC().Format(time.RFC3339),
	})
	if marshalErr != nil {
		return
	}

	go func() {
		resp, postErr := client.Post(url, "application/json", bytes.NewReader(body))
		if postErr != nil {
			logger.Debug("error report delivery failed", "error", postErr)
			return
		}
		resp.Body.Close()
	}()
}
