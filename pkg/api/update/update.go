package update

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/metrics"
)

// apiVersion is reported in every response.
const apiVersion = "v1"

// RunFunc performs one update run restricted to images, or over every image when images is empty.
type RunFunc func(ctx context.Context, images []string) (*metrics.Metric, error)

// Handler triggers update runs via HTTP.
type Handler struct {
	fn   RunFunc
	Path string
	lock chan bool
}

// New creates the /v1/update handler.
//
// Parameters:
//   - fn: Update run.
//   - updateLock: Lock shared with the scheduler, or nil to create one.
//
// Returns:
//   - *Handler: Handler serializing runs on the lock.
func New(fn RunFunc, updateLock chan bool) *Handler {
	if updateLock == nil {
		updateLock = make(chan bool, 1)
		updateLock <- true
	}

	return &Handler{
		fn:   fn,
		Path: "/v1/update",
		lock: updateLock,
	}
}

// Handle runs an update and responds with its summary.
//
// Requests naming images with one or more "image" query parameters (comma-separated
// values allowed) wait for a running update to finish. Requests for a full run get
// 429 Too Many Requests while another run is in progress.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Info("Received HTTP API update request")

	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		logrus.WithError(err).Debug("Failed to read request body")
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)

		return
	}

	images := imagesFromQuery(r)

	if len(images) > 0 {
		select {
		case v := <-h.lock:
			defer func() { h.lock <- v }()
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)

			return
		}

		logrus.WithField("images", images).Info("Executing targeted update")
	} else {
		select {
		case v := <-h.lock:
			defer func() { h.lock <- v }()
		default:
			logrus.Debug("Skipped update, another update already in progress")
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "another update is already running",
				"api_version": apiVersion,
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
			})

			return
		}

		logrus.Info("Executing full update")
	}

	start := time.Now()
	metric, err := h.fn(r.Context(), images)
	duration := time.Since(start)

	response := map[string]any{
		"timing": map[string]any{
			"duration_ms": duration.Milliseconds(),
			"duration":    duration.String(),
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"api_version": apiVersion,
	}

	if err != nil {
		response["error"] = err.Error()
	}

	if metric == nil {
		writeJSON(w, http.StatusInternalServerError, response)

		return
	}

	response["summary"] = map[string]any{
		"scanned":            metric.Scanned,
		"stale":              metric.Stale,
		"updated":            metric.Updated,
		"failed":             metric.Failed,
		"skipped":            metric.Skipped,
		"containers_updated": metric.ContainersUpdated,
		"containers_failed":  metric.ContainersFailed,
	}

	writeJSON(w, http.StatusOK, response)
}

// imagesFromQuery collects the image names of "image" query parameters.
func imagesFromQuery(r *http.Request) []string {
	var images []string

	for _, value := range r.URL.Query()["image"] {
		for image := range strings.SplitSeq(value, ",") {
			if image = strings.TrimSpace(image); image != "" {
				images = append(images, image)
			}
		}
	}

	return images
}

// writeJSON writes body as JSON with status.
func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
