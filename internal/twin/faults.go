package twin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// anyPath matches every request.
const anyPath = "*"

// Fault is a canned response returned instead of the real handler.
type Fault struct {
	Status     int    `json:"status"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Message    string `json:"message,omitempty"`
}

// faultQueue holds faults per path, consumed in FIFO order.
type faultQueue struct {
	mu     sync.Mutex
	queued map[string][]Fault
}

func newFaultQueue() *faultQueue {
	return &faultQueue{queued: make(map[string][]Fault)}
}

// push appends faults for path.
func (q *faultQueue) push(path string, faults ...Fault) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queued[path] = append(q.queued[path], faults...)
}

// pop removes and returns the next fault for path, preferring an exact
// match over the wildcard.
func (q *faultQueue) pop(path string) (Fault, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, key := range []string{path, anyPath} {
		if fs := q.queued[key]; len(fs) > 0 {
			q.queued[key] = fs[1:]
			if len(q.queued[key]) == 0 {
				delete(q.queued, key)
			}
			return fs[0], true
		}
	}
	return Fault{}, false
}

func (q *faultQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queued = make(map[string][]Fault)
}

func (q *faultQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, fs := range q.queued {
		n += len(fs)
	}
	return n
}

// middleware short-circuits requests that have a queued fault. Paths are
// matched after stripping prefix.
func (q *faultQueue) middleware(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := strings.TrimPrefix(r.URL.Path, prefix)
			f, ok := q.pop(path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if f.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(f.RetryAfter))
			}
			msg := f.Message
			if msg == "" {
				msg = http.StatusText(f.Status)
			}
			key := "error"
			if f.Status == http.StatusUnauthorized {
				key = "detail"
			}
			writeJSON(w, f.Status, map[string]string{key: msg})
		})
	}
}

// injectRequest is the body of POST /admin/faults.
type injectRequest struct {
	Path   string  `json:"path"`
	Faults []Fault `json:"faults"`
}

// InjectFaults queues faults for path ("*" for any path). Exposed for tests
// that hold the Twin directly.
func (t *Twin) InjectFaults(path string, faults ...Fault) {
	t.faults.push(path, faults...)
}

func (t *Twin) handleInjectFaults(w http.ResponseWriter, r *http.Request) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Path == "" {
		req.Path = anyPath
	}
	for _, f := range req.Faults {
		if f.Status < 400 || f.Status > 599 {
			writeError(w, http.StatusBadRequest, "fault status must be 4xx or 5xx")
			return
		}
	}

	t.faults.push(req.Path, req.Faults...)
	writeJSON(w, http.StatusCreated, map[string]int{"pending": t.faults.pending()})
}

func (t *Twin) handleClearFaults(w http.ResponseWriter, _ *http.Request) {
	t.faults.clear()
	w.WriteHeader(http.StatusNoContent)
}

func (t *Twin) handleReset(w http.ResponseWriter, _ *http.Request) {
	t.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes the backend's {"error": message} shape.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
