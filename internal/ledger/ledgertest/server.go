// Package ledgertest provides an in-memory ledger service for tests: it
// accepts event batches over the real wire protocol and serves the run
// queries back, so client and scheduler tests exercise the full
// append-then-project cycle without a network.
package ledgertest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/warpmetrics/warp-coder/internal/ledger"
	"github.com/warpmetrics/warp-coder/internal/logger"
)

// eventSet mirrors the POST /v1/events payload.
type eventSet struct {
	Runs     []ledger.Run     `json:"runs,omitempty"`
	Groups   []ledger.Group   `json:"groups,omitempty"`
	Calls    []ledger.Call    `json:"calls,omitempty"`
	Links    []ledger.Link    `json:"links,omitempty"`
	Outcomes []ledger.Outcome `json:"outcomes,omitempty"`
	Acts     []ledger.Act     `json:"acts,omitempty"`
}

type envelope struct {
	D string `json:"d"`
}

type runDetail struct {
	Run      ledger.Run       `json:"run"`
	Groups   []ledger.Group   `json:"groups"`
	Links    []ledger.Link    `json:"links"`
	Outcomes []ledger.Outcome `json:"outcomes"`
	Acts     []ledger.Act     `json:"acts"`
}

// Server is the in-memory ledger. All exported state is guarded by the
// mutex; use the accessor methods from assertions.
type Server struct {
	mu sync.Mutex

	runs     []ledger.Run
	groups   []ledger.Group
	calls    []ledger.Call
	links    []ledger.Link
	outcomes []ledger.Outcome
	acts     []ledger.Act

	classifications map[string]string

	// failPosts makes the next N event posts fail with the given status.
	failPosts  int
	failStatus int

	httpServer *httptest.Server
}

// New starts an in-memory ledger, closed automatically when the test
// finishes.
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{classifications: make(map[string]string)}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.httpServer.Close)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Client returns a ledger client pointed at this server.
func (s *Server) Client() *ledger.Client {
	return ledger.NewClient(s.URL(), "test-key", logger.NewNop())
}

// FailNextPosts makes the next n POST /v1/events requests fail with the
// given status code.
func (s *Server) FailNextPosts(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPosts = n
	s.failStatus = status
}

// Runs returns every stored run record.
func (s *Server) Runs() []ledger.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Run(nil), s.runs...)
}

// Calls returns every stored pipeline-run record.
func (s *Server) Calls() []ledger.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Call(nil), s.calls...)
}

// OutcomesFor returns the outcome names appended to one container, in
// append order.
func (s *Server) OutcomesFor(containerID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, o := range s.outcomes {
		if o.ContainerID == containerID {
			names = append(names, o.Name)
		}
	}
	return names
}

// ActsNamed returns the acts with the given name.
func (s *Server) ActsNamed(name string) []ledger.Act {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Act
	for _, a := range s.acts {
		if a.Name == name {
			out = append(out, a)
		}
	}
	return out
}

// Classifications returns the registered outcome classifications.
func (s *Server) Classifications() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.classifications))
	for k, v := range s.classifications {
		out[k] = v
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/events":
		s.handlePost(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/runs":
		s.handleListRuns(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/runs/"):
		s.handleRunDetail(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/acts":
		s.handleListActs(w, r)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/v1/outcomes/classifications/"):
		s.handleClassification(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.failPosts > 0 {
		s.failPosts--
		status := s.failStatus
		s.mu.Unlock()
		http.Error(w, "injected failure", status)
		return
	}
	s.mu.Unlock()

	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(env.D)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var set eventSet
	if err := json.Unmarshal(raw, &set); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.runs = append(s.runs, set.Runs...)
	s.groups = append(s.groups, set.Groups...)
	s.calls = append(s.calls, set.Calls...)
	s.links = append(s.links, set.Links...)
	s.outcomes = append(s.outcomes, set.Outcomes...)
	s.acts = append(s.acts, set.Acts...)
	s.mu.Unlock()

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")

	s.mu.Lock()
	var runs []ledger.Run
	for _, run := range s.runs {
		if label == "" || run.Label == label {
			runs = append(runs, run)
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"runs": runs})
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")

	s.mu.Lock()
	defer s.mu.Unlock()

	var detail runDetail
	found := false
	for _, run := range s.runs {
		if run.ID == id {
			detail.Run = run
			found = true
			break
		}
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	// Containers of this run: the run itself plus every linked sub-run.
	containers := map[string]struct{}{id: {}}
	for _, link := range s.links {
		if link.ParentID == id {
			containers[link.ChildID] = struct{}{}
			detail.Links = append(detail.Links, link)
		}
	}
	for _, group := range s.groups {
		if _, ok := containers[group.ID]; ok {
			detail.Groups = append(detail.Groups, group)
		}
	}
	outcomeIDs := make(map[string]struct{})
	for _, outcome := range s.outcomes {
		if _, ok := containers[outcome.ContainerID]; ok {
			detail.Outcomes = append(detail.Outcomes, outcome)
			outcomeIDs[outcome.ID] = struct{}{}
		}
	}
	for _, act := range s.acts {
		if _, ok := outcomeIDs[act.OutcomeID]; ok {
			detail.Acts = append(detail.Acts, act)
		}
	}

	writeJSON(w, detail)
}

func (s *Server) handleListActs(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	s.mu.Lock()
	var acts []ledger.Act
	for _, act := range s.acts {
		if name == "" || act.Name == name {
			acts = append(acts, act)
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"acts": acts})
}

func (s *Server) handleClassification(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/outcomes/classifications/")

	var body struct {
		Classification string `json:"classification"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.classifications[name] = body.Classification
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
