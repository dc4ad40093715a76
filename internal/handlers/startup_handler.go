package handlers

import (
	"net/http"
	"sync"
)

// Boot steps reported while the server initializes
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepTemplates  = "Loading templates"
	StepServices   = "Initializing services"
	StepCatalog    = "Seeding catalogue"
)

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// StartupStatus is the snapshot served by /readyz
type StartupStatus struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// Startup tracks initialization progress. It is the server's root handler
// from the first second: until the app handler is installed every request
// gets the progress report with 503.
type Startup struct {
	mu      sync.RWMutex
	current string
	steps   []StartupStep
	handler http.Handler
}

// NewStartup creates a tracker for the named steps
func NewStartup(steps ...string) *Startup {
	s := &Startup{current: "Initializing..."}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// Begin records the step now running
func (s *Startup) Begin(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// Complete marks a step as done
func (s *Startup) Complete(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.steps {
		if s.steps[i].Name == step {
			s.steps[i].Completed = true
			break
		}
	}
}

// Ready installs the app handler; from now on requests go through it
func (s *Startup) Ready(h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
	s.current = "Server ready"
}

// Status returns a copy of the current progress
func (s *Startup) Status() StartupStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := StartupStatus{
		Ready:   s.handler != nil,
		Current: s.current,
		Steps:   append([]StartupStep(nil), s.steps...),
	}
	completed := 0
	for _, step := range s.steps {
		if step.Completed {
			completed++
		}
	}
	switch {
	case status.Ready:
		status.Progress = 100
	case len(s.steps) > 0:
		status.Progress = completed * 100 / len(s.steps)
	}
	return status
}

func (s *Startup) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/readyz" {
		s.Readyz(w, r)
		return
	}

	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h == nil {
		w.Header().Set("Retry-After", "2")
		respondWithJSON(w, r, http.StatusServiceUnavailable, s.Status())
		return
	}
	h.ServeHTTP(w, r)
}

// Readyz answers 200 once the server is ready and 503 before
func (s *Startup) Readyz(w http.ResponseWriter, r *http.Request) {
	status := s.Status()
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, r, code, status)
}
