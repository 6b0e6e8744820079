package health

import (
	"context"
	"sort"
	"time"
)

// Pinger is implemented by dependencies that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	Provider   string
	Configured bool
	Checks     map[string]Pinger
	Timeout    time.Duration
}

// Report is the /healthz payload.
type Report struct {
	OK         bool              `json:"ok"`
	Provider   string            `json:"provider,omitempty"`
	Configured bool              `json:"configured"`
	Checks     map[string]string `json:"checks,omitempty"`
}

// NewService constructs a new health service.
func NewService(provider string, configured bool) *Service {
	return &Service{
		Provider:   provider,
		Configured: configured,
		Checks:     map[string]Pinger{},
		Timeout:    2 * time.Second,
	}
}

// Register adds a named dependency check.
func (s *Service) Register(name string, p Pinger) {
	if p == nil {
		return
	}
	if s.Checks == nil {
		s.Checks = map[string]Pinger{}
	}
	s.Checks[name] = p
}

// Status runs every check. A missing credential is reported but does not fail liveness.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true, Provider: s.Provider, Configured: s.Configured}
	if len(s.Checks) == 0 {
		return report
	}
	names := make([]string, 0, len(s.Checks))
	for name := range s.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report.Checks = make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.Timeout)
		err := s.Checks[name].Ping(checkCtx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}
