package health

import (
	"context"

	"github.com/huntkil/lexis/internal/index"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckRebuilding indicates an index that is being rebuilt.
	CheckRebuilding CheckResult = "rebuilding"
)

// Report aggregates health check results. Index checks are keyed "index:<type>".
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	indexes IndexLister
}

// New creates a Service. db can be nil when no external store is configured.
func New(db DBPinger, indexes IndexLister) *Service {
	return &Service{db: db, indexes: indexes}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["store"] = CheckError
		} else {
			checks["store"] = CheckOK
		}
	}

	for _, ix := range s.indexes.Indexes() {
		state, _ := ix.State()
		switch state {
		case index.StateReady:
			checks["index:"+ix.Name()] = CheckOK
		case index.StateRebuilding:
			checks["index:"+ix.Name()] = CheckRebuilding
		default:
			checks["index:"+ix.Name()] = CheckError
		}
	}

	failed := 0
	for _, v := range checks {
		if v != CheckOK {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
