package skills

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Failure is a single skill that was left out of the index.
type Failure struct {
	Path   string `json:"path" yaml:"path"`
	Kind   string `json:"kind" yaml:"kind"`
	Reason string `json:"reason" yaml:"reason"`
	err    error
}

// Err returns the typed error behind the failure. A failure decoded from
// a snapshot has no typed error, so its reason is returned instead.
func (f Failure) Err() error {
	if f.err == nil && f.Reason != "" {
		return errors.New(f.Reason)
	}
	return f.err
}

// Report describes one catalog build. Failures keep discovery order.
type Report struct {
	BuildID    string    `json:"build_id" yaml:"build_id"`
	Root       string    `json:"root" yaml:"root"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Skills     int       `json:"skills" yaml:"skills"`
	Failures   []Failure `json:"failures" yaml:"failures"`
}

func (r *Report) record(path string, err error) {
	r.Failures = append(r.Failures, Failure{
		Path:   path,
		Kind:   Kind(err),
		Reason: err.Error(),
		err:    err,
	})
}

// OK reports whether every discovered skill made it into the index.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Err folds all failures into a single error, or nil when there are none.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, f := range r.Failures {
		result = multierror.Append(result, f.Err())
	}
	return result.ErrorOrNil()
}

// Duration is the wall time the build took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
