package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/torosent/capfire/internal/metrics"
	"github.com/torosent/capfire/internal/search"
)

// RunRecord is one executed run in a results file.
type RunRecord struct {
	Label       string        `json:"label" yaml:"label"`
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	RPS         int           `json:"rps" yaml:"rps"`
	Stats       metrics.Stats `json:"stats" yaml:"stats"`
}

// LoadTestResults is the persisted form of a load-test session.
type LoadTestResults struct {
	ID        string      `json:"id" yaml:"id"`
	StartedAt time.Time   `json:"started_at" yaml:"started_at"`
	Endpoint  string      `json:"endpoint" yaml:"endpoint"`
	Requests  int         `json:"requests" yaml:"requests"`
	Runs      []RunRecord `json:"runs" yaml:"runs"`
}

// SearchResults is the persisted form of a search.
type SearchResults struct {
	ID             string        `json:"id" yaml:"id"`
	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	Endpoint       string        `json:"endpoint" yaml:"endpoint"`
	MaxConcurrency string        `json:"summary" yaml:"summary"`
	Result         search.Result `json:"result" yaml:"result"`
}

// NewID returns a sortable unique identifier for a session.
func NewID() string {
	return ulid.Make().String()
}

// WriteResultsFile writes v to path as JSON or YAML depending on the
// extension. The file is replaced atomically while an exclusive lock on
// path+".lock" is held, so concurrent sessions never interleave writes.
func WriteResultsFile(path string, v any) error {
	data, err := encodeResults(path, v)
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock results file: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(path + ".lock")
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write results file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write results file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace results file: %w", err)
	}
	return nil
}

func encodeResults(path string, v any) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode results: %w", err)
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode results: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode results: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported results file extension %q (use .json, .yaml or .yml)", filepath.Ext(path))
	}
}
