package report

import (
	"encoding/json"
	"sort"
	"sync"
)

// Usage holds every instance recorded under one key.
type Usage struct {
	Instances []ComponentInstance `json:"instances"`
}

// Report aggregates component instances by key.
//
// Merge is safe for concurrent use. Readers (Keys, Instances, JSON
// encoding) take the same lock, so a report may be inspected while a scan
// is still running; formatters are expected to run after the scan.
type Report struct {
	mu    sync.Mutex
	usage map[string]*Usage
	total int
}

// New returns an empty report.
func New() *Report {
	return &Report{usage: make(map[string]*Usage)}
}

// Merge appends instances under their keys. Nothing is deduplicated:
// merging the same slice twice records every instance twice.
func (r *Report) Merge(instances ...ComponentInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, inst := range instances {
		key := inst.Key()
		u, ok := r.usage[key]
		if !ok {
			u = &Usage{}
			r.usage[key] = u
		}
		u.Instances = append(u.Instances, inst)
		r.total++
	}
}

// Keys returns all keys in ascending order.
func (r *Report) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.usage))
	for k := range r.usage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Instances returns a copy of the instances recorded under key.
func (r *Report) Instances(key string) []ComponentInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.usage[key]
	if !ok {
		return nil
	}
	out := make([]ComponentInstance, len(u.Instances))
	copy(out, u.Instances)
	return out
}

// Len returns the number of distinct keys.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.usage)
}

// Total returns the number of recorded instances across all keys.
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

type wireReport struct {
	Usage map[string]*Usage `json:"usage"`
}

// MarshalJSON encodes {"usage": {key: {"instances": [...]}}}. encoding/json
// sorts map keys, so the output is deterministic.
func (r *Report) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(wireReport{Usage: r.usage})
}

// UnmarshalJSON replaces the report's contents with a decoded report.
func (r *Report) UnmarshalJSON(data []byte) error {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.usage = make(map[string]*Usage, len(w.Usage))
	r.total = 0
	for k, u := range w.Usage {
		if u == nil {
			u = &Usage{}
		}
		r.usage[k] = u
		r.total += len(u.Instances)
	}
	return nil
}
