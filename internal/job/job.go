// Package job defines the unit of work dequeued from Redis and the handle
// middleware and handlers use to observe and mutate it during a dispatch.
package job

import (
	"encoding/json"
	"time"
)

// RetryInfo carries the Sidekiq-compatible retry bookkeeping a producer (or
// a retry middleware) attaches to a job.
type RetryInfo struct {
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ErrorClass   string     `json:"error_class,omitempty"`
	FailedAt     time.Time  `json:"failed_at"`
	RetriedAt    *time.Time `json:"retried_at,omitempty"`
}

// reservedFields are the wire keys owned by named struct fields; everything
// else round-trips verbatim through Extra.
var reservedFields = map[string]struct{}{
	"class":      {},
	"args":       {},
	"queue":      {},
	"jid":        {},
	"retry_info": {},
}

// Job is the unit of work popped from a Redis queue list.
//
// Namespace is stamped by the core after dequeue (spec: "populated by the
// core after dequeue; not serialized by producers") so it is deliberately
// excluded from the JSON wire format via the custom (Un)MarshalJSON below.
type Job struct {
	Class     string            `json:"-"`
	Args      []json.RawMessage `json:"-"`
	Queue     string            `json:"-"`
	JID       string            `json:"-"`
	RetryInfo *RetryInfo        `json:"-"`
	Namespace string            `json:"-"`

	// Extra preserves any producer-defined fields this core doesn't know
	// about, so decode-then-encode round-trips them unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// New builds a Job the way a test or an in-process producer would; the core
// itself never constructs jobs — enqueueing is left to whatever pushes onto
// the Redis queue lists.
func New(class, queue, jid string, args ...json.RawMessage) *Job {
	return &Job{
		Class: class,
		Args:  args,
		Queue: queue,
		JID:   jid,
	}
}

// MarshalJSON re-assembles the wire object from named fields plus Extra.
func (j *Job) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(j.Extra)+5)
	for k, v := range j.Extra {
		out[k] = v
	}

	classBytes, err := json.Marshal(j.Class)
	if err != nil {
		return nil, err
	}
	out["class"] = classBytes

	queueBytes, err := json.Marshal(j.Queue)
	if err != nil {
		return nil, err
	}
	out["queue"] = queueBytes

	jidBytes, err := json.Marshal(j.JID)
	if err != nil {
		return nil, err
	}
	out["jid"] = jidBytes

	args := j.Args
	if args == nil {
		args = []json.RawMessage{}
	}
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out["args"] = argsBytes

	if j.RetryInfo != nil {
		riBytes, err := json.Marshal(j.RetryInfo)
		if err != nil {
			return nil, err
		}
		out["retry_info"] = riBytes
	} else {
		delete(out, "retry_info")
	}

	return json.Marshal(out)
}

// UnmarshalJSON splits the wire object into named fields and Extra.
func (j *Job) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["class"]; ok {
		if err := json.Unmarshal(v, &j.Class); err != nil {
			return err
		}
	}
	if v, ok := raw["queue"]; ok {
		if err := json.Unmarshal(v, &j.Queue); err != nil {
			return err
		}
	}
	if v, ok := raw["jid"]; ok {
		if err := json.Unmarshal(v, &j.JID); err != nil {
			return err
		}
	}
	if v, ok := raw["args"]; ok {
		if err := json.Unmarshal(v, &j.Args); err != nil {
			return err
		}
	}
	if v, ok := raw["retry_info"]; ok {
		var ri RetryInfo
		if err := json.Unmarshal(v, &ri); err != nil {
			return err
		}
		j.RetryInfo = &ri
	}

	j.Extra = make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if _, reserved := reservedFields[k]; reserved {
			continue
		}
		j.Extra[k] = v
	}

	return nil
}
