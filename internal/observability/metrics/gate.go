package metrics

import (
	"time"

	obserrors "github.com/target/lms-gateway/internal/observability/errors"
	"github.com/target/lms-gateway/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// GateDecision captures one access gate evaluation.
type GateDecision struct {
	Decision string
	Class    string
	Reason   string
	Duration time.Duration
}

// EmitGateDecision counts the decision and, when known, times the evaluation.
func EmitGateDecision(sink statsd.Sink, in GateDecision) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"decision": in.Decision,
		"class":    in.Class,
		"reason":   in.Reason,
	}
	sink.Count("gate.decision", 1, tags)

	if in.Duration > 0 {
		sink.Timing("gate.duration", in.Duration, CloneTags(tags))
	}
}

// IdentityLookup captures one call to the identity endpoint.
type IdentityLookup struct {
	Duration time.Duration
	Err      error
}

// EmitIdentityLookup times an identity lookup, tagging the error class on failure.
func EmitIdentityLookup(sink statsd.Sink, in IdentityLookup) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": ResultSuccess}
	if in.Err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Timing("gate.identity.duration", in.Duration, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
