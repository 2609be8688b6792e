package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/lms-gateway/internal/observability/statsd"
	"github.com/target/lms-gateway/internal/ports"
)

func TestEmitGateDecision(t *testing.T) {
	var rec statsd.Recorder
	EmitGateDecision(&rec, GateDecision{
		Decision: "redirect_login",
		Class:    "admin-only",
		Reason:   "no_credential",
		Duration: 2 * time.Millisecond,
	})

	counts := rec.Named("gate.decision")
	require.Len(t, counts, 1)
	assert.Equal(t, map[string]string{
		"decision": "redirect_login",
		"class":    "admin-only",
		"reason":   "no_credential",
	}, counts[0].Tags)
	require.Len(t, rec.Named("gate.duration"), 1)
}

func TestEmitGateDecision_NoDuration(t *testing.T) {
	var rec statsd.Recorder
	EmitGateDecision(&rec, GateDecision{Decision: "allow"})
	assert.Len(t, rec.Samples(), 1)

	EmitGateDecision(nil, GateDecision{Decision: "allow"})
}

func TestEmitIdentityLookup(t *testing.T) {
	var rec statsd.Recorder
	EmitIdentityLookup(&rec, IdentityLookup{Duration: time.Millisecond})
	EmitIdentityLookup(&rec, IdentityLookup{
		Duration: time.Millisecond,
		Err:      fmt.Errorf("backend 503: %w", ports.ErrUpstreamUnavailable),
	})

	got := rec.Named("gate.identity.duration")
	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{"result": "success"}, got[0].Tags)
	assert.Equal(t, map[string]string{"result": "error", "error_class": "upstream_unavailable"}, got[1].Tags)
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "1"}
	cp := CloneTags(src)
	cp["a"] = "2"
	assert.Equal(t, "1", src["a"])
}
