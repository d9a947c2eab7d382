package internaldefs

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("buckets (-want +got):\n%s", diff)
	}
}

func TestDefinitionsAreUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, d := range CounterDefs {
		if seen[d.Name] || !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("bad counter name %q", d.Name)
		}
		seen[d.Name] = true
	}
	if len(UpperBounds)+1 != len(BoundSuffix) {
		t.Fatal("bounds and suffixes disagree")
	}
}

type refreshState struct {
	running bool
	n       int
}

func (r refreshState) Refreshing() (bool, int) { return r.running, r.n }

func TestRefreshGauges(t *testing.T) {
	if _, _, ok := RefreshGauges(struct{}{}); ok {
		t.Fatal("plain value reported refresh state")
	}
	inFlight, waiters, ok := RefreshGauges(refreshState{running: true, n: 2})
	if !ok || inFlight != 1 || waiters != 2 {
		t.Fatalf("gauges = %d/%d/%v", inFlight, waiters, ok)
	}
	inFlight, _, _ = RefreshGauges(refreshState{})
	if inFlight != 0 {
		t.Fatalf("idle in-flight = %d", inFlight)
	}
}
