package query_test

import (
	"strings"
	"testing"

	"txledger/internal/amount"
	"txledger/internal/ledger"
	"txledger/internal/query"
)

func TestWriteSnapshots(t *testing.T) {
	snaps := []ledger.Snapshot{
		{
			Client:    1,
			Available: amount.MustParse("1.5"),
			Held:      amount.Zero(),
			Total:     amount.MustParse("1.5"),
		},
		{
			Client:    2,
			Available: amount.Zero(),
			Held:      amount.MustParse("0.0001"),
			Total:     amount.MustParse("0.0001"),
			Locked:    true,
		},
	}

	var sb strings.Builder
	if err := query.WriteSnapshots(&sb, snaps); err != nil {
		t.Fatalf("WriteSnapshots failed: %v", err)
	}

	want := "client_id,available,held,total,locked\n" +
		"1,1.5,0,1.5,false\n" +
		"2,0,0.0001,0.0001,true\n"
	if sb.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestWriteSnapshotsEmpty(t *testing.T) {
	var sb strings.Builder
	if err := query.WriteSnapshots(&sb, nil); err != nil {
		t.Fatalf("WriteSnapshots failed: %v", err)
	}
	if sb.String() != "client_id,available,held,total,locked\n" {
		t.Errorf("got %q, want header only", sb.String())
	}
}
