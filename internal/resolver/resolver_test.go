package resolver

import (
	"testing"

	"github.com/switcherapi/switcher-client-go/internal/snapshot"
	"github.com/switcherapi/switcher-client-go/internal/strategy"
)

func buildSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	return snapshot.Build(snapshot.Domain{
		Name:      "My Domain",
		Version:   1,
		Activated: true,
		Groups: []snapshot.Group{
			{
				Name:      "G1",
				Activated: true,
				Configs: []snapshot.Config{
					{
						Key:       "FF2FOR2020",
						Activated: true,
						Strategies: []snapshot.StrategyConfig{
							{Strategy: strategy.Value, Activated: true, Operation: strategy.OpExist, Values: []string{"Japan"}},
						},
					},
				},
			},
			{
				Name:      "G2-disabled",
				Activated: false,
				Configs: []snapshot.Config{
					{Key: "FF2FOR2040", Activated: true},
				},
			},
		},
	})
}

func TestCheckLocalValueSuccess(t *testing.T) {
	snap := buildSnapshot(t)
	result, err := Check(snap, Request{
		Key:   "FF2FOR2020",
		Input: []Entry{{Strategy: strategy.Value, Input: "Japan"}},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Result {
		t.Fatalf("expected success, got reason=%q", result.Reason)
	}
}

func TestCheckDisabledGroup(t *testing.T) {
	snap := buildSnapshot(t)
	result, err := Check(snap, Request{Key: "FF2FOR2040"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result || result.Reason != "Group disabled" {
		t.Fatalf("expected disabled(Group disabled), got %+v", result)
	}
}

func TestCheckMissingStrategyInput(t *testing.T) {
	snap := buildSnapshot(t)
	result, err := Check(snap, Request{Key: "FF2FOR2020"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Strategy 'VALUE_VALIDATION' did not receive any input"
	if result.Result || result.Reason != want {
		t.Fatalf("expected %q, got %+v", want, result)
	}
}

func TestCheckSnapshotNotLoaded(t *testing.T) {
	_, err := Check(nil, Request{Key: "X"}, nil)
	if !IsSnapshotNotLoaded(err) {
		t.Fatalf("expected snapshot-not-loaded error, got %v", err)
	}
}

func TestCheckKeyNotFound(t *testing.T) {
	snap := buildSnapshot(t)
	_, err := Check(snap, Request{Key: "NOPE"}, nil)
	if !IsKeyNotFound(err) {
		t.Fatalf("expected key-not-found error, got %v", err)
	}
}

func TestCheckDomainDisabled(t *testing.T) {
	snap := snapshot.Build(snapshot.Domain{Name: "D", Activated: false})
	result, err := Check(snap, Request{Key: "ANY"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result || result.Reason != "Domain is disabled" {
		t.Fatalf("expected disabled(Domain is disabled), got %+v", result)
	}
}

func TestCheckFirstGroupWinsOnDuplicateKey(t *testing.T) {
	snap := snapshot.Build(snapshot.Domain{
		Name:      "D",
		Activated: true,
		Groups: []snapshot.Group{
			{Name: "G1", Activated: true, Configs: []snapshot.Config{{Key: "K", Activated: true}}},
			{Name: "G2", Activated: true, Configs: []snapshot.Config{{Key: "K", Activated: false}}},
		},
	})

	result, err := Check(snap, Request{Key: "K"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Result {
		t.Fatalf("expected first group's activated=true config to win, got %+v", result)
	}
}
