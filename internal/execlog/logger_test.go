package execlog

import (
	"errors"
	"testing"
	"time"
)

func TestAddAndGetExecutionExactMatch(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	input := []Entry{{Strategy: "VALUE_VALIDATION", Input: "Japan"}}
	l.Add("FF2FOR2020", input, true, "Success", nil)

	exec, ok := l.GetExecution("FF2FOR2020", input)
	if !ok || !exec.Result {
		t.Fatalf("expected cached execution hit")
	}
}

func TestGetExecutionSubsetMatch(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	narrower := []Entry{{Strategy: "VALUE_VALIDATION", Input: "Japan"}}
	l.Add("K", narrower, true, "Success", nil)

	broader := []Entry{
		{Strategy: "VALUE_VALIDATION", Input: "Japan"},
		{Strategy: "NETWORK_VALIDATION", Input: "10.0.0.1"},
	}
	exec, ok := l.GetExecution("K", broader)
	if !ok {
		t.Fatalf("expected a broader query to hit a narrower logged entry")
	}
	if !exec.Result {
		t.Fatalf("expected cached result true")
	}
}

func TestGetExecutionMiss(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	_, ok := l.GetExecution("NOPE", nil)
	if ok {
		t.Fatalf("expected miss for unseen key")
	}
}

func TestAddSameKeyInputTwiceLeavesOneEntry(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	input := []Entry{{Strategy: "VALUE_VALIDATION", Input: "Japan"}}
	l.Add("K", input, true, "Success", nil)
	l.Add("K", input, false, "Strategy does not agree", nil)

	execs := l.GetByKey("K")
	if len(execs) != 1 {
		t.Fatalf("expected 1 recorded execution after repeated add, got %d", len(execs))
	}
	if execs[0].Result {
		t.Fatalf("expected the later add to replace the earlier one")
	}
}

func TestGetByKeyReturnsAllRecorded(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	l.Add("K", []Entry{{Strategy: "VALUE_VALIDATION", Input: "a"}}, true, "Success", nil)
	l.Add("K", []Entry{{Strategy: "VALUE_VALIDATION", Input: "b"}}, false, "Strategy does not agree", nil)

	execs := l.GetByKey("K")
	if len(execs) != 2 {
		t.Fatalf("expected 2 recorded executions, got %d", len(execs))
	}
}

func TestClearEmptiesCache(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	l.Add("K", nil, true, "Success", nil)
	l.Clear()

	if _, ok := l.GetExecution("K", nil); ok {
		t.Fatalf("expected cache to be empty after Clear")
	}
}

func TestOnErrorSingleSubscriberReceivesNotification(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	received := make(chan error, 1)
	l.OnError(func(err error) { received <- err })

	boom := errors.New("boom")
	l.NotifyError(boom)

	select {
	case got := <-received:
		if got != boom {
			t.Fatalf("expected the same error instance to be delivered")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for error notification")
	}
}

func TestNotifyErrorDropsWhenQueueFullAndNoSubscriber(t *testing.T) {
	l := New(10, nil)
	defer l.Close()

	for i := 0; i < 100; i++ {
		l.NotifyError(errors.New("e"))
	}
}
