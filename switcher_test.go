package switcher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/switcherapi/switcher-client-go/internal/snapshot"
	"github.com/switcherapi/switcher-client-go/internal/strategy"
)

func sampleDomain() snapshot.Domain {
	return snapshot.Domain{
		Name:      "My Domain",
		Version:   1,
		Activated: true,
		Groups: []snapshot.Group{
			{
				Name:      "Release",
				Activated: true,
				Configs: []snapshot.Config{
					{
						Key:       "FF2FOR2030",
						Activated: true,
						Strategies: []snapshot.StrategyConfig{
							{
								Strategy:  strategy.Value,
								Activated: true,
								Operation: "EXIST",
								Values:    []string{"USER_1"},
							},
						},
					},
					{
						Key:       "FF2DISABLED",
						Activated: false,
					},
				},
			},
		},
	}
}

func newLocalClient(t *testing.T) *Client {
	t.Helper()
	c, err := newClient(ContextOpts{
		Domain:      "My Domain",
		Component:   "test-app",
		Environment: "default",
		Options:     Options{Local: true},
	})
	require.NoError(t, err)
	c.current.Store(snapshot.Build(sampleDomain()))
	return c
}

func TestIsOnLocalValueMatch(t *testing.T) {
	c := newLocalClient(t)
	on, err := c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").IsOn(t.Context())
	require.NoError(t, err)
	require.True(t, on)
}

func TestIsOnLocalDisabledConfig(t *testing.T) {
	c := newLocalClient(t)
	result, err := c.GetSwitcher("FF2DISABLED").IsOnWithDetails(t.Context())
	require.NoError(t, err)
	require.False(t, result.Result)
	require.Equal(t, "Config disabled", result.Reason)
}

func TestIsOnLocalMissingStrategyInput(t *testing.T) {
	c := newLocalClient(t)
	result, err := c.GetSwitcher("FF2FOR2030").IsOnWithDetails(t.Context())
	require.NoError(t, err)
	require.False(t, result.Result)
}

func TestIsOnLocalKeyNotFound(t *testing.T) {
	c := newLocalClient(t)
	_, err := c.GetSwitcher("NOT_A_KEY").IsOn(t.Context())
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func newRemoteClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c, err := newClient(ContextOpts{
		Domain:      "My Domain",
		URL:         srv.URL,
		APIKey:      "key123",
		Component:   "test-app",
		Environment: "default",
	})
	require.NoError(t, err)
	return c, srv
}

func TestIsOnRemoteAuthenticatesThenChecksCriteria(t *testing.T) {
	var authCalls, criteriaCalls int32
	c, srv := newRemoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/criteria/auth":
			atomic.AddInt32(&authCalls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "tok1",
				"exp":   time.Now().Add(time.Hour).Unix(),
			})
		case "/criteria":
			atomic.AddInt32(&criteriaCalls, 1)
			require.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]interface{}{"result": true, "reason": "Success"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	defer srv.Close()

	on, err := c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").IsOn(t.Context())
	require.NoError(t, err)
	require.True(t, on)
	require.EqualValues(t, 1, atomic.LoadInt32(&authCalls))
	require.EqualValues(t, 1, atomic.LoadInt32(&criteriaCalls))

	// Second call reuses the cached token: no second auth call.
	_, err = c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").IsOn(t.Context())
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&authCalls))
	require.EqualValues(t, 2, atomic.LoadInt32(&criteriaCalls))
}

func TestIsOnRemoteFailureFallsBackToDefaultResult(t *testing.T) {
	c, srv := newRemoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	var notified error
	c.SubscribeNotifyError(func(err error) { notified = err })

	on, err := c.GetSwitcher("FF2FOR2030").DefaultResult(true).IsOn(t.Context())
	require.NoError(t, err)
	require.True(t, on)
	require.Error(t, notified)
}

func TestIsOnRemoteFailureWithoutDefaultPropagatesError(t *testing.T) {
	c, srv := newRemoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := c.GetSwitcher("FF2FOR2030").IsOn(t.Context())
	require.Error(t, err)
}

func TestIsOnRemoteFailureEntersSilentModeAndFallsBackLocal(t *testing.T) {
	var authCalls int32
	c, srv := newRemoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/criteria/auth" {
			atomic.AddInt32(&authCalls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "tok1",
				"exp":   time.Now().Add(time.Hour).Unix(),
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()
	c.ctx.Options.SilentMode = "1m"
	c.current.Store(snapshot.Build(sampleDomain()))

	on, err := c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").IsOn(t.Context())
	require.NoError(t, err)
	require.True(t, on, "local snapshot agrees once silent mode takes over")
	require.True(t, c.authState.Get().IsSilent())

	// A subsequent call stays on the local path without a second remote
	// criteria attempt, since the token now reports the silent sentinel.
	on, err = c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").IsOn(t.Context())
	require.NoError(t, err)
	require.True(t, on)
}

func TestThrottleServesCachedResultWithinPeriod(t *testing.T) {
	c := newLocalClient(t)
	sw := c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").Throttle(100)

	first, err := sw.IsOnWithDetails(t.Context())
	require.NoError(t, err)
	require.True(t, first.Result)
	require.NotContains(t, first.Metadata, "cached")

	second, err := sw.IsOnWithDetails(t.Context())
	require.NoError(t, err)
	require.Equal(t, true, second.Metadata["cached"])
}

func TestPrepareReturnsAccumulatedInputWithoutDeciding(t *testing.T) {
	c := newLocalClient(t)
	sw := c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").CheckNetwork("10.0.0.1")
	key, input := sw.Prepare()
	require.Equal(t, "FF2FOR2030", key)
	require.Len(t, input, 2)
}

func TestCheckValueReplacesPriorEntryForSameStrategy(t *testing.T) {
	c := newLocalClient(t)
	sw := c.GetSwitcher("FF2FOR2030").CheckValue("USER_1").CheckValue("USER_2")
	_, input := sw.Prepare()
	require.Len(t, input, 1)
	require.Equal(t, "USER_2", input[0].Input)
}

func TestClearResourcesStopsBackgroundWorkers(t *testing.T) {
	c := newLocalClient(t)
	c.ScheduleSnapshotAutoUpdate(time.Hour)
	require.NoError(t, c.ClearResources())
	require.Nil(t, c.current.Load())
}

func TestModuleFacadeDelegatesToBuiltContext(t *testing.T) {
	require.NoError(t, BuildContext(ContextOpts{
		Domain:      "My Domain",
		Component:   "test-app",
		Environment: "default",
		Options:     Options{Local: true},
	}))
	currentClient().current.Store(snapshot.Build(sampleDomain()))

	on, err := GetSwitcher("FF2FOR2030").CheckValue("USER_1").IsOn(t.Context())
	require.NoError(t, err)
	require.True(t, on)
}
