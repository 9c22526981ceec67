package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/gateway/internal/dispatch"
	"marketplace/gateway/internal/dispatch/mocks"
	"marketplace/gateway/internal/registry"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newRegistry(t *testing.T, backendURL string) *registry.Registry {
	t.Helper()
	descriptors := []registry.ServiceDescriptor{
		{ID: "mocked", BaseURL: registry.MockBaseURL, Path: "/generate"},
	}
	if backendURL != "" {
		descriptors = append(descriptors, registry.ServiceDescriptor{ID: "real", BaseURL: backendURL, Path: "/run"})
	}
	reg, err := registry.New(descriptors...)
	require.NoError(t, err)
	return reg
}

func encode(t *testing.T, env dispatch.Envelope) map[string]any {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestDispatcher_MockPath(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	t.Run("should never call a backend for unknown services", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		caller := mocks.NewMockCaller(ctrl)
		caller.EXPECT().Call(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		d := dispatch.NewDispatcher(log, newRegistry(t, ""), caller,
			dispatch.NewRandomMetrics(1), time.Second, dispatch.DefaultMockPrefix)

		env := d.Handle(context.Background(), "not-configured", dispatch.ServiceRequest{Input: "hello"})

		req.True(env.Success)
		req.Equal("not-configured", env.Service)
		req.Equal("Mock: hello", env.Output)
		req.NotNil(env.Metrics)
		req.Empty(env.Error)
	})

	t.Run("should keep metrics inside their bounds", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		caller := mocks.NewMockCaller(ctrl)
		caller.EXPECT().Call(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		d := dispatch.NewDispatcher(log, newRegistry(t, ""), caller,
			dispatch.NewRandomMetrics(42), time.Second, dispatch.DefaultMockPrefix)

		for range 2000 {
			env := d.Handle(context.Background(), "mocked", dispatch.ServiceRequest{Input: "x"})
			req.True(env.Success)
			req.GreaterOrEqual(env.Metrics.ProcessingTime, 200)
			req.LessOrEqual(env.Metrics.ProcessingTime, 699)
			req.GreaterOrEqual(env.Metrics.Accuracy, 90)
			req.LessOrEqual(env.Metrics.Accuracy, 99)
		}
	})

	t.Run("should return identical envelopes apart from metrics", func(t *testing.T) {
		req := require.New(t)
		d := dispatch.NewDispatcher(log, newRegistry(t, ""), mocks.NewMockCaller(gomock.NewController(t)),
			dispatch.NewRandomMetrics(7), time.Second, dispatch.DefaultMockPrefix)

		in := dispatch.ServiceRequest{Input: "same", Type: "caption", Lang: "en"}
		first := encode(t, d.Handle(context.Background(), "mocked", in))
		second := encode(t, d.Handle(context.Background(), "mocked", in))
		delete(first, "metrics")
		delete(second, "metrics")

		req.Equal(first, second)
		req.Equal(map[string]any{"success": true, "service": "mocked", "output": "Mock: same"}, first)
	})

	t.Run("should honour the configured prefix", func(t *testing.T) {
		d := dispatch.NewDispatcher(log, newRegistry(t, ""), mocks.NewMockCaller(gomock.NewController(t)),
			dispatch.NewRandomMetrics(7), time.Second, "Processed: ")

		env := d.Handle(context.Background(), "mocked", dispatch.ServiceRequest{Input: "text"})
		require.Equal(t, "Processed: text", env.Output)
	})

	t.Run("should pass a missing input through as empty", func(t *testing.T) {
		d := dispatch.NewDispatcher(log, newRegistry(t, ""), mocks.NewMockCaller(gomock.NewController(t)),
			dispatch.NewRandomMetrics(7), time.Second, dispatch.DefaultMockPrefix)

		env := d.Handle(context.Background(), "mocked", dispatch.ServiceRequest{})
		require.True(t, env.Success)
		require.Equal(t, "Mock: ", env.Output)
	})
}

func TestDispatcher_BackendPath(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	t.Run("should flatten the backend response into the envelope", func(t *testing.T) {
		req := require.New(t)
		type seen struct {
			body      dispatch.BackendRequest
			requestID string
		}
		seenCh := make(chan seen, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s seen
			s.requestID = r.Header.Get(dispatch.RequestIDHeader)
			_ = json.NewDecoder(r.Body).Decode(&s.body)
			seenCh <- s
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"foo":"bar"}`))
		}))
		defer srv.Close()

		d := dispatch.NewDispatcher(log, newRegistry(t, srv.URL), dispatch.NewHTTPCaller(time.Second),
			dispatch.NewRandomMetrics(1), time.Second, dispatch.DefaultMockPrefix)

		ctx := dispatch.WithRequestID(context.Background(), "req-123")
		env := d.Handle(ctx, "real", dispatch.ServiceRequest{Input: "my post"})

		req.Equal(map[string]any{"success": true, "service": "real", "foo": "bar"}, encode(t, env))
		got := <-seenCh
		req.Equal(dispatch.BackendRequest{Content: "my post", Platform: "instagram", InstagramFollowers: 10000}, got.body)
		req.Equal("req-123", got.requestID)
	})

	t.Run("should let backend fields win on conflict", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"upstream-name","score":0.8}`))
		}))
		defer srv.Close()

		d := dispatch.NewDispatcher(log, newRegistry(t, srv.URL), dispatch.NewHTTPCaller(time.Second),
			dispatch.NewRandomMetrics(1), time.Second, dispatch.DefaultMockPrefix)

		got := encode(t, d.Handle(context.Background(), "real", dispatch.ServiceRequest{Input: "x"}))
		require.Equal(t, map[string]any{"success": true, "service": "upstream-name", "score": 0.8}, got)
	})

	failures := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non 2xx status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"body that is not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}},
		{"json array body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[1,2,3]`))
		}},
		{"null body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`null`))
		}},
	}
	for _, tc := range failures {
		t.Run("should fail softly on "+tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			d := dispatch.NewDispatcher(log, newRegistry(t, srv.URL), dispatch.NewHTTPCaller(time.Second),
				dispatch.NewRandomMetrics(1), time.Second, dispatch.DefaultMockPrefix)

			got := encode(t, d.Handle(context.Background(), "real", dispatch.ServiceRequest{Input: "x"}))
			require.Equal(t, map[string]any{
				"success": false,
				"service": "real",
				"error":   "Service temporarily unavailable",
			}, got)
		})
	}

	t.Run("should fail softly when the backend is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		d := dispatch.NewDispatcher(log, newRegistry(t, url), dispatch.NewHTTPCaller(time.Second),
			dispatch.NewRandomMetrics(1), time.Second, dispatch.DefaultMockPrefix)

		env := d.Handle(context.Background(), "real", dispatch.ServiceRequest{Input: "x"})
		require.False(t, env.Success)
		require.Equal(t, dispatch.UnavailableMessage, env.Error)
	})

	t.Run("should give up once the timeout elapses", func(t *testing.T) {
		req := require.New(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer srv.Close()

		timeout := 100 * time.Millisecond
		d := dispatch.NewDispatcher(log, newRegistry(t, srv.URL), dispatch.NewHTTPCaller(timeout),
			dispatch.NewRandomMetrics(1), timeout, dispatch.DefaultMockPrefix)

		start := time.Now()
		env := d.Handle(context.Background(), "real", dispatch.ServiceRequest{Input: "x"})

		req.Less(time.Since(start), 2*time.Second)
		req.False(env.Success)
		req.Equal("real", env.Service)
		req.Equal(dispatch.UnavailableMessage, env.Error)
	})

	t.Run("should hide caller errors behind the generic message", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		caller := mocks.NewMockCaller(ctrl)
		caller.EXPECT().
			Call(gomock.Any(), gomock.Any(), dispatch.BackendRequest{Content: "x", Platform: "instagram", InstagramFollowers: 10000}).
			Return(nil, errors.Join(dispatch.ErrBackendUnavailable, errors.New("dial tcp: secret detail"))).
			Times(1)

		d := dispatch.NewDispatcher(log, newRegistry(t, "http://backend.internal"), caller,
			dispatch.NewRandomMetrics(1), time.Second, dispatch.DefaultMockPrefix)

		env := d.Handle(context.Background(), "real", dispatch.ServiceRequest{Input: "x"})
		req.False(env.Success)
		req.Equal(dispatch.UnavailableMessage, env.Error)
		req.NotContains(env.Error, "secret")
		req.Nil(env.Metrics)
		req.Empty(env.Output)
	})
}

func TestHTTPCaller_WrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := registry.ServiceDescriptor{ID: "real", BaseURL: srv.URL, HTTPMethod: http.MethodPost}
	_, err := dispatch.NewHTTPCaller(time.Second).Call(context.Background(), d, dispatch.BackendRequest{})
	require.ErrorIs(t, err, dispatch.ErrBackendUnavailable)
}

func TestRandomMetrics_Seeded(t *testing.T) {
	a := dispatch.NewRandomMetrics(99)
	b := dispatch.NewRandomMetrics(99)
	for range 50 {
		require.Equal(t, a.Next(), b.Next())
	}
}
