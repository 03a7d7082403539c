package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"flipmail/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageOne = `{"list":[
 {"id":"1","from":{"email":"bounced@flipkart.com","name":"bounced"},"date":1582729505000,
  "subject":"Lorem Ipsum","short_description":"Vestibulum sit amet ipsum vitae"},
 {"id":"2","from":{"email":"jane@flipkart.com","name":"jane"},"date":1582729506000,
  "subject":"Aenean","short_description":"Aenean ut odio eu risus"}],"total":15}`

type mockAPI struct {
	server    *httptest.Server
	bodyCalls atomic.Int32
}

func newMockAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *mockAPI {
	t.Helper()
	m := &mockAPI{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("id") {
			m.bodyCalls.Add(1)
		}
		handler(w, r)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func newTestClient(t *testing.T, m *mockAPI, timeout time.Duration) *Client {
	t.Helper()
	c := NewClient(config.GatewayConfig{
		ListURL:      m.server.URL + "/",
		BodyURL:      m.server.URL + "/body",
		Timeout:      timeout,
		BodyCacheTTL: time.Minute,
	})
	t.Cleanup(c.Close)
	return c
}

func TestClient_ListEmails(t *testing.T) {
	var gotPage string
	m := newMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pageOne))
	})
	c := newTestClient(t, m, time.Second)

	emails, err := c.ListEmails(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, "2", gotPage)
	require.Len(t, emails, 2)
	assert.Equal(t, "1", emails[0].ID)
	assert.Equal(t, "bounced", emails[0].From.Name)
	assert.Equal(t, "bounced@flipkart.com", emails[0].From.Email)
	assert.Equal(t, int64(1582729505000), emails[0].Date)
	assert.Equal(t, "Vestibulum sit amet ipsum vitae", emails[0].ShortDescription)
	assert.Empty(t, emails[0].Body)
}

func TestClient_GetEmailBodyIsCached(t *testing.T) {
	m := newMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/body", r.URL.Path)
		w.Write([]byte(`{"id":"` + r.URL.Query().Get("id") + `","body":"<div><p>Hello</p></div>"}`))
	})
	c := newTestClient(t, m, time.Second)

	for i := 0; i < 3; i++ {
		body, err := c.GetEmailBody(context.Background(), "7")
		require.NoError(t, err)
		assert.Equal(t, "<div><p>Hello</p></div>", body)
	}
	assert.Equal(t, int32(1), m.bodyCalls.Load())
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		respond func(w http.ResponseWriter)
		kind    FetchErrorKind
	}{
		{"server error", func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) }, KindStatus},
		{"not json", func(w http.ResponseWriter) { w.Write([]byte("<html>oops</html>")) }, KindDecode},
		{"wrong shape", func(w http.ResponseWriter) { w.Write([]byte(`{"list":"nope","body":7}`)) }, KindDecode},
		{"missing members", func(w http.ResponseWriter) { w.Write([]byte(`{}`)) }, KindDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockAPI(t, func(w http.ResponseWriter, r *http.Request) { tt.respond(w) })
			c := newTestClient(t, m, time.Second)

			_, err := c.ListEmails(context.Background(), 1)
			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.kind, fetchErr.Kind)
			assert.Equal(t, "list", fetchErr.Op)

			_, err = c.GetEmailBody(context.Background(), "1")
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.kind, fetchErr.Kind)
			assert.Equal(t, "body", fetchErr.Op)
		})
	}
}

func TestClient_FailedBodyIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	m := newMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"body":"ok"}`))
	})
	c := newTestClient(t, m, time.Second)

	_, err := c.GetEmailBody(context.Background(), "1")
	require.Error(t, err)

	fail.Store(false)
	body, err := c.GetEmailBody(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(2), m.bodyCalls.Load())
}

func TestClient_Timeout(t *testing.T) {
	unblock := make(chan struct{})
	m := newMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-unblock:
		case <-time.After(5 * time.Second):
		}
	})
	t.Cleanup(func() { close(unblock) })
	c := newTestClient(t, m, 100*time.Millisecond)

	start := time.Now()
	_, err := c.ListEmails(context.Background(), 1)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindTransport, fetchErr.Kind)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestClient_CanceledContext(t *testing.T) {
	m := newMockAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	c := newTestClient(t, m, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListEmails(ctx, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_Unreachable(t *testing.T) {
	m := newMockAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, m, time.Second)
	m.server.Close()

	_, err := c.ListEmails(context.Background(), 1)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindTransport, fetchErr.Kind)
}
