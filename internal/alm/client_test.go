package alm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateWithLogin(t *testing.T) {
	fake := &fakeALM{t: t}
	client := newTestClient(t, fake.start())

	err := client.Authenticate(context.Background(), "user", "secret")
	require.NoError(t, err)
}

func TestAuthenticatePreAuthedSession(t *testing.T) {
	fake := &fakeALM{t: t, preAuthed: true, rejectLogin: true}
	client := newTestClient(t, fake.start())

	// A valid existing session must not go through the login endpoint.
	err := client.Authenticate(context.Background(), "user", "secret")
	require.NoError(t, err)
}

func TestAuthenticateRejected(t *testing.T) {
	fake := &fakeALM{t: t, rejectLogin: true}
	client := newTestClient(t, fake.start())

	err := client.Authenticate(context.Background(), "user", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestAuthenticateEscapesCredentials(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/qcbin/rest/is-authenticated":
			w.WriteHeader(http.StatusUnauthorized)
		case "/qcbin/authentication-point/alm-authenticate":
			buf, _ := io.ReadAll(r.Body)
			body = string(buf)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	err := client.Authenticate(context.Background(), "a<b", `p&ss"`)
	require.NoError(t, err)
	assert.Contains(t, body, "<user>a&lt;b</user>")
	assert.Contains(t, body, "<password>p&amp;ss&quot;</password>")
}

func TestGetFolderNotFound(t *testing.T) {
	fake := &fakeALM{t: t, folders: []fakeFolder{{id: 1, name: "Subject"}}}
	client := newTestClient(t, fake.start())

	_, err := client.GetFolder(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.ListTests(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
}

func TestNetworkErrorIsTransient(t *testing.T) {
	base, _ := url.Parse("http://127.0.0.1:1") // nothing listens here
	client := NewClient(base, testDomain, testProject)
	defer client.Close()

	_, err := client.ListTests(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
}

func TestExpiredSessionSurfacesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.ListTests(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestListTestsPaginationMatchesSingleFetch(t *testing.T) {
	fake := &fakeALM{t: t, folders: []fakeFolder{{id: 1, name: "Subject"}}}
	for i := 1; i <= 25; i++ {
		fake.tests = append(fake.tests, fakeTest{
			id: i, folder: 1,
			fields: map[string]string{"name": "Test " + string(rune('A'+i%26))},
		})
	}
	srv := fake.start()

	// One request large enough to fit everything.
	single, err := newTestClient(t, srv).ListTests(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, single, 25)

	// The same listing fetched 10 entities at a time.
	fake.listCalls = 0
	paged, err := newTestClient(t, srv, WithPageSize(10)).ListTests(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, fake.listCalls, "25 tests at page size 10 should take 3 requests")
	assert.Equal(t, single, paged)
}

func TestListTestsServerCappedPageSize(t *testing.T) {
	// The server's configured maximum is below the requested page size, so
	// every page comes back short of the request while TotalResults says
	// more remain.
	fake := &fakeALM{t: t, folders: []fakeFolder{{id: 1, name: "Subject"}}, maxPageSize: 5}
	for i := 1; i <= 12; i++ {
		fake.tests = append(fake.tests, fakeTest{
			id: i, folder: 1,
			fields: map[string]string{"name": "Test " + strconv.Itoa(i)},
		})
	}
	client := newTestClient(t, fake.start())

	tests, err := client.ListTests(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tests, 12)
	assert.Equal(t, 3, fake.listCalls, "12 tests at a server cap of 5 should take 3 requests")
	for i, tc := range tests {
		assert.Equal(t, i+1, tc.ID)
	}
}

func TestListTestsAppliesFilters(t *testing.T) {
	fake := &fakeALM{t: t, folders: []fakeFolder{{id: 1, name: "Subject"}}}
	fake.tests = []fakeTest{
		{id: 1, folder: 1, fields: map[string]string{"owner": "jdoe"}},
		{id: 2, folder: 1, fields: map[string]string{"owner": "other"}},
		{id: 3, folder: 1, fields: map[string]string{"owner": "jdoe"}},
	}
	client := newTestClient(t, fake.start(), WithFilters(map[string]string{"owner": "jdoe"}))

	tests, err := client.ListTests(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, 1, tests[0].ID)
	assert.Equal(t, 3, tests[1].ID)
}

func TestEntityFieldAccessors(t *testing.T) {
	desc := "some <b>rich</b> text"
	e := Entity{
		Type: "test",
		Fields: []EntityField{
			{Name: "id", Values: []FieldValue{{Value: ptr("42")}}},
			{Name: "description", Values: []FieldValue{{Value: &desc}}},
			{Name: "empty", Values: []FieldValue{{Value: nil}}},
			{Name: "multi", Values: []FieldValue{{Value: ptr("a")}, {Value: ptr("b")}}},
		},
	}

	id, ok := e.IntField("id")
	require.True(t, ok)
	assert.Equal(t, 42, id)

	_, ok = e.Field("empty")
	assert.False(t, ok, "null values are treated as absent")
	_, ok = e.Field("multi")
	assert.False(t, ok, "multi-valued fields are skipped")
	_, ok = e.Field("missing")
	assert.False(t, ok)

	m := e.FieldMap()
	assert.Equal(t, map[string]string{"id": "42", "description": desc}, m)
}

func ptr(s string) *string { return &s }
