package alm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
)

const (
	testDomain  = "DEFAULT"
	testProject = "demo"
)

// fakeFolder and fakeTest describe the remote tree served by fakeALM.
type fakeFolder struct {
	id     int
	name   string
	parent int
}

type fakeTest struct {
	id     int
	folder int
	fields map[string]string
}

// fakeALM is an httptest-backed stand-in for a QC ALM server: the
// authentication endpoints plus paginated test-folder and test listings.
type fakeALM struct {
	t *testing.T

	preAuthed   bool // is-authenticated answers 200 without a login
	rejectLogin bool // alm-authenticate answers 401

	folders []fakeFolder
	tests   []fakeTest

	listCalls   int // number of list requests served, for pagination checks
	maxPageSize int // server-side page-size cap, 0 means unlimited
}

func (f *fakeALM) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /qcbin/rest/is-authenticated", func(w http.ResponseWriter, r *http.Request) {
		if f.preAuthed {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("POST /qcbin/authentication-point/alm-authenticate", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectLogin {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /qcbin/rest/site-session", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectLogin && !f.preAuthed {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /qcbin/authentication-point/alm-logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	base := fmt.Sprintf("/qcbin/rest/domains/%s/projects/%s", testDomain, testProject)
	mux.HandleFunc("GET "+base+"/test-folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		for _, folder := range f.folders {
			if folder.id == id {
				writeJSON(w, folderEntity(folder))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET "+base+"/test-folders", func(w http.ResponseWriter, r *http.Request) {
		clauses := parseClauses(r.URL.Query().Get("query"))
		var matched []map[string]any
		for _, folder := range f.folders {
			if clause, ok := clauses["parent-id"]; ok && clause != strconv.Itoa(folder.parent) {
				continue
			}
			if clause, ok := clauses["name"]; ok && clause != folder.name {
				continue
			}
			matched = append(matched, folderEntity(folder))
		}
		f.servePage(w, r, matched)
	})
	mux.HandleFunc("GET "+base+"/tests", func(w http.ResponseWriter, r *http.Request) {
		clauses := parseClauses(r.URL.Query().Get("query"))
		var matched []map[string]any
		for _, tc := range f.tests {
			if clause, ok := clauses["parent-id"]; ok && clause != strconv.Itoa(tc.folder) {
				continue
			}
			if skip := filterMismatch(clauses, tc.fields); skip {
				continue
			}
			matched = append(matched, testEntity(tc))
		}
		f.servePage(w, r, matched)
	})

	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

// servePage applies ALM-style start-index / page-size slicing.
func (f *fakeALM) servePage(w http.ResponseWriter, r *http.Request, entities []map[string]any) {
	f.listCalls++
	total := len(entities)
	start := 1
	if v := r.URL.Query().Get("start-index"); v != "" {
		start, _ = strconv.Atoi(v)
	}
	size := total
	if v := r.URL.Query().Get("page-size"); v != "" {
		size, _ = strconv.Atoi(v)
	}
	// ALM servers honour page-size only up to a configured maximum and
	// silently return a smaller page beyond it.
	if f.maxPageSize > 0 && size > f.maxPageSize {
		size = f.maxPageSize
	}

	lo := start - 1
	if lo > total {
		lo = total
	}
	hi := lo + size
	if hi > total {
		hi = total
	}
	writeJSON(w, map[string]any{
		"TotalResults": total,
		"entities":     entities[lo:hi],
	})
}

// filterMismatch reports whether any non-structural clause disagrees with
// the test's fields.
func filterMismatch(clauses map[string]string, fields map[string]string) bool {
	for field, want := range clauses {
		if field == "parent-id" {
			continue
		}
		if fields[field] != want {
			return true
		}
	}
	return false
}

// parseClauses decodes an ALM query expression like "{name[x];parent-id[2]}".
func parseClauses(q string) map[string]string {
	clauses := make(map[string]string)
	q = strings.Trim(q, "{}")
	if q == "" {
		return clauses
	}
	for _, part := range strings.Split(q, ";") {
		open := strings.Index(part, "[")
		if open < 0 || !strings.HasSuffix(part, "]") {
			continue
		}
		clauses[part[:open]] = part[open+1 : len(part)-1]
	}
	return clauses
}

func folderEntity(folder fakeFolder) map[string]any {
	return entity("test-folder", map[string]string{
		"id":        strconv.Itoa(folder.id),
		"name":      folder.name,
		"parent-id": strconv.Itoa(folder.parent),
	})
}

func testEntity(tc fakeTest) map[string]any {
	fields := map[string]string{
		"id":        strconv.Itoa(tc.id),
		"parent-id": strconv.Itoa(tc.folder),
	}
	for k, v := range tc.fields {
		fields[k] = v
	}
	return entity("test", fields)
}

func entity(entityType string, fields map[string]string) map[string]any {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fs := make([]map[string]any, 0, len(fields))
	for _, name := range names {
		fs = append(fs, map[string]any{
			"Name":   name,
			"values": []map[string]any{{"value": fields[name]}},
		})
	}
	return map[string]any{"Type": entityType, "Fields": fs}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	client := NewClient(base, testDomain, testProject, opts...)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
