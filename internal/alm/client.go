package alm

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/yosida95/uritemplate/v3"
	"resty.dev/v3"
)

const (
	// DefaultPageSize is the number of entities requested per page. It is
	// an ALM server-side parameter: it can go lower, but not above the
	// maximum configured on the server (usually 100).
	DefaultPageSize = 100

	isAuthenticatedPath = "/qcbin/rest/is-authenticated"
	authenticatePath    = "/qcbin/authentication-point/alm-authenticate"
	logoutPath          = "/qcbin/authentication-point/alm-logout"
	siteSessionPath     = "/qcbin/rest/site-session"
)

var (
	entityListTemplate = uritemplate.MustNew(
		"/qcbin/rest/domains/{domain}/projects/{project}/{entity}")
	entityDetailTemplate = uritemplate.MustNew(
		"/qcbin/rest/domains/{domain}/projects/{project}/{entity}/{id}")
)

// Client talks to the QC ALM REST API. It holds a cookie-based session; call
// Authenticate before any fetch and Close when done. The client performs no
// retries and keeps no local cache.
type Client struct {
	http     *resty.Client
	domain   string
	project  string
	pageSize int
	filters  map[string]string
}

// Option customizes a Client.
type Option func(*Client)

// WithPageSize overrides the page size used for list requests.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithInsecureTLS disables certificate verification, for servers with
// self-signed certificates (preferences key alm.https_strict: false).
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.http.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}
}

// WithFilters adds extra query clauses (vendor field name to value) applied
// to every test list request.
func WithFilters(filters map[string]string) Option {
	return func(c *Client) {
		c.filters = filters
	}
}

// NewClient creates a client for the given ALM web domain, site domain and
// project. The base URL is the server root, without the /qcbin suffix.
func NewClient(baseURL *url.URL, domain, project string, opts ...Option) *Client {
	// ALM tracks the session through LWSSO/QCSession cookies.
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL.String(), "/")).
			SetCookieJar(jar).
			SetHeader("Accept", "application/json"),
		domain:   domain,
		project:  project,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() error {
	return c.http.Close()
}

// Authenticate establishes an ALM session. It first probes
// rest/is-authenticated; if the server rejects the probe it posts the
// alm-authentication document and then opens a site session. The session
// cookies live in the client's cookie jar.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	res, err := c.http.R().SetContext(ctx).Get(isAuthenticatedPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !res.IsSuccess() {
		body := fmt.Sprintf("<alm-authentication><user>%s</user><password>%s</password></alm-authentication>",
			xmlEscape(username), xmlEscape(password))
		res, err = c.http.R().SetContext(ctx).
			SetHeader("Content-Type", "application/xml").
			SetHeader("Accept", "application/xml").
			SetBody(body).
			Post(authenticatePath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if !res.IsSuccess() {
			return fmt.Errorf("%w: login rejected with status %d", ErrAuth, res.StatusCode())
		}
	}

	res, err = c.http.R().SetContext(ctx).Post(siteSessionPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: site session rejected with status %d", ErrAuth, res.StatusCode())
	}
	slog.Debug("alm session established", "domain", c.domain, "project", c.project)
	return nil
}

// Logout ends the ALM session. Errors are reported but a failed logout does
// not invalidate an already-completed export.
func (c *Client) Logout(ctx context.Context) error {
	res, err := c.http.R().SetContext(ctx).Post(logoutPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("alm: logout returned status %d", res.StatusCode())
	}
	return nil
}

// GetFolder fetches a single test folder by id.
func (c *Client) GetFolder(ctx context.Context, id int) (Folder, error) {
	path, err := expand(entityDetailTemplate, uritemplate.Values{
		"domain":  uritemplate.String(c.domain),
		"project": uritemplate.String(c.project),
		"entity":  uritemplate.String("test-folders"),
		"id":      uritemplate.String(strconv.Itoa(id)),
	})
	if err != nil {
		return Folder{}, err
	}

	var entity Entity
	res, err := c.http.R().SetContext(ctx).SetResult(&entity).Get(path)
	if err != nil {
		return Folder{}, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if err := statusError(res); err != nil {
		return Folder{}, fmt.Errorf("test folder %d: %w", id, err)
	}
	return folderFromEntity(entity), nil
}

// ListSubfolders returns the child folders of a folder, ordered by id
// ascending, concatenated across pages.
func (c *Client) ListSubfolders(ctx context.Context, parentID int) ([]Folder, error) {
	entities, err := c.listEntities(ctx, "test-folders", []string{
		fmt.Sprintf("parent-id[%d]", parentID),
	})
	if err != nil {
		return nil, err
	}
	folders := make([]Folder, 0, len(entities))
	for _, e := range entities {
		folders = append(folders, folderFromEntity(e))
	}
	return folders, nil
}

// ListTests returns the test cases directly under a folder, ordered by id
// ascending, concatenated across pages. Configured filter criteria are
// applied as additional query clauses.
func (c *Client) ListTests(ctx context.Context, folderID int) ([]Test, error) {
	clauses := []string{fmt.Sprintf("parent-id[%d]", folderID)}
	for _, field := range sortedKeys(c.filters) {
		clauses = append(clauses, fmt.Sprintf("%s[%s]", field, c.filters[field]))
	}
	entities, err := c.listEntities(ctx, "tests", clauses)
	if err != nil {
		return nil, err
	}
	tests := make([]Test, 0, len(entities))
	for _, e := range entities {
		tests = append(tests, testFromEntity(e))
	}
	return tests, nil
}

// listEntities fetches every page of a list endpoint and concatenates the
// results in server order. ALM pages with a 1-based start-index; the loop
// runs until TotalResults entities have arrived. A short page alone is not
// a stop condition: the server caps page-size at its configured maximum,
// so a page can legally come back smaller than requested.
func (c *Client) listEntities(ctx context.Context, entity string, clauses []string) ([]Entity, error) {
	path, err := expand(entityListTemplate, uritemplate.Values{
		"domain":  uritemplate.String(c.domain),
		"project": uritemplate.String(c.project),
		"entity":  uritemplate.String(entity),
	})
	if err != nil {
		return nil, err
	}

	var all []Entity
	start := 1
	for {
		rq := c.http.R().SetContext(ctx).
			SetQueryParam("order-by", "{id[ASC]}").
			SetQueryParam("page-size", strconv.Itoa(c.pageSize)).
			SetQueryParam("start-index", strconv.Itoa(start))
		if len(clauses) > 0 {
			rq.SetQueryParam("query", "{"+strings.Join(clauses, ";")+"}")
		}

		var page entityList
		res, err := rq.SetResult(&page).Get(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if err := statusError(res); err != nil {
			return nil, fmt.Errorf("list %s (start-index %d): %w", entity, start, err)
		}

		all = append(all, page.Entities...)
		slog.Debug("fetched page", "entity", entity, "start", start,
			"count", len(page.Entities), "total", page.TotalResults)
		if page.TotalResults > 0 {
			// Empty-page guard: a server that keeps reporting a larger
			// TotalResults while sending no entities must not loop forever.
			if len(page.Entities) == 0 || len(all) >= page.TotalResults {
				return all, nil
			}
		} else if len(page.Entities) < c.pageSize {
			return all, nil
		}
		start += len(page.Entities)
	}
}

// statusError maps an HTTP status to the client error taxonomy.
func statusError(res *resty.Response) error {
	switch code := res.StatusCode(); {
	case res.IsSuccess():
		return nil
	case code == 401 || code == 403:
		return fmt.Errorf("%w (status %d)", ErrAuth, code)
	case code == 404:
		return fmt.Errorf("%w (status %d)", ErrNotFound, code)
	case code >= 500:
		return fmt.Errorf("%w (status %d)", ErrTransient, code)
	default:
		return fmt.Errorf("alm: unexpected status %d: %s", code, strings.TrimSpace(res.String()))
	}
}

func expand(tmpl *uritemplate.Template, vals uritemplate.Values) (string, error) {
	path, err := tmpl.Expand(vals)
	if err != nil {
		return "", fmt.Errorf("alm: building endpoint URL: %w", err)
	}
	return path, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
