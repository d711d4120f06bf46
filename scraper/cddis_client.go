// scraper/cddis_client.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/publicsuffix"

	"github.com/gewnthar/gnss-archiver/models"
)

// CDDISClient fetches products from an Earthdata-protected HTTPS archive.
//
// The archive answers an unauthenticated file request with a redirect to a login/token URL.
// That URL is requested again with basic auth; the session cookie it sets is kept in the
// jar so the final redirect back to the file succeeds.
type CDDISClient struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration

	probe  *http.Client // never follows redirects
	follow *http.Client
	logger *log.Logger
}

// NewCDDISClient wires two clients over a shared cookie jar and transport.
func NewCDDISClient(baseURL, username, password string, timeout time.Duration, logger *log.Logger) (*CDDISClient, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	transport := http.DefaultTransport

	return &CDDISClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		timeout:  timeout,
		probe: &http.Client{
			Transport: transport,
			Jar:       jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		follow: &http.Client{Transport: transport, Jar: jar},
		logger: logger,
	}, nil
}

// Probe checks that the archive root answers at all.
func (c *CDDISClient) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.get(ctx, c.follow, c.baseURL+"/")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrConnectivity, c.baseURL, err)
	}
	drain(resp)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s answered %s", models.ErrConnectivity, c.baseURL, resp.Status)
	}
	c.debug("archive reachable", "url", c.baseURL, "status", resp.StatusCode)
	return nil
}

// Fetch downloads <base>/<dir>/<name>. Missing files, error statuses and timeouts all wrap
// models.ErrNotFound.
func (c *CDDISClient) Fetch(ctx context.Context, dir, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fileURL := c.FileURL(dir, name)
	resp, err := c.get(ctx, c.probe, fileURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrNotFound, name, err)
	}

	if isRedirect(resp.StatusCode) {
		loc, locErr := resp.Location()
		drain(resp)
		if locErr != nil {
			return nil, fmt.Errorf("%w: %s: redirect without location: %v", models.ErrNotFound, name, locErr)
		}
		c.debug("re-authenticating after redirect", "file", name, "location", loc.Host)
		resp, err = c.get(ctx, c.follow, loc.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrNotFound, name, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s answered %s", models.ErrNotFound, name, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading body: %v", models.ErrNotFound, name, err)
	}
	return body, nil
}

// FileURL joins the archive base, directory and file name.
func (c *CDDISClient) FileURL(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return c.baseURL + "/" + name
	}
	return c.baseURL + "/" + dir + "/" + name
}

func (c *CDDISClient) get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return client.Do(req)
}

func (c *CDDISClient) debug(msg string, keyvals ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
