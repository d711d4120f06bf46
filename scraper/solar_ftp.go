// scraper/solar_ftp.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jlaffaye/ftp"

	"github.com/gewnthar/gnss-archiver/models"
)

// SolarClient pulls the recent NOAA geophysical alert (RSGA) reports over anonymous FTP.
type SolarClient struct {
	host    string
	dir     string
	suffix  string
	timeout time.Duration
	logger  *log.Logger
}

func NewSolarClient(host, dir, suffix string, timeout time.Duration, logger *log.Logger) *SolarClient {
	if suffix == "" {
		suffix = "RSGA.txt"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SolarClient{host: host, dir: dir, suffix: suffix, timeout: timeout, logger: logger}
}

// Recent lists the report directory and downloads every report issued in the last window days.
func (c *SolarClient) Recent(ctx context.Context, now time.Time, window int) ([]models.SolarReport, error) {
	conn, err := ftp.Dial(c.host, ftp.DialWithTimeout(c.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.host, err)
	}
	defer func() {
		if qerr := conn.Quit(); qerr != nil && c.logger != nil {
			c.logger.Debug("ftp quit failed", "host", c.host, "err", qerr)
		}
	}()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("failed anonymous login to %s: %w", c.host, err)
	}

	entries, err := conn.List(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type == ftp.EntryTypeFile {
			names = append(names, path.Base(e.Name))
		}
	}

	selected := SelectReports(names, now, window, c.suffix)
	reports := make([]models.SolarReport, 0, len(selected))
	for _, name := range selected {
		content, err := c.retrieve(conn, path.Join(c.dir, name))
		if err != nil {
			return reports, err
		}
		reports = append(reports, models.SolarReport{Name: name, Content: content})
		if c.logger != nil {
			c.logger.Info("downloaded solar report", "name", name, "bytes", len(content))
		}
	}
	return reports, nil
}

func (c *SolarClient) retrieve(conn *ftp.ServerConn, remote string) ([]byte, error) {
	resp, err := conn.Retr(remote)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrNotFound, remote, err)
	}
	defer resp.Close()

	content, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", remote, err)
	}
	return content, nil
}

// SelectReports keeps the names ending in <MMDD><suffix> for today and the window-1 days
// before it, newest first.
func SelectReports(names []string, now time.Time, window int, suffix string) []string {
	if window <= 0 {
		window = 1
	}
	now = now.UTC()
	rank := make(map[string]int, window)
	for i := 0; i < window; i++ {
		rank[now.AddDate(0, 0, -i).Format("0102")+suffix] = i
	}

	type match struct {
		name string
		age  int
	}
	var matches []match
	for _, name := range names {
		for want, age := range rank {
			if strings.HasSuffix(name, want) {
				matches = append(matches, match{name: name, age: age})
				break
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].age < matches[j].age })

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
