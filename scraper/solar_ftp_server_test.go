package scraper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gewnthar/gnss-archiver/models"
)

// ftpFixture is a single-session passive-mode FTP server good enough for list and retrieve.
type ftpFixture struct {
	files map[string]string // base name -> content

	mu       sync.Mutex
	commands []string
}

func startFTPFixture(t *testing.T, files map[string]string) (*ftpFixture, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	f := &ftpFixture{files: files}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return f, ln.Addr().String()
}

func (f *ftpFixture) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(code int, msg string) {
		fmt.Fprintf(conn, "%d %s\r\n", code, msg)
	}

	var data net.Listener
	defer func() {
		if data != nil {
			_ = data.Close()
		}
	}()
	openData := func() (net.Listener, error) {
		if data != nil {
			_ = data.Close()
		}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		data = ln
		return ln, err
	}
	sendData := func(body string) {
		if data == nil {
			reply(425, "Use EPSV first")
			return
		}
		reply(150, "Opening data connection")
		dc, err := data.Accept()
		if err != nil {
			reply(425, "Cannot open data connection")
			return
		}
		_, _ = dc.Write([]byte(body))
		_ = dc.Close()
		_ = data.Close()
		data = nil
		reply(226, "Transfer complete")
	}

	reply(220, "fixture ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		cmd, arg, _ := strings.Cut(line, " ")
		cmd = strings.ToUpper(cmd)

		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()

		switch cmd {
		case "USER":
			reply(331, "Password required")
		case "PASS":
			reply(230, "Logged in")
		case "TYPE":
			reply(200, "Type set")
		case "EPSV":
			ln, err := openData()
			if err != nil {
				reply(425, "Cannot listen")
				continue
			}
			reply(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", ln.Addr().(*net.TCPAddr).Port))
		case "PASV":
			ln, err := openData()
			if err != nil {
				reply(425, "Cannot listen")
				continue
			}
			port := ln.Addr().(*net.TCPAddr).Port
			reply(227, fmt.Sprintf("Entering Passive Mode (127,0,0,1,%d,%d)", port/256, port%256))
		case "LIST":
			var b strings.Builder
			b.WriteString("drwxr-xr-x    2 ftp      ftp          4096 Mar 01 10:00 archive\r\n")
			for name, content := range f.files {
				fmt.Fprintf(&b, "-rw-r--r--    1 ftp      ftp      %8d Mar 02 10:00 %s\r\n", len(content), name)
			}
			b.WriteString("-rw-r--r--    1 ftp      ftp            10 Mar 02 10:00 0301RSGA.txt\r\n")
			sendData(b.String())
		case "RETR":
			content, ok := f.files[path.Base(arg)]
			if !ok {
				if data != nil {
					_ = data.Close()
					data = nil
				}
				reply(550, "No such file")
				continue
			}
			sendData(content)
		case "QUIT":
			reply(221, "Bye")
			return
		default:
			reply(502, "Command not implemented")
		}
	}
}

func (f *ftpFixture) sawCommand(cmd string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.commands {
		if c == cmd {
			return true
		}
	}
	return false
}

func TestSolarClientRecentListsAndRetrieves(t *testing.T) {
	t.Parallel()

	fixture, addr := startFTPFixture(t, map[string]string{
		"0302RSGA.txt": ":Product: 0302RSGA.txt\n",
		"0228RSGA.txt": ":Product: 0228RSGA.txt\n",
		"0220RSGA.txt": ":Product: 0220RSGA.txt\n",
	})
	// 0301RSGA.txt is listed but cannot be retrieved; keep it outside the window here.
	client := NewSolarClient(addr, "/pub/forecasts/RSGA", "RSGA.txt", 5*time.Second, nil)
	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	reports, err := client.Recent(context.Background(), now, 1)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(reports) != 1 || reports[0].Name != "0302RSGA.txt" || string(reports[0].Content) != ":Product: 0302RSGA.txt\n" {
		t.Fatalf("unexpected reports %+v", reports)
	}
	if !fixture.sawCommand("USER") || !fixture.sawCommand("LIST") || !fixture.sawCommand("RETR") {
		t.Fatalf("expected login, list and retrieve")
	}
}

func TestSolarClientRecentReturnsPartialResultsOnRetrieveError(t *testing.T) {
	t.Parallel()

	_, addr := startFTPFixture(t, map[string]string{
		"0302RSGA.txt": "today\n",
		"0229RSGA.txt": "two days ago\n",
	})
	client := NewSolarClient(addr, "/pub/forecasts/RSGA", "RSGA.txt", 5*time.Second, nil)
	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	// Newest first: 0302 succeeds, the listed 0301 is refused, 0229 is never reached.
	reports, err := client.Recent(context.Background(), now, 4)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(reports) != 1 || reports[0].Name != "0302RSGA.txt" {
		t.Fatalf("expected the report fetched before the failure, got %+v", reports)
	}
}

func TestSolarClientRecentConnectFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	client := NewSolarClient(addr, "/", "RSGA.txt", time.Second, nil)
	if _, err := client.Recent(context.Background(), time.Now(), 4); err == nil {
		t.Fatalf("expected a connection error")
	}
}
