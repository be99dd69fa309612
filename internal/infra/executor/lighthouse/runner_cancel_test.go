//go:build linux

package lighthouse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// alive reports whether pid is a running (non-zombie) process.
func alive(pid int) bool {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// state follows the parenthesised command name
	fields := strings.Fields(string(b[strings.LastIndexByte(string(b), ')')+1:]))
	return len(fields) > 0 && fields[0] != "Z" && fields[0] != "X"
}

func waitDead(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for alive(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("process %d still running after Audit returned", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func readPID(t *testing.T, path string) int {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		t.Fatalf("pid file: %v", err)
	}
	return pid
}

func TestAuditCancelKillsBrowserChildren(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "chrome.pid")
	// the background sleep plays the browser Lighthouse launches
	bin := writeScript(t, `sleep 30 &
echo $! > `+pidFile+`
sleep 30
`)
	r := &Runner{Binary: bin, TempDir: t.TempDir()}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := r.Audit(ctx, "https://example.com")
	if !errors.Is(err, domain.KindAuditEngine) {
		t.Fatalf("expected AuditEngineFailure, got %v", err)
	}
	if d := time.Since(start); d > 3*time.Second {
		t.Fatalf("Audit returned after %s", d)
	}
	waitDead(t, readPID(t, pidFile))
}

func TestAuditCancelRemovesContainer(t *testing.T) {
	dir := t.TempDir()
	calls := filepath.Join(dir, "calls.log")
	bin := writeScript(t, `echo "$@" >> `+calls+`
if [ "$1" = "run" ]; then sleep 30; fi
`)
	r := &Runner{Binary: bin, Image: "example/lighthouse", TempDir: t.TempDir()}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := r.Audit(ctx, "https://example.com"); err == nil {
		t.Fatal("expected error")
	}

	b, err := os.ReadFile(calls)
	if err != nil {
		t.Fatalf("calls: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected run and rm calls, got %q", lines)
	}
	run := strings.Fields(lines[0])
	if len(run) < 4 || run[0] != "run" || run[2] != "--name" {
		t.Fatalf("run call: %q", lines[0])
	}
	if want := "rm -f " + run[3]; lines[1] != want {
		t.Fatalf("rm call: %q, want %q", lines[1], want)
	}
}
