package lighthouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/KAMLESH7939/backend-inclusight/internal/domain/analyses"
)

// Runner executes the Lighthouse CLI. Every run launches and kills its own
// Chrome, so nothing is shared with the render session used by the rule engine.
type Runner struct {
	Binary      string   // defaults to "lighthouse"
	ChromeFlags []string // defaults to headless + no-sandbox
	TempDir     string   // where JSON reports are written; defaults to os.TempDir()
	KeepReport  bool     // keep the report file and hand its path to the caller
	Logger      *slog.Logger

	// Image runs Lighthouse inside this container image instead of a local
	// binary. Binary is then the container CLI and defaults to "docker".
	Image string
}

// Audit runs Lighthouse once, restricted to the accessibility category. No retry.
func (r *Runner) Audit(ctx context.Context, target string) (domain.AuditResult, error) {
	if _, err := domain.ParseTarget(target); err != nil {
		return domain.AuditResult{}, err
	}
	start := time.Now()

	dir := r.TempDir
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.AuditResult{}, domain.E(domain.KindResourceAcquisition, "lighthouse temp dir", err)
		}
	}
	f, err := os.CreateTemp(dir, "lighthouse-*.json")
	if err != nil {
		return domain.AuditResult{}, domain.E(domain.KindResourceAcquisition, "lighthouse report file", err)
	}
	reportPath := f.Name()
	f.Close()

	keep := false
	defer func() {
		if !keep {
			os.Remove(reportPath)
		}
	}()

	cmd, err := r.command(ctx, target, reportPath)
	if err != nil {
		return domain.AuditResult{}, domain.E(domain.KindResourceAcquisition, "lighthouse", err)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return domain.AuditResult{}, domain.E(domain.KindResourceAcquisition, "lighthouse", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.AuditResult{}, domain.E(domain.KindAuditEngine, "lighthouse", ctxErr)
		}
		return domain.AuditResult{}, domain.Errorf(domain.KindAuditEngine, "lighthouse", "run error: %v, output=%s", err, tail(out, 2048))
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return domain.AuditResult{}, domain.E(domain.KindAuditEngine, "read lighthouse report", err)
	}
	res, err := ParseReport(data)
	if err != nil {
		return domain.AuditResult{}, err
	}
	if r.KeepReport {
		keep = true
		res.ReportPath = reportPath
	}

	if r.Logger != nil {
		r.Logger.Info("lighthouse audit finished",
			"url", target,
			"score", res.Score,
			"audits", len(res.Audits),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return res, nil
}

// Args builds the CLI arguments for one run.
func (r *Runner) Args(target, outputPath string) []string {
	flags := r.ChromeFlags
	if len(flags) == 0 {
		flags = []string{"--headless=new", "--no-sandbox", "--disable-gpu"}
	}
	return []string{
		target,
		"--output=json",
		"--output-path=" + outputPath,
		"--only-categories=accessibility",
		"--chrome-flags=" + strings.Join(flags, " "),
		"--quiet",
	}
}

// containerDir is where the report directory is mounted inside the container.
const containerDir = "/out"

// ContainerArgs builds the container CLI arguments for one run. The host
// directory of reportPath is mounted at /out and the container is named so
// it can be removed on cancellation.
func (r *Runner) ContainerArgs(target, reportPath, name string) ([]string, error) {
	dir, err := filepath.Abs(filepath.Dir(reportPath))
	if err != nil {
		return nil, err
	}
	args := []string{
		"run", "--rm",
		"--name", name,
		"-v", fmt.Sprintf("%s:%s", dir, containerDir),
		r.Image,
		"lighthouse",
	}
	return append(args, r.Args(target, containerDir+"/"+filepath.Base(reportPath))...), nil
}

// command builds the process for one run. Lighthouse starts its own Chrome,
// so cancellation kills the whole process group, and in container mode also
// removes the container, which the CLI does not stop when it is killed.
func (r *Runner) command(ctx context.Context, target, reportPath string) (*exec.Cmd, error) {
	if r.Image == "" {
		cmd := exec.CommandContext(ctx, r.binary(), r.Args(target, reportPath)...)
		r.bindCancel(cmd, nil)
		return cmd, nil
	}

	name := "inclusight-lighthouse-" + uuid.New().String()
	args, err := r.ContainerArgs(target, reportPath, name)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	r.bindCancel(cmd, func() {
		rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if out, err := exec.CommandContext(rmCtx, r.binary(), "rm", "-f", name).CombinedOutput(); err != nil {
			r.log().Warn("lighthouse container removal failed", "container", name, "error", err, "output", tail(out, 512))
		}
	})
	return cmd, nil
}

func (r *Runner) bindCancel(cmd *exec.Cmd, cleanup func()) {
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		err := killProcessGroup(cmd)
		if cleanup != nil {
			cleanup()
		}
		return err
	}
	// bounds the wait for output pipes held open by anything that escaped the group
	cmd.WaitDelay = 5 * time.Second
}

func (r *Runner) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) binary() string {
	switch {
	case r.Binary != "":
		return r.Binary
	case r.Image != "":
		return "docker"
	}
	return "lighthouse"
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("...%s", b[len(b)-n:])
}
