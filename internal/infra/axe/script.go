package axe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultScriptURL is where axe-core is fetched from when no local copy is configured.
const DefaultScriptURL = "https://cdn.jsdelivr.net/npm/axe-core@4.10.2/axe.min.js"

// maxScriptBytes bounds a downloaded script.
const maxScriptBytes = 4 << 20

// LoadScript reads axe-core from path, or downloads it from url when path is empty.
func LoadScript(ctx context.Context, path, url string) (string, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read axe script: %w", err)
		}
		return string(b), nil
	}
	if url == "" {
		url = DefaultScriptURL
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download axe script: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download axe script: unexpected status %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return "", fmt.Errorf("download axe script: %w", err)
	}
	return string(b), nil
}
