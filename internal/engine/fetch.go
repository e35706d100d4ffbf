/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "gopdfreader/internal/log"
	"gopdfreader/internal/version"
)

// FetchOptions configure a Fetcher. Zero values pick defaults.
type FetchOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	TempDir  string
	Client   *http.Client
}

// Fetcher resolves locators to local files. Remote documents are spooled to
// a temp file owned by the resulting Document.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	tempDir  string
}

// Source is a resolved locator.
type Source struct {
	Path string
	Temp bool
	Size int64
}

func NewFetcher(opts FetchOptions) *Fetcher {
	c := opts.Client
	if c == nil {
		to := opts.Timeout
		if to <= 0 {
			to = 30 * time.Second
		}
		c = &http.Client{Timeout: to}
	}
	max := opts.MaxBytes
	if max <= 0 {
		max = 200 << 20
	}
	return &Fetcher{client: c, maxBytes: max, tempDir: opts.TempDir}
}

// Fetch resolves locator. http and https are downloaded; file URLs and plain
// paths must name an existing regular file.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (Source, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Source{}, fmt.Errorf("%w: empty", ErrUnsupportedLocator)
	}
	u, err := url.Parse(locator)
	// single-letter schemes are Windows drive letters
	if err != nil || len(u.Scheme) <= 1 {
		return statLocal(locator)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.download(ctx, u)
	case "file":
		p := u.Path
		if u.Host != "" && u.Host != "localhost" {
			return Source{}, fmt.Errorf("%w: remote file host %q", ErrUnsupportedLocator, u.Host)
		}
		// file:///C:/x.pdf has path /C:/x.pdf
		if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
		return statLocal(filepath.FromSlash(p))
	default:
		return Source{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedLocator, u.Scheme)
	}
}

func statLocal(path string) (Source, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("open %s: %w", path, err)
	}
	if !st.Mode().IsRegular() {
		return Source{}, fmt.Errorf("open %s: not a regular file", path)
	}
	return Source{Path: path, Size: st.Size()}, nil
}

func (f *Fetcher) download(ctx context.Context, u *url.URL) (src Source, err error) {
	l := applog.WithOperation(applog.WithComponent("engine"), "fetch")
	started := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Source{}, err
	}
	req.Header.Set("User-Agent", "gopdfreader/"+version.String())
	req.Header.Set("Accept", "application/pdf, */*;q=0.5")
	resp, err := f.client.Do(req)
	if err != nil {
		return Source{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Source{}, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return Source{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	tmp, err := os.CreateTemp(f.tempDir, "gopdfreader-*.pdf")
	if err != nil {
		return Source{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if cerr := tmp.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Source{}, fmt.Errorf("fetch body: %w", err)
	}
	if n > f.maxBytes {
		return Source{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	l.DebugContext(ctx, "downloaded", slog.Int64("bytes", n), slog.Duration("took", time.Since(started)))
	return Source{Path: tmp.Name(), Temp: true, Size: n}, nil
}

// NormalizeLocator trims locator and makes plain relative paths absolute, so
// a recorded entry opens from any working directory. URLs are kept as typed.
func NormalizeLocator(locator string) string {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return ""
	}
	if u, err := url.Parse(locator); err == nil && len(u.Scheme) > 1 {
		return locator
	}
	if abs, err := filepath.Abs(locator); err == nil {
		return abs
	}
	return locator
}

// IsRemote reports whether locator would be downloaded.
func IsRemote(locator string) bool {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

