package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-sod/sodfilter/internal/logging"
)

const defaultMaxBodyBytes = 64 * 1024 * 1024

// Cache keeps raw dataset bodies by source URL.
type Cache interface {
	Get(ctx context.Context, source string) ([]byte, bool, error)
	Set(ctx context.Context, source string, body []byte) error
}

type FetcherOption func(*Fetcher)

func WithCache(cache Cache) FetcherOption {
	return func(f *Fetcher) {
		f.cache = cache
	}
}

func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

func WithTimeout(t time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = t
	}
}

// Fetcher reads datasets from http(s) URLs or local files.
type Fetcher struct {
	client       *http.Client
	cache        Cache
	maxBodyBytes int64
	timeout      time.Duration
}

func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:       client,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Load reads source as a URL when it has an http or https scheme, and as a file path otherwise.
func (f *Fetcher) Load(ctx context.Context, source string) (Dataset, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.Fetch(ctx, source)
	}
	file, err := os.Open(source)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrDataLoad, err)
	}
	defer file.Close()
	return ReadCSV(io.LimitReader(file, f.maxBodyBytes))
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (Dataset, error) {
	logger := logging.FromContext(ctx)
	if f.cache != nil {
		body, ok, err := f.cache.Get(ctx, url)
		if err != nil {
			logger.Warnw("dataset cache get failed", "source", url, "error", err)
		}
		if ok {
			logger.Debugw("dataset cache hit", "source", url, "bytes", len(body))
			return ReadCSV(bytes.NewReader(body))
		}
	}

	body, err := f.download(ctx, url)
	if err != nil {
		return Dataset{}, err
	}
	ds, err := ReadCSV(bytes.NewReader(body))
	if err != nil {
		return Dataset{}, err
	}
	if f.cache != nil {
		if err := f.cache.Set(ctx, url, body); err != nil {
			logger.Warnw("dataset cache set failed", "source", url, "error", err)
		}
	}
	return ds, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	logger := logging.FromContext(ctx)
	if f.timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataLoad, err)
	}
	logger.Infow("downloading dataset", "source", url)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataLoad, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: unexpected status %s", ErrDataLoad, url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrDataLoad, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrDataLoad, f.maxBodyBytes)
	}
	return body, nil
}
