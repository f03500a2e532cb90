// Package qrcode produces PNG QR codes for verification URLs.
//
// Fetcher asks an external rendering API for each image (the batch path used by
// participant uploads). Generator renders locally and backs the single-code endpoint.
package qrcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	goqr "github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"certify/internal/metrics"
)

const (
	DefaultAPIURL      = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultSize        = 300
	DefaultConcurrency = 8
	maxImageBytes      = 4 << 20

	// MaxTextBytes is the byte-mode capacity of a version 40 symbol at medium recovery.
	MaxTextBytes = 2331
)

var ErrTextTooLong = errors.New("text does not fit in a qr code")

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Generator struct {
	Size int
}

func (g Generator) PNG(text string) ([]byte, error) {
	size := g.Size
	if size <= 0 {
		size = DefaultSize
	}
	if len(text) > MaxTextBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrTextTooLong, len(text), MaxTextBytes)
	}
	png, err := goqr.Encode(text, goqr.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

type Fetcher struct {
	client      HTTPDoer
	apiURL      string
	size        int
	concurrency int
	fallback    *Generator
	log         *zerolog.Logger
}

type Options struct {
	APIURL      string
	Size        int
	Concurrency int
	Timeout     time.Duration
	// FallbackLocal renders failed fetches locally instead of dropping them.
	FallbackLocal bool
}

func NewFetcher(client HTTPDoer, opts Options, log *zerolog.Logger) *Fetcher {
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	f := &Fetcher{
		client:      client,
		apiURL:      opts.APIURL,
		size:        opts.Size,
		concurrency: opts.Concurrency,
		log:         log,
	}
	if f.apiURL == "" {
		f.apiURL = DefaultAPIURL
	}
	if f.size <= 0 {
		f.size = DefaultSize
	}
	if f.concurrency <= 0 {
		f.concurrency = DefaultConcurrency
	}
	if opts.FallbackLocal {
		f.fallback = &Generator{Size: f.size}
	}
	return f
}

func (f *Fetcher) requestURL(data string) string {
	dim := strconv.Itoa(f.size)
	q := url.Values{}
	q.Set("size", dim+"x"+dim)
	q.Set("format", "png")
	q.Set("data", data)
	return f.apiURL + "?" + q.Encode()
}

// Fetch downloads one PNG encoding data.
func (f *Fetcher) Fetch(ctx context.Context, data string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(data), nil)
	if err != nil {
		return nil, fmt.Errorf("build qr request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch qr code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch QR code: %s", resp.Status)
	}
	png, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read qr code: %w", err)
	}
	return png, nil
}

type Item struct {
	ID   string
	Name string
	Data string
}

type Result struct {
	Item
	PNG []byte
	Err error
}

// FetchAll fetches every item with bounded parallelism. A failed item never
// stops the others; successes and failures come back separately, each in input order.
func (f *Fetcher) FetchAll(ctx context.Context, items []Item) (succeeded, failed []Result) {
	results := make([]Result, len(items))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, it := range items {
		g.Go(func() error {
			png, err := f.Fetch(ctx, it.Data)
			if err != nil && f.fallback != nil {
				f.log.Warn().Err(err).Str("participant_id", it.ID).Msg("qr fetch failed, rendering locally")
				png, err = f.fallback.PNG(it.Data)
			}
			metrics.TrackQRFetch(err == nil)
			results[i] = Result{Item: it, PNG: png, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			f.log.Error().Err(r.Err).Str("participant_id", r.ID).Str("name", r.Name).Msg("failed to generate QR code")
			failed = append(failed, r)
			continue
		}
		succeeded = append(succeeded, r)
	}
	f.log.Info().Int("successful", len(succeeded)).Int("failed", len(failed)).Msg("QR code generation complete")
	return succeeded, failed
}
