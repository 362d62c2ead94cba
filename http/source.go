// Package http provides an archive Source fetched over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"

	"github.com/meigma/srcview/source"
)

// Source streams a remote archive with one GET per operation.
// It satisfies srcview.Source.
type Source struct {
	url              string
	client           *nethttp.Client
	headers          nethttp.Header
	compression      source.Compression
	maxDecoderMemory uint64
}

// Metadata describes the remote archive as reported by a HEAD request.
type Metadata struct {
	Size         int64
	ETag         string
	LastModified string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithCompression overrides compression detection from the URL path.
func WithCompression(c source.Compression) Option {
	return func(s *Source) {
		s.compression = c
	}
}

// WithMaxDecoderMemory limits the memory used by the zstd decoder.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(s *Source) {
		s.maxDecoderMemory = limit
	}
}

// NewSource creates a Source for rawURL. No request is made until Open.
func NewSource(rawURL string, opts ...Option) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse archive url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("archive url %q: unsupported scheme", rawURL)
	}
	s := &Source{
		url:              rawURL,
		client:           nethttp.DefaultClient,
		maxDecoderMemory: source.DefaultMaxDecoderMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	if s.compression == source.CompressionAuto {
		s.compression = source.DetectCompression(u.Path)
	}
	return s, nil
}

// Open fetches the archive and returns its decompressed stream.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := s.newRequest(ctx, nethttp.MethodGet)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != nethttp.StatusOK {
		drain(resp.Body)
		return nil, fmt.Errorf("fetch archive: %s", resp.Status)
	}

	dec, err := source.Decompress(resp.Body, s.compression, s.maxDecoderMemory)
	if err != nil {
		drain(resp.Body)
		return nil, err
	}
	return &bodyReadCloser{ReadCloser: dec, body: resp.Body}, nil
}

// Stat issues a HEAD request for the archive.
func (s *Source) Stat(ctx context.Context) (Metadata, error) {
	req, err := s.newRequest(ctx, nethttp.MethodHead)
	if err != nil {
		return Metadata{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Metadata{}, err
	}
	defer drain(resp.Body)
	if resp.StatusCode != nethttp.StatusOK {
		return Metadata{}, fmt.Errorf("stat archive: %s", resp.Status)
	}
	return Metadata{
		Size:         resp.ContentLength,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func (s *Source) newRequest(ctx context.Context, method string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, s.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	// Archive bytes are decoded by Open, never by the transport.
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return req, nil
}

type bodyReadCloser struct {
	io.ReadCloser
	body io.ReadCloser
}

func (b *bodyReadCloser) Close() error {
	return errors.Join(b.ReadCloser.Close(), b.body.Close())
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
