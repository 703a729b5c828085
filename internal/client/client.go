// Package client calls the other shopease services over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shopease/internal/monitor"
	"shopease/pkg/breaker"
	"shopease/pkg/utils"
)

// Options shared by every peer client
type Options struct {
	Breakers *breaker.Manager
	Tracer   *monitor.Tracer
	Metrics  *monitor.Metrics
	// Transport overrides http.DefaultTransport
	Transport http.RoundTripper
}

// StatusError a non-2xx answer from a peer
type StatusError struct {
	Peer    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Peer, e.Code, e.Message)
}

type peer struct {
	name    string
	baseURL string
	http    *http.Client
	breaker *breaker.CircuitBreaker
	tracer  *monitor.Tracer
	metrics *monitor.Metrics
}

func newPeer(name, baseURL string, timeout time.Duration, opts Options) *peer {
	p := &peer{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout, Transport: opts.Transport},
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
	}
	if opts.Breakers != nil {
		p.breaker = opts.Breakers.Get(name)
	}
	return p
}

// call sends body as JSON and decodes a 2xx answer into out. 4xx answers come back as
// AppErrors carrying the peer's message; they do not count against the breaker.
func (p *peer) call(ctx context.Context, method, path string, body, out interface{}) error {
	start := time.Now()
	var answer *StatusError

	send := func(ctx context.Context) error {
		status, payload, err := p.roundTrip(ctx, method, path, body)
		if err != nil {
			return err
		}
		if status >= 500 {
			return &StatusError{Peer: p.name, Code: status, Message: peerMessage(payload)}
		}
		if status >= 400 {
			answer = &StatusError{Peer: p.name, Code: status, Message: peerMessage(payload)}
			return nil
		}
		if out != nil && len(payload) > 0 {
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("decode %s response: %w", p.name, err)
			}
		}
		return nil
	}

	var err error
	if p.breaker != nil {
		err = p.breaker.Execute(ctx, send)
	} else {
		err = send(ctx)
	}

	switch {
	case err != nil && breaker.IsBreakerError(err):
		p.metrics.RecordPeerRequest(p.name, "rejected", time.Since(start))
		return utils.Upstream(err, p.name+" service unavailable")
	case err != nil:
		p.metrics.RecordPeerRequest(p.name, "error", time.Since(start))
		return utils.Upstream(err, p.name+" service unavailable")
	case answer != nil:
		p.metrics.RecordPeerRequest(p.name, "client_error", time.Since(start))
		return utils.WrapError(answer, kindForStatus(answer.Code), answer.Message)
	default:
		p.metrics.RecordPeerRequest(p.name, "ok", time.Since(start))
		return nil
	}
}

func (p *peer) roundTrip(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req, span := p.tracer.StartClientSpan(req, p.name)
	defer span.End()

	resp, err := p.http.Do(req)
	if err != nil {
		p.tracer.RecordError(span, err)
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, payload, nil
}

func peerMessage(payload []byte) string {
	var body utils.ErrorBody
	if err := json.Unmarshal(payload, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(payload))
}

func kindForStatus(code int) utils.ErrorKind {
	switch code {
	case http.StatusNotFound:
		return utils.KindNotFound
	case http.StatusConflict:
		return utils.KindConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return utils.KindUnauthorized
	default:
		return utils.KindValidation
	}
}

// IsNotFound reports whether err is a peer's 404
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
