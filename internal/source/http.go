package source

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPSource streams lines from an HTTP response body, reconnecting with
// backoff whenever the body ends or the request fails.
type HTTPSource struct {
	base
	URL    string
	Client *http.Client // http.DefaultClient when nil.
}

// Run reads lines until ctx is cancelled.
func (s *HTTPSource) Run(ctx context.Context, out chan<- Line) error {
	for ctx.Err() == nil {
		err := s.stream(ctx, out)
		if ctx.Err() != nil {
			break
		}
		s.logger.Warn().Err(err).Msg("http source failed, retrying")
		if !s.backoff.Wait(ctx) {
			break
		}
	}
	return nil
}

func (s *HTTPSource) stream(ctx context.Context, out chan<- Line) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return err
	}
	// One request per stream; do not keep idle connections around.
	req.Close = true

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	s.logger.Info().Msg("http stream connected")
	s.backoff.Reset()

	if err := s.scan(ctx, resp.Body, out, false); err != nil {
		return err
	}
	return errInputClosed
}
