package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	metrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

const retryReasonFetch = "fetch"

// APISource talks to the remote analytics API: schemas come from the SQL query endpoint
// and data from the dataset CSV export.
type APISource struct {
	cfg      config.SourceConfig
	client   *http.Client
	limiter  *rate.Limiter
	recorder metrics.MetricRecorder
}

// NewAPISource creates an APISource. client may be nil, in which case a default client is used;
// per-attempt deadlines come from the request timeout setting.
func NewAPISource(cfg config.SourceConfig, client *http.Client, recorder metrics.MetricRecorder) *APISource {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.RetryLimit < 1 {
		logger.Warnf("Wrong value for retry limit [%d]. Default value for it is 1.", cfg.RetryLimit)
		cfg.RetryLimit = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &APISource{
		cfg:      cfg,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		recorder: recorder,
	}
}

// SchemaQuery builds the body sent to the query endpoint for d.
func (s *APISource) SchemaQuery(d Dataset) ([]byte, error) {
	return json.Marshal(map[string]string{
		"query": fmt.Sprintf("SELECT * FROM `%s`.`%s` LIMIT 10", s.cfg.Branch, d.Path),
	})
}

// DataURL returns the CSV export URL of d.
func (s *APISource) DataURL(d Dataset) string {
	return fmt.Sprintf("%s/datasets/%s/branches/%s/csv", strings.TrimSuffix(s.cfg.Endpoint, "/"), d.RID, s.cfg.Branch)
}

// FetchSchema posts the schema query and returns the response body.
func (s *APISource) FetchSchema(ctx context.Context, d Dataset) ([]byte, error) {
	const op = "APISource.FetchSchema"

	if err := s.validate(op); err != nil {
		return nil, err
	}
	body, err := s.SchemaQuery(d)
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to encode schema query", err, false, false)
	}
	url := strings.TrimSuffix(s.cfg.Endpoint, "/") + "/query"

	var result []byte
	err = s.retry(ctx, op, d.Name, url, "POST to", "get the data from", func(attemptCtx context.Context) error {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		s.authorize(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		result, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchData downloads the dataset CSV into dest.
func (s *APISource) FetchData(ctx context.Context, d Dataset, dest string) error {
	const op = "APISource.FetchData"

	if err := s.validate(op); err != nil {
		return err
	}
	url := s.DataURL(d)

	return s.retry(ctx, op, d.Name, url, "download from", "download data from", func(attemptCtx context.Context) error {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		s.authorize(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		logger.Debugf("Response Code: %d", resp.StatusCode)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("error while downloading file: [%s] %s", url, resp.Status)
		}
		logger.Debugf("Saving response to file: [%s]", dest)
		if err := writeFile(dest, resp.Body); err != nil {
			return err
		}
		logger.Debugf("File download completed.")
		return nil
	})
}

func (s *APISource) validate(op string) error {
	if s.cfg.Token == "" {
		return exception.NewValidationError(op, "API token is not specified; set surfin.source.token")
	}
	if s.cfg.Endpoint == "" {
		return exception.NewValidationError(op, "API endpoint is not specified; set surfin.source.endpoint")
	}
	return nil
}

func (s *APISource) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
}

// retry runs call up to RetryLimit times. Each attempt waits for the limiter and is bounded
// by the request timeout. Exhaustion yields a FetchError.
func (s *APISource) retry(ctx context.Context, op, step, url, subject, verb string, call func(context.Context) error) error {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= s.cfg.RetryLimit; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return exception.NewFetchError(op, fmt.Sprintf("interrupted before attempt %d on [%s]", attempt, url), err)
		}
		attempts = attempt
		logger.Infof("Attempt %d. REST Request sent to [%s].", attempt, url)

		lastErr = s.attempt(ctx, subject, url, call)
		if lastErr == nil {
			return nil
		}
		logger.Errorf("Attempt %d against [%s] failed: %v", attempt, url, lastErr)
		if ctx.Err() != nil {
			break
		}
		if attempt < s.cfg.RetryLimit {
			s.recorder.RecordItemRetry(ctx, step, retryReasonFetch)
		}
	}

	msg := fmt.Sprintf("[%d] attempts. Unable to %s [%s].", attempts, verb, url)
	logger.Errorf("%s", msg)
	return exception.NewFetchError(op, msg, lastErr)
}

func (s *APISource) attempt(ctx context.Context, subject, url string, call func(context.Context) error) error {
	attemptCtx := ctx
	if s.cfg.RequestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.RequestTimeoutSeconds)*time.Second)
		defer cancel()
	}

	if s.cfg.LogWhileWaiting {
		stop := s.logWhileWaiting(subject, url)
		defer stop()
	}
	return call(attemptCtx)
}

// logWhileWaiting logs a progress line every wait interval until the returned stop is called.
func (s *APISource) logWhileWaiting(subject, url string) func() {
	interval := time.Duration(s.cfg.LogWaitIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			logger.Debugf("Waiting to finish the %s [%s]", subject, url)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

var _ DataSource = (*APISource)(nil)
