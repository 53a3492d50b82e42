package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/databacker/docker-database-backup/pkg/core"
)

const (
	DefaultTimeout = 5 * time.Second
	// after this many failed pings in a row, pings are skipped for breakerTimeout
	breakerFailures = 3
	breakerTimeout  = 5 * time.Minute
)

var _ core.Healthcheck = &Pinger{}

// Pinger reports cycles to a healthchecks.io style check URL: <url>/start, <url> and
// <url>/fail, with the message as body. Failures are logged and otherwise ignored.
type Pinger struct {
	url     string
	client  *http.Client
	logger  *log.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// New returns a pinger for the check URL. An empty URL disables pinging.
func New(url string, logger *log.Logger) *Pinger {
	p := &Pinger{
		url:    strings.TrimSuffix(url, "/"),
		client: &http.Client{Timeout: DefaultTimeout},
		logger: logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "healthcheck",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Debugf("healthcheck circuit %s -> %s", from, to)
		},
	})
	return p
}

func (p *Pinger) Start(ctx context.Context, message string) {
	p.ping(ctx, "/start", message)
}

func (p *Pinger) Success(ctx context.Context, message string) {
	p.ping(ctx, "", message)
}

func (p *Pinger) Fail(ctx context.Context, message string) {
	p.ping(ctx, "/fail", message)
}

func (p *Pinger) ping(ctx context.Context, path, message string) {
	if p.url == "" {
		return
	}
	url := p.url + path
	p.logger.Debugf("ping healthcheck %s", url)
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.post(ctx, url, message)
	})
	if err != nil {
		p.logger.Errorf("failed to ping healthcheck: %v", err)
	}
}

func (p *Pinger) post(ctx context.Context, url, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
