package notifier

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/novaplay/spinboard/internal/domain/ranking"
	"github.com/novaplay/spinboard/internal/platform/logging"
	"github.com/novaplay/spinboard/internal/platform/resilience"
)

var errWebhookTransient = crerr.New("webhook transient failure")

type WebhookConfig struct {
	// TargetURL receives a POST per delivered snapshot.
	TargetURL string
	// TopRows caps how many rows go onto the wire per notification.
	TopRows        int
	AuthToken      string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Webhook pushes snapshot notifications to an external transport. It
// implements the broadcaster's Consumer contract: delivery is offered,
// never retried here.
type Webhook struct {
	client         *fasthttp.Client
	targetURL      string
	topRows        int
	authToken      string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewWebhook(cfg WebhookConfig, logger *logging.Logger) (*Webhook, error) {
	targetURL := strings.TrimSpace(cfg.TargetURL)
	if targetURL == "" {
		return nil, crerr.New("webhook target url is required")
	}
	if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
		return nil, crerr.Newf("webhook target url %q must be http or https", targetURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	topRows := cfg.TopRows
	if topRows <= 0 {
		topRows = 50
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Webhook{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		targetURL:      targetURL,
		topRows:        topRows,
		authToken:      strings.TrimSpace(cfg.AuthToken),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

type webhookPayload struct {
	LeaderboardID string        `json:"leaderboard_id"`
	Version       uint64        `json:"version"`
	TakenAt       time.Time     `json:"taken_at"`
	TotalPlayers  int           `json:"total_players"`
	Rows          []ranking.Row `json:"rows"`
}

func (w *Webhook) Deliver(ctx context.Context, snapshot *ranking.Snapshot) error {
	if snapshot == nil {
		return crerr.New("snapshot is required")
	}

	if w.circuitEnabled {
		if err := w.breaker.Allow(); err != nil {
			w.logger.WarnContext(ctx, "webhook circuit breaker rejected delivery",
				"state", w.breaker.State(),
				"leaderboard_id", snapshot.LeaderboardID,
				"version", snapshot.Version,
			)
			return fmt.Errorf("webhook is temporarily unavailable: %w", err)
		}
	}

	payload := webhookPayload{
		LeaderboardID: snapshot.LeaderboardID,
		Version:       snapshot.Version,
		TakenAt:       snapshot.TakenAt,
		TotalPlayers:  len(snapshot.Rows),
		Rows:          snapshot.Top(w.topRows),
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal webhook payload")
	}
	_, _ = buf.Write(body)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.targetURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if w.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.authToken)
	}
	req.SetBody(buf.B)

	if err := w.client.DoTimeout(req, resp, w.timeout); err != nil {
		callErr := fmt.Errorf("%w: post snapshot leaderboard=%s version=%d: %v",
			errWebhookTransient, snapshot.LeaderboardID, snapshot.Version, err)
		w.recordCircuitResult(callErr)
		return callErr
	}

	status := resp.StatusCode()
	if status/100 != 2 {
		if isRetryableStatus(status) {
			callErr := fmt.Errorf("%w: post snapshot status=%d leaderboard=%s version=%d",
				errWebhookTransient, status, snapshot.LeaderboardID, snapshot.Version)
			w.recordCircuitResult(callErr)
			return callErr
		}
		callErr := fmt.Errorf("post snapshot status=%d leaderboard=%s version=%d",
			status, snapshot.LeaderboardID, snapshot.Version)
		w.recordCircuitResult(callErr)
		return callErr
	}

	w.recordCircuitResult(nil)
	w.logger.DebugContext(ctx, "snapshot webhook delivered",
		"leaderboard_id", snapshot.LeaderboardID,
		"version", snapshot.Version,
		"rows", len(payload.Rows),
	)
	return nil
}

func (w *Webhook) recordCircuitResult(err error) {
	if !w.circuitEnabled || w.breaker == nil {
		return
	}
	if err == nil {
		w.breaker.RecordSuccess()
		return
	}
	if stderrors.Is(err, errWebhookTransient) {
		w.breaker.RecordFailure()
		return
	}
	w.breaker.RecordSuccess()
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusRequestTimeout ||
		status == fasthttp.StatusTooManyRequests ||
		status >= fasthttp.StatusInternalServerError
}
