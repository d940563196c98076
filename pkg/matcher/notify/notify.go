// Package notify posts best-effort Slack alerts when a match run can't be
// trusted: every candidate failed scoring, or persistence never verified.
// A notification failure never fails the run itself.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/sony/gobreaker"

	sharedhttp "github.com/opportumatch/matcher/pkg/shared/http"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
)

// breakerOpenTimeout is how long the breaker stays open after tripping
// before allowing a single probe request through.
const breakerOpenTimeout = 30 * time.Second

// consecutiveFailuresToTrip opens the breaker after this many webhook
// failures in a row, so a dead Slack endpoint stops costing a request per
// run.
const consecutiveFailuresToTrip = 5

// Notifier posts run-health alerts to a Slack incoming webhook, behind a
// circuit breaker so a failing webhook doesn't add latency to every run.
type Notifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewNotifier constructs a Notifier. An empty webhookURL yields a Notifier
// whose Notify calls are silent no-ops, so the matcher can run with
// alerting disabled without special-casing callers.
func NewNotifier(webhookURL, channel string, logger *logrus.Logger) *Notifier {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "slack-notifier",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailuresToTrip
		},
	})

	return &Notifier{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: sharedhttp.NewClient(sharedhttp.SlackClientConfig()),
		breaker:    breaker,
		logger:     logger,
	}
}

// Reason names why a run is being flagged to a human.
type Reason string

const (
	// ReasonAllCandidatesFailed fires when every retrieved candidate
	// failed scoring and the run produced zero ranked results.
	ReasonAllCandidatesFailed Reason = "all_candidates_failed"
	// ReasonPersistenceUnverified fires when the persister's read-back
	// count didn't match what the run expected to store.
	ReasonPersistenceUnverified Reason = "persistence_unverified"
)

// NotifyRunIssue posts a best-effort alert about a degraded run. It never
// returns an error to the caller: a broken webhook is logged and
// swallowed, since alerting must not take down matching.
func (n *Notifier) NotifyRunIssue(ctx context.Context, projectSlug string, reason Reason, detail string) {
	if n.webhookURL == "" {
		return
	}

	msg := slack.WebhookMessage{
		Channel: n.channel,
		Text:    fmt.Sprintf(":warning: Match run degraded for *%s*", projectSlug),
		Attachments: []slack.Attachment{
			{
				Color: "warning",
				Fields: []slack.AttachmentField{
					{Title: "reason", Value: string(reason), Short: true},
					{Title: "project", Value: projectSlug, Short: true},
					{Title: "detail", Value: detail, Short: false},
				},
			},
		},
	}

	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.post(ctx, msg)
	})
	if err != nil && n.logger != nil {
		n.logger.WithFields(sharedlogging.NewFields().
			Component("notify").
			Operation("notify_run_issue").
			Error(err).
			ToLogrus()).Warn("failed to deliver Slack alert")
	}
}

func (n *Notifier) post(ctx context.Context, msg slack.WebhookMessage) error {
	return slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, &msg)
}
