// Package metrics holds the Prometheus instrumentation shared by the review
// workers and the message dispatcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcome label values.
const (
	OutcomeOK         = "ok"
	OutcomeRetry      = "retry"
	OutcomeDeadLetter = "dead_letter"
	OutcomeAckFailed  = "ack_failed"
)

var (
	// MessagesProcessed counts dispatched messages by worker and outcome.
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagereview",
		Name:      "messages_processed_total",
		Help:      "Messages dispatched to a worker, by outcome.",
	}, []string{"worker", "outcome"})

	// MalformedMessages counts messages discarded for missing required
	// fields, by worker.
	MalformedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagereview",
		Name:      "malformed_messages_total",
		Help:      "Messages discarded because a required field was missing.",
	}, []string{"worker"})

	// EmailsSent counts notification emails handed to the transport.
	EmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "imagereview",
		Name:      "emails_sent_total",
		Help:      "Notification emails sent.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
