package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sympep"

var (
	ProposalsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proposals_created_total",
		Help:      "Proposals created in Draft.",
	})

	NumbersAssigned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "numbers_assigned_total",
		Help:      "Proposal numbers handed out by the numbering authority.",
	})

	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Applied status transitions.",
	}, []string{"from", "to"})

	RejectedOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_operations_total",
		Help:      "Operations refused with a process error.",
	}, []string{"operation", "reason"})

	DiscussionsLinked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "discussions_linked_total",
		Help:      "Discussion links appended to proposals.",
	})

	RegistryPublishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registry_publishes_total",
		Help:      "Registry index publication attempts.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		ProposalsCreated,
		NumbersAssigned,
		Transitions,
		RejectedOperations,
		DiscussionsLinked,
		RegistryPublishes,
	)
}

// Handler exposes the default registry for scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
