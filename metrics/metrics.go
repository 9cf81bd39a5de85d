package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StakeAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rich_bet_stake_amount_total",
		Help: "value staked, by side",
	}, []string{"side"})

	Stakes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rich_bet_stakes_total",
		Help: "accepted stakes, by side",
	}, []string{"side"})

	SettledRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rich_bet_settled_rounds_total",
		Help: "settled rounds, by winning side",
	}, []string{"winning_side"})

	FeeAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rich_bet_fee_amount_total",
		Help: "fee sent to the fee recipient",
	})

	ClaimAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rich_bet_claim_amount_total",
		Help: "value paid out by claims",
	})

	Claims = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rich_bet_claims_total",
		Help: "successful claims",
	})

	Rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rich_bet_rejected_total",
		Help: "rejected operations, by op and reason",
	}, []string{"op", "reason"})

	OpenRounds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rich_bet_open_rounds",
		Help: "rounds not settled yet, as seen by the keeper",
	})
)

func init() {
	prometheus.MustRegister(StakeAmount, Stakes, SettledRounds, FeeAmount, ClaimAmount, Claims, Rejected, OpenRounds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// 在 addr 上暴露 /metrics
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
