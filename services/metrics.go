package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tournamentJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netwin",
		Name:      "tournament_joins_total",
		Help:      "Tournament join attempts by outcome.",
	}, []string{"outcome"})

	walletRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netwin",
		Name:      "wallet_requests_total",
		Help:      "Deposit and withdrawal requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	walletReviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netwin",
		Name:      "wallet_reviews_total",
		Help:      "Admin reviews of wallet requests by kind and decision.",
	}, []string{"kind", "decision"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netwin",
		Name:      "tournament_status_transitions_total",
		Help:      "Tournament status changes written by the sweeper.",
	}, []string{"to"})

	otpSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netwin",
		Name:      "otp_sends_total",
		Help:      "OTP send attempts by outcome.",
	}, []string{"outcome"})
)
