package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"newsfeed-account/internal/domain"
)

const (
	opSignUp         = "signup"
	opLogin          = "login"
	opUpdateProfile  = "update_profile"
	opChangePassword = "change_password"
	opWithdraw       = "withdraw"
	opGetProfile     = "get_profile"
)

var accountOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "account_operations_total", Help: "Account service operations by outcome"},
	[]string{"op", "result"},
)

func init() { prometheus.MustRegister(accountOps) }

// observe result 取 "ok" 或失败的 Kind 名
func observe(op string, errp *error) {
	result := "ok"
	if *errp != nil {
		result = domain.KindOf(*errp).String()
	}
	accountOps.WithLabelValues(op, result).Inc()
}
