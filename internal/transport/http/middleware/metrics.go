package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "HTTP request latency by route and method.",
		// bcrypt 路由常落在 50ms~1s 之间，默认桶在这段太稀
		Buckets: []float64{.005, .01, .025, .05, .1, .2, .35, .5, .75, 1, 2.5, 5, 10},
	}, []string{"route", "method"})

	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})
)

func init() { prometheus.MustRegister(requests, latency, inFlight) }

// 没匹配到路由的请求合成一个 route，防止 label 基数被扫描流量撑爆
const unmatchedRoute = "unmatched"

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		inFlight.Inc()
		start := time.Now()
		defer inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler 暴露默认 registry，业务计数器也注册在这里
func MetricsHandler() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
