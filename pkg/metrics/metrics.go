package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label constants.
const (
	Method    = "method"
	ToolName  = "tool_name"
	Status    = "status"
	Provider  = "provider"
	TokenType = "token_type"
)

var (
	//nolint:gochecknoglobals // This is how the prometheus magic works.
	// RPCRequestsTotal Total number of RPC requests handled, by method.
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Total number of RPC requests handled",
		},
		[]string{Method},
	)

	//nolint:gochecknoglobals // This is how the prometheus magic works.
	// RPCErrorsTotal Total number of RPC error responses, by error code.
	RPCErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_errors_total",
			Help: "Total number of RPC error responses",
		},
		[]string{"code"},
	)

	//nolint:gochecknoglobals // This is how the prometheus magic works.
	// ToolExecutionsTotal Total number of tool executions.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{ToolName, Status},
	)

	//nolint:gochecknoglobals // This is how the prometheus magic works.
	// ModelCallsTotal Total number of model API calls.
	ModelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_calls_total",
			Help: "Total number of model API calls",
		},
		[]string{Provider, Status},
	)

	//nolint:gochecknoglobals // This is how the prometheus magic works.
	// ModelTokensTotal Total number of tokens exchanged with model APIs.
	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_tokens_total",
			Help: "Total number of tokens exchanged with model APIs",
		},
		[]string{Provider, TokenType},
	)

	//nolint:gochecknoglobals // This is how the prometheus magic works.
	// SessionsActive Current number of active chat sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Current number of active chat sessions",
		},
	)
)

//nolint:gochecknoinits // This is how the prometheus magic works.
func init() {
	_ = prometheus.Register(RPCRequestsTotal)
	_ = prometheus.Register(RPCErrorsTotal)
	_ = prometheus.Register(ToolExecutionsTotal)
	_ = prometheus.Register(ModelCallsTotal)
	_ = prometheus.Register(ModelTokensTotal)
	_ = prometheus.Register(SessionsActive)
}
