package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pulseproto/pulsegate/adapters/metrics"
	"github.com/pulseproto/pulsegate/domain/audit"
	"github.com/pulseproto/pulsegate/domain/gateway"
	"github.com/pulseproto/pulsegate/domain/sanitize"
	"github.com/pulseproto/pulsegate/ports"
)

// Terminal pipeline outcomes, used for logging and metrics labels.
const (
	OutcomeSuccess         = "success"
	OutcomeAuthRejected    = "auth_rejected"
	OutcomeQuotaRejected   = "quota_rejected"
	OutcomeSecurityBlocked = "security_blocked"
	OutcomeInvalidMessage  = "invalid_message"
	OutcomeUnknownProvider = "unknown_provider"
	OutcomeAdapterError    = "adapter_error"
)

// GatewayService runs the request-admission pipeline:
// authentication, quota, injection check, sanitization, dispatch, audit.
// Stages run in strict order; any stage may short-circuit the rest.
type GatewayService struct {
	ledger   ports.QuotaLedger
	filter   *Filter
	trail    ports.AuditTrail
	registry ports.AdapterRegistry
	clock    ports.Clock
	idGen    ports.IDGenerator
	metrics  *metrics.Collector // optional
	logger   zerolog.Logger
}

// GatewayDeps contains dependencies for GatewayService.
type GatewayDeps struct {
	Ledger   ports.QuotaLedger
	Filter   *Filter
	Trail    ports.AuditTrail
	Registry ports.AdapterRegistry
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Metrics  *metrics.Collector
	Logger   zerolog.Logger
}

// NewGatewayService creates a new gateway pipeline service.
func NewGatewayService(deps GatewayDeps) *GatewayService {
	return &GatewayService{
		ledger:   deps.Ledger,
		filter:   deps.Filter,
		trail:    deps.Trail,
		registry: deps.Registry,
		clock:    deps.Clock,
		idGen:    deps.IDGen,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

// Result is the outcome of one pipeline run. Exactly one of Response or
// Reject is meaningful: Reject is non-nil only for auth and quota
// rejections, which are the only transport-level error statuses.
type Result struct {
	Outcome  string
	Response gateway.Response
	Reject   *gateway.ErrorResponse
}

// Handle processes one gateway request through the full pipeline.
func (s *GatewayService) Handle(ctx context.Context, req gateway.Request) Result {
	requestID := s.idGen.New()
	start := s.clock.Now()

	if s.metrics != nil {
		s.metrics.RequestsInFlight.Inc()
		defer s.metrics.RequestsInFlight.Dec()
	}

	res := s.run(ctx, requestID, req)

	s.observe(req.Provider, res)
	if s.metrics != nil {
		s.metrics.RequestDuration.WithLabelValues(res.Outcome).Observe(s.clock.Now().Sub(start).Seconds())
	}
	s.logger.Debug().
		Str("request_id", requestID).
		Str("provider", req.Provider).
		Str("outcome", res.Outcome).
		Dur("elapsed", s.clock.Now().Sub(start)).
		Msg("pipeline run")

	return res
}

// Providers returns the registered provider names in sorted order.
func (s *GatewayService) Providers() []string {
	return s.registry.Names()
}

// Describe returns per-provider introspection data.
func (s *GatewayService) Describe() map[string]ports.ProviderInfo {
	return s.registry.Describe()
}

func (s *GatewayService) run(ctx context.Context, requestID string, req gateway.Request) Result {
	// 1. Authentication: the key must be present. Not audited.
	if req.APIKey == "" {
		reject := gateway.ErrMissingKey
		return Result{Outcome: OutcomeAuthRejected, Reject: &reject}
	}

	// 2. Quota: consumes one slot on admission. Denials carry the decision
	// diagnostic; no security work happens for denied keys.
	dec := s.ledger.Check(ctx, req.APIKey, s.clock.Now())
	if !dec.Allowed {
		if s.metrics != nil {
			s.metrics.QuotaDenials.WithLabelValues(dec.Reason).Inc()
		}
		return Result{Outcome: OutcomeQuotaRejected, Reject: gateway.QuotaRejection(dec)}
	}

	// 3. Injection check on the first candidate text field.
	verdict := s.filter.Check(candidateText(req.Parameters))
	if verdict.Blocked {
		s.record(audit.Entry{
			RequestID: requestID,
			Action:    req.Action,
			Provider:  req.Provider,
			Blocked:   true,
			Reason:    verdict.Category,
			KeyPrefix: audit.TruncateKey(req.APIKey),
		})
		return Result{
			Outcome: OutcomeSecurityBlocked,
			Response: gateway.Response{
				Success:   false,
				RequestID: requestID,
				Provider:  req.Provider,
				// Vague on purpose: the exact signature stays server-side.
				Error: fmt.Sprintf("Request blocked: potential %s detected. If this is a false positive, contact support.", verdict.Category),
				Usage: &dec,
			},
		}
	}

	// 4. Sanitize parameters before anything downstream can log them.
	msg := gateway.Message{
		Action:     req.Action,
		Parameters: sanitize.Params(req.Parameters),
	}
	if err := msg.Validate(); err != nil {
		return Result{
			Outcome: OutcomeInvalidMessage,
			Response: gateway.Response{
				Success:   false,
				RequestID: requestID,
				Provider:  req.Provider,
				Error:     "Invalid message: " + err.Error(),
				Usage:     &dec,
			},
		}
	}

	// 5. Dispatch: resolve the adapter and make a single attempt.
	adapter, err := s.registry.Resolve(req.Provider, req.ProviderConfig)
	if err != nil {
		// Client input mistake: not audited, and the quota slot stays spent.
		return Result{
			Outcome: resolveOutcome(err),
			Response: gateway.Response{
				Success:   false,
				RequestID: requestID,
				Provider:  req.Provider,
				Error:     resolveErrorMessage(err, req.Provider, s.registry),
				Usage:     &dec,
			},
		}
	}

	dispatchStart := s.clock.Now()
	result, err := adapter.Send(ctx, msg)
	elapsed := s.clock.Now().Sub(dispatchStart)

	if s.metrics != nil {
		s.metrics.DispatchDuration.WithLabelValues(req.Provider).Observe(elapsed.Seconds())
	}

	if err != nil {
		// Unexpected adapter fault: audited with the raw error for
		// diagnosis; the caller gets a generic message.
		if s.metrics != nil {
			s.metrics.DispatchErrors.WithLabelValues(req.Provider, "fault").Inc()
		}
		s.record(audit.Entry{
			RequestID: requestID,
			Action:    req.Action,
			Provider:  req.Provider,
			Blocked:   false,
			Error:     err.Error(),
			KeyPrefix: audit.TruncateKey(req.APIKey),
		})
		s.logger.Warn().
			Str("request_id", requestID).
			Str("provider", req.Provider).
			Err(err).
			Msg("adapter dispatch failed")
		return Result{
			Outcome: OutcomeAdapterError,
			Response: gateway.Response{
				Success:   false,
				RequestID: requestID,
				Provider:  req.Provider,
				Error:     "Provider error: " + err.Error(),
				Usage:     &dec,
			},
		}
	}

	s.record(audit.Entry{
		RequestID: requestID,
		Action:    req.Action,
		Provider:  req.Provider,
		Blocked:   false,
		ElapsedMS: float64(elapsed.Microseconds()) / 1000.0,
		KeyPrefix: audit.TruncateKey(req.APIKey),
	})

	return Result{
		Outcome: OutcomeSuccess,
		Response: gateway.Response{
			Success:   true,
			RequestID: requestID,
			Provider:  req.Provider,
			Result:    result,
			Usage:     &dec,
		},
	}
}

// record appends to the trail and keeps the audit gauge in step.
func (s *GatewayService) record(e audit.Entry) {
	s.trail.Record(e)
	if s.metrics != nil {
		s.metrics.AuditEntries.Set(float64(s.trail.Count()))
	}
}

func (s *GatewayService) observe(provider string, res Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.RequestsTotal.WithLabelValues(res.Outcome, provider).Inc()
}

// candidateText extracts the text to run through the injection filter:
// the first non-empty of the text, prompt, and message parameters.
func candidateText(params map[string]any) string {
	for _, field := range []string{"text", "prompt", "message"} {
		if v, ok := params[field]; ok && v != nil {
			if text := stringify(v); text != "" {
				return text
			}
		}
	}
	return ""
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func resolveOutcome(err error) string {
	if errors.Is(err, ports.ErrAdapterUnavailable) {
		return OutcomeAdapterError
	}
	return OutcomeUnknownProvider
}

// resolveErrorMessage formats resolution failures for the caller.
func resolveErrorMessage(err error, provider string, registry ports.AdapterRegistry) string {
	if errors.Is(err, ports.ErrUnknownProvider) {
		return fmt.Sprintf("Unknown provider '%s'. Available: %s", provider, strings.Join(registry.Names(), ", "))
	}
	return err.Error()
}
