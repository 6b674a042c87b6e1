package skill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dayflow/gateway"
	"dayflow/logger"
)

const DefaultCallTimeout = 30 * time.Second

// GatewayCaller is the slice of the connection manager the executor needs.
type GatewayCaller interface {
	Call(ctx context.Context, msg gateway.OutboundMessage, timeout time.Duration) (gateway.InboundMessage, error)
}

// Executor validates inputs against the registry, executes skills through the
// gateway connection under a per-call timeout, and records rolling metrics on
// every outcome.
type Executor struct {
	registry    *Registry
	conn        GatewayCaller
	callTimeout time.Duration
}

func NewExecutor(registry *Registry, conn GatewayCaller, callTimeout time.Duration) *Executor {
	if callTimeout == 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Executor{
		registry:    registry,
		conn:        conn,
		callTimeout: callTimeout,
	}
}

// ExecuteSkill runs a registered skill. Parameter validation happens before
// any network interaction; responses are validated per skill category before
// being returned.
func (e *Executor) ExecuteSkill(ctx context.Context, name string, params map[string]interface{}) (Result, error) {
	def, ok := e.registry.Get(name)
	if !ok {
		return Result{}, UnknownSkillError{Name: name}
	}

	var missing []string
	for _, required := range def.RequiredParams {
		if _, present := params[required]; !present {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return Result{}, MissingParametersError{Skill: name, Missing: missing}
	}

	start := time.Now()
	resp, err := e.conn.Call(ctx, gateway.OutboundMessage{
		Type:      gateway.MessageTypeExecuteSkill,
		SkillName: name,
		Params:    params,
	}, e.callTimeout)
	latency := time.Since(start)

	l := logger.Get()
	if err != nil {
		e.registry.recordExecution(name, false, latency)
		if errors.Is(err, gateway.ErrRequestTimeout) {
			return Result{}, SkillTimeoutError{Name: name}
		}
		return Result{}, fmt.Errorf("skill %s execution failed: %w", name, err)
	}

	if !resp.Success {
		e.registry.recordExecution(name, false, latency)
		return Result{}, fmt.Errorf("skill %s failed: %s", name, resp.Error)
	}

	result, err := validateResponse(def, resp)
	if err != nil {
		e.registry.recordExecution(name, false, latency)
		l.Warn().Err(err).Str("skill", name).Msg("skill response failed validation")
		return Result{}, err
	}

	e.registry.recordExecution(name, true, latency)
	return result, nil
}

// SystemHealth exposes the registry's aggregated health report.
func (e *Executor) SystemHealth() SystemHealth {
	return e.registry.SystemHealth()
}
