// Package command wraps the outbound control channel: mediation
// decisions and operator feedback sent back to the remote analysis
// engine. Commands are fire-and-forget with no acknowledgment contract.
package command

import "github.com/aegis-watch/console/internal/transport"

// Wire command names understood by the engine.
const (
	cmdApproveAction = "approve_action"
	cmdBlockAction   = "block_action"
	cmdConfirmThreat = "confirm_threat"
	cmdFalsePositive = "mark_false_positive"
	cmdHumanControl  = "request_human_control"
	cmdTerminate     = "terminate_session"
)

// Emitter sends typed commands through the transport. Every method
// returns transport.ErrNotConnected synchronously while offline; the
// command is discarded, never queued.
type Emitter struct {
	client *transport.Client
}

// NewEmitter returns an emitter bound to the given transport.
func NewEmitter(client *transport.Client) *Emitter {
	return &Emitter{client: client}
}

// ApproveAction lets a pending agent action proceed.
func (e *Emitter) ApproveAction(actionID string) error {
	return e.client.Send(cmdApproveAction, map[string]any{"actionId": actionID})
}

// BlockAction vetoes a pending agent action.
func (e *Emitter) BlockAction(actionID, reason string) error {
	return e.client.Send(cmdBlockAction, map[string]any{"actionId": actionID, "reason": reason})
}

// ConfirmThreat tells the engine a blocked threat was real.
func (e *Emitter) ConfirmThreat(threatID string) error {
	return e.client.Send(cmdConfirmThreat, map[string]any{"threatId": threatID})
}

// MarkFalsePositive tells the engine a detection was wrong.
func (e *Emitter) MarkFalsePositive(threatID string) error {
	return e.client.Send(cmdFalsePositive, map[string]any{"threatId": threatID})
}

// RequestHumanControl asks the engine to hand the session to the
// operator.
func (e *Emitter) RequestHumanControl() error {
	return e.client.Send(cmdHumanControl, nil)
}

// TerminateSession kills the remote session.
func (e *Emitter) TerminateSession(reason string) error {
	return e.client.Send(cmdTerminate, map[string]any{"reason": reason})
}
