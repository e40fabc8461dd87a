package client

import (
	"fmt"

	"github.com/pithecene-io/physlink/types"
)

// handler consumes one status. It may update caches, rewrite
// c.lastStatus, and return a follow-up request to issue once the status
// has been marked processed. A non-nil follow-up keeps the logical
// operation open and Poll reports nil.
type handler func(c *Client, st *types.Status) *followUp

type followUp struct {
	cmd  types.CommandType
	args types.CommandArgs
}

// handlers routes every server status tag. It is checked against
// types.StatusTypes at init so no tag can be left unrouted.
var handlers = buildHandlers()

func init() {
	if err := checkHandlers(handlers); err != nil {
		panic(err)
	}
}

func buildHandlers() map[types.StatusType]handler {
	h := map[types.StatusType]handler{
		types.StatusURDFLoadingCompleted:       (*Client).onURDFLoaded,
		types.StatusSDFLoadingCompleted:        (*Client).onSceneLoaded,
		types.StatusMJCFLoadingCompleted:       (*Client).onSceneLoaded,
		types.StatusBodyInfoCompleted:          (*Client).onBodyInfo,
		types.StatusBodyInfoFailed:             (*Client).onBodyInfoFailed,
		types.StatusResetSimulationCompleted:   (*Client).onReset,
		types.StatusActualStateUpdateCompleted: (*Client).onActualState,
	}

	for _, s := range []types.StatusType{
		types.StatusClientCommandCompleted,
		types.StatusBulletLoadingCompleted,
		types.StatusBulletSavingCompleted,
		types.StatusSaveWorldCompleted,
		types.StatusBulletDataStreamReceivedCompleted,
		types.StatusRigidBodyCreationCompleted,
		types.StatusDesiredStateReceivedCompleted,
		types.StatusStepForwardSimulationCompleted,
		types.StatusVisualShapeUpdateCompleted,
		types.StatusLoadTextureCompleted,
		types.StatusInverseDynamicsCompleted,
		types.StatusInverseKinematicsCompleted,
		types.StatusUserDebugDrawCompleted,
		types.StatusUserConstraintCompleted,
	} {
		h[s] = (*Client).onAck
	}

	for _, s := range []types.StatusType{
		types.StatusURDFLoadingFailed,
		types.StatusSDFLoadingFailed,
		types.StatusMJCFLoadingFailed,
		types.StatusBulletLoadingFailed,
		types.StatusBulletSavingFailed,
		types.StatusSaveWorldFailed,
		types.StatusBulletDataStreamReceivedFailed,
		types.StatusActualStateUpdateFailed,
		types.StatusVisualShapeUpdateFailed,
		types.StatusLoadTextureFailed,
		types.StatusInverseDynamicsFailed,
		types.StatusInverseKinematicsFailed,
		types.StatusUserDebugDrawFailed,
		types.StatusUserConstraintFailed,
	} {
		h[s] = (*Client).onFailed
	}

	for _, f := range chunkFamilies {
		h[f.completed] = f.onChunk
		h[f.failed] = f.onFailed
	}
	return h
}

func checkHandlers(h map[types.StatusType]handler) error {
	for _, s := range types.StatusTypes() {
		if h[s] == nil {
			return fmt.Errorf("no handler for status %s", s)
		}
	}
	for s := range h {
		if !s.Valid() || s == types.StatusSharedMemoryNotInitialized {
			return fmt.Errorf("handler registered for non-server status %s", s)
		}
	}
	return nil
}

// Poll consumes at most one pending status. It returns nil when nothing
// is outstanding, the server has not answered yet, or the answer started
// a follow-up request. Otherwise it returns a copy of the status that
// completes the caller's command.
//
// Poll panics with *ProtocolError when the block holds more than one
// unconsumed status, a status cannot be decoded, or its tag is unknown.
func (c *Client) Poll() *types.Status {
	if !c.connected {
		return c.surface(types.Status{Type: types.StatusSharedMemoryNotInitialized})
	}
	if !c.waiting {
		return nil
	}
	if !c.block.Initialized() {
		return c.surface(types.Status{Type: types.StatusSharedMemoryNotInitialized})
	}

	switch pending := c.block.PendingStatuses(); pending {
	case 0:
		return nil
	case 1:
	default:
		c.fatal(ProtocolPendingCount, fmt.Sprintf("%d unconsumed statuses (server %d, processed %d)",
			pending, c.block.NumServerCommands(), c.block.NumProcessedServerCommands()), nil)
	}

	st, err := c.block.ReadStatus()
	if err != nil {
		c.fatal(ProtocolStatusDecode, "cannot decode server status", err)
	}
	h := handlers[st.Type]
	if h == nil {
		c.fatal(ProtocolUnknownStatus, fmt.Sprintf("unknown status tag %d", int32(st.Type)), nil)
	}

	c.lastStatus = *st
	c.metrics.IncStatusConsumed()
	next := h(c, st)

	c.block.IncProcessedServerCommands()
	c.waiting = c.block.NumServerCommands() != c.block.NumProcessedServerCommands()

	if next != nil {
		c.submitFollowUp(next.cmd, next.args)
		return nil
	}
	out := c.lastStatus
	return &out
}

func (c *Client) surface(st types.Status) *types.Status {
	c.lastStatus = st
	out := st
	return &out
}

// LastStatus returns a copy of the most recently consumed or synthesized
// status.
func (c *Client) LastStatus() types.Status {
	return c.lastStatus
}

func (c *Client) onAck(st *types.Status) *followUp {
	c.logger.Debug("server acknowledged command", map[string]any{"status": st.Type.String()})
	return nil
}

func (c *Client) onFailed(st *types.Status) *followUp {
	c.logger.Warn("server reported failure", map[string]any{"status": st.Type.String()})
	c.metrics.IncOperationFailure(st.Type.String())
	return nil
}

func (c *Client) onReset(st *types.Status) *followUp {
	c.caches.ResetSimulation()
	c.logger.Debug("simulation reset, caches cleared", nil)
	return nil
}

func (c *Client) onActualState(st *types.Status) *followUp {
	args, ok := st.Args.(types.ActualStateArgs)
	if !ok {
		return nil
	}
	nq := clampDOF(args.NumDegreeOfFreedomQ)
	nu := clampDOF(args.NumDegreeOfFreedomU)
	c.caches.States.Put(types.ActualState{
		BodyUniqueID: int(args.BodyUniqueID),
		Q:            args.ActualStateQ[:nq],
		QDot:         args.ActualStateQdot[:nu],
	})
	c.logger.Debug("received actual state", map[string]any{
		"body": args.BodyUniqueID, "dof_q": nq, "dof_u": nu,
	})
	return nil
}

func clampDOF(n int32) int {
	switch {
	case n < 0:
		return 0
	case n > types.MaxDegreesOfFreedom:
		return types.MaxDegreesOfFreedom
	default:
		return int(n)
	}
}
