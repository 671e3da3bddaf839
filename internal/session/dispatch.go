package session

import (
	"context"

	"bridge/internal/adapter"
	"bridge/internal/adapter/enum"
	"bridge/internal/codec"
	"bridge/internal/correlation"
	"bridge/internal/errors"
	"bridge/pkg/exception"
	"bridge/pkg/websocket"

	"github.com/yanun0323/logs"
)

// readLoop is the only reader of conn. Frames are dispatched in arrival order.
func (s *Session) readLoop(ctx context.Context, conn websocket.Conn) error {
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			if s.closing() || ctx.Err() != nil {
				return nil
			}
			err = errors.Wrap(exception.ErrTransport, err.Error())
			s.fail(err)
			return err
		}

		if msgType != websocket.MessageText && msgType != websocket.MessageBinary {
			continue
		}

		s.dispatch(payload)
	}
}

func (s *Session) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateClosing || s.state == StateClosed
}

func (s *Session) dispatch(payload []byte) {
	frame, err := codec.DecodeFrame(payload)
	if err != nil {
		s.metrics.IncMalformed()
		logs.Warnf("session %s: drop malformed frame (%d bytes), err: %+v", s.id, len(payload), err)
		return
	}

	if id, ok := frame.ID(); ok {
		if s.takeAuth(id) {
			s.handleAuth(id, frame)
			return
		}

		if call, ok := s.table.TakeIfPresent(id); ok {
			s.resolve(call, frame)
			return
		}

		if s.table.WasAbandoned(id) {
			s.recorder.Forget(id)
			s.metrics.IncLateReply()
			logs.Warnf("session %s: late reply %d dropped", s.id, id)
			return
		}
	}

	s.notify(frame, payload)
}

// takeAuth reports whether id answers the outstanding auth request, clearing it.
func (s *Session) takeAuth(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authPending || s.authID != id {
		return false
	}
	s.authPending = false
	return true
}

func (s *Session) handleAuth(id uint64, frame codec.Frame) {
	elapsed, _ := s.recorder.MarkReceived(id)

	if frame.Error != nil {
		s.fail(errors.Wrap(exception.ErrAuthRejected, frame.Error.Error()))
		return
	}

	res, err := codec.DecodeAuthResult(frame.Result)
	if err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	if s.state != StateAuthenticating {
		s.mu.Unlock()
		return
	}
	s.token = res.AccessToken
	s.failure = nil
	s.setStateLocked(StateReady)
	s.mu.Unlock()

	logs.Infof("session %s: authenticated in %s, scope %q, expires in %ds", s.id, elapsed, res.Scope, res.ExpiresIn)
}

func (s *Session) resolve(call *correlation.PendingCall, frame codec.Frame) {
	elapsed, ok := s.recorder.MarkReceived(call.ID)
	if !ok {
		elapsed = s.now().Sub(call.SentAt)
	}

	env := adapter.Envelope{
		ID:      call.ID,
		Method:  call.Method,
		Payload: frame.Result,
		Status:  enum.CallStatusSuccess,
		Latency: elapsed,
	}
	if frame.Error != nil {
		env.Status = enum.CallStatusRemoteError
		env.Error = frame.Error
	}
	if remote, ok := frame.RemoteLatency(); ok {
		env.RemoteLatency = remote
		env.HasRemoteLatency = true
	}

	if call.Resolve(env) {
		s.metrics.ObserveSessionCall(env)
	}
	s.waiters.Settle(call.ID)
	logs.Debugf("session %s: %s (%d) %s in %s", s.id, call.Method, call.ID, env.Status, elapsed)
}

func (s *Session) notify(frame codec.Frame, payload []byte) {
	routed := false
	if channel := frame.Channel(); channel != "" {
		routed = s.router.Route(&websocket.Frame{
			Channel:  channel,
			Payload:  frame.Params.Data,
			Received: s.now(),
		})
	}
	s.metrics.IncNotification(routed)

	if routed {
		return
	}

	if s.onNotification != nil {
		s.onNotification(payload)
		return
	}
	logs.Debugf("session %s: unhandled message (%d bytes)", s.id, len(payload))
}
