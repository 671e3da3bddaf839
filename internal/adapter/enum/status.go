package enum

// CallStatus is the outcome of one correlated or one-shot call.
type CallStatus uint8

const (
	_call_status_beg CallStatus = iota
	CallStatusSuccess
	CallStatusRemoteError
	CallStatusTimedOut
	CallStatusSendFailed
	CallStatusSessionClosed
	CallStatusTransportError
	_call_status_end
)

// CallStatusCount sizes per-status counter arrays.
const CallStatusCount = int(_call_status_end)

func (s CallStatus) IsAvailable() bool {
	return s > _call_status_beg && s < _call_status_end
}

func (s CallStatus) String() string {
	switch s {
	case CallStatusSuccess:
		return "success"
	case CallStatusRemoteError:
		return "remote_error"
	case CallStatusTimedOut:
		return "timed_out"
	case CallStatusSendFailed:
		return "send_failed"
	case CallStatusSessionClosed:
		return "session_closed"
	case CallStatusTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}
