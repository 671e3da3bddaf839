package exception

import "github.com/yanun0323/errors"

var (
	ErrPoolSaturated     = errors.New("pool: queue saturated")
	ErrPoolClosed        = errors.New("pool: closed")
	ErrPoolInvalidConfig = errors.New("pool: invalid worker config")
	ErrPoolNilTask       = errors.New("pool: nil task")
)
