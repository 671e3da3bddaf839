package exception

import "github.com/yanun0323/errors"

var (
	ErrConnect         = errors.New("connection: transport could not be established")
	ErrInResponseError = errors.New("there is an error in response error field")
)

var ErrTransport = errors.New("connection: transport error")
