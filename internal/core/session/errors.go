package session

import "errors"

// Session lifecycle errors
var (
	ErrSessionIdle     = errors.New("session is idle, enter it first")
	ErrSessionTornDown = errors.New("session is torn down")
	ErrConnectFailed   = errors.New("connection to simulation server failed")
)
