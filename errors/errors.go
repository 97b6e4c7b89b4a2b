package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrUnauthenticated    = fmt.Errorf("connection has no bound identity")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrHandleTaken        = fmt.Errorf("handle already taken")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrGroupNotFound      = fmt.Errorf("group not found")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrMediaNotFound      = fmt.Errorf("media not found")
	ErrNotAMember         = fmt.Errorf("not a member of the group")
	ErrAlreadyMember      = fmt.Errorf("already a member of the group")
	ErrInvalidJoinCode    = fmt.Errorf("invalid join code")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrPermissionDenied   = fmt.Errorf("permission denied")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)
