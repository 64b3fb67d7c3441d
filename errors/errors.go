package errors

import "fmt"

var (
	ErrDuplicateConnection = fmt.Errorf("connection id already registered")
	ErrNotAuthenticated    = fmt.Errorf("action requires a registered session")
	ErrMessageNotFound     = fmt.Errorf("message not found")
	ErrInvalidToken        = fmt.Errorf("invalid identity token")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)
