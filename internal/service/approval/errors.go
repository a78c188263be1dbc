package approval

import "errors"

var (
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("approval: record not found")
	// ErrState 记录已处于终态，审批决定不可再变更
	ErrState = errors.New("approval: invalid state transition")
)
