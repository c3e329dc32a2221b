package repository

import "errors"

// ErrCursorNotFound 表示分页游标指向的记录不存在。
var ErrCursorNotFound = errors.New("repository: cursor not found")
