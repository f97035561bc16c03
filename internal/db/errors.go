package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrNotReady    = errors.New("db: store not ready")
)

// Op constants identify the underlying command for error context.
const (
	OpZAdd            = "ZADD"
	OpZIncrBy         = "ZINCRBY"
	OpZScore          = "ZSCORE"
	OpZRevRange       = "ZREVRANGE"
	OpZRemRangeByRank = "ZREMRANGEBYRANK"
	OpZRem            = "ZREM"
	OpZCard           = "ZCARD"
	OpHSet            = "HSET"
	OpHGetAll         = "HGETALL"
	OpHIncrBy         = "HINCRBY"
	OpDel             = "DEL"
	OpExists          = "EXISTS"
	OpScan            = "SCAN"
	OpGet             = "GET"
	OpSet             = "SET"
	OpExpire          = "EXPIRE"
	OpPing            = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
