package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, codecs and mappers return
// these (wrapped with context) so the authorization runtime can branch with
// errors.Is instead of matching messages.
//
// - ErrNotFound: no row for the given key; expected, never logged as an error
// - ErrConstraintViolation: a unique index rejected the write (duplicate client_id, token value)
// - ErrCorruptData: stored settings, metadata or attributes failed to decode
// - ErrConsistencyViolation: a supposedly-unique multi-field lookup matched several rows
// - ErrUnsupportedValue: the caller handed over a value the encoding cannot represent
// - ErrStorage: the relational store failed (transport, transaction, capacity)
var (
	ErrNotFound             = errors.New("not found")
	ErrConstraintViolation  = errors.New("constraint violation")
	ErrCorruptData          = errors.New("corrupt data")
	ErrConsistencyViolation = errors.New("consistency violation")
	ErrUnsupportedValue     = errors.New("unsupported value")
	ErrStorage              = errors.New("storage error")
)
