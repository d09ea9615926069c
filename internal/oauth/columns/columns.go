// Package columns converts aggregate fields to and from their column
// representation: delimited sets, settings blobs, unix-microsecond
// timestamps and nullable strings. Both mappers share it so a client row and
// a session row follow the same rules.
package columns

import (
	"database/sql"
	"fmt"
	"slices"
	"time"

	"authserver/internal/oauth/models"
	"authserver/internal/oauth/settings"
	"authserver/pkg/platform/sentinel"
	pstrings "authserver/pkg/platform/strings"
)

// Delimiter separates set members in a column.
const Delimiter = ","

// Column capacities in bytes.
const (
	IDCapacity            = 100
	NameCapacity          = 200
	SecretCapacity        = 200
	SetCapacity           = 1000
	SettingsCapacity      = 2000
	AttributesCapacity    = 4000
	StateCapacity         = 500
	TokenValueCapacity    = 4000
	TokenMetadataCapacity = 2000
	TokenTypeCapacity     = 100
)

// CheckCapacity reports a value too long for its column as ErrStorage. Values
// are never truncated.
func CheckCapacity(column, value string, capacity int) error {
	if len(value) > capacity {
		return fmt.Errorf("column %s: %d bytes exceeds capacity %d: %w", column, len(value), capacity, sentinel.ErrStorage)
	}
	return nil
}

// EncodeSet writes the members sorted and comma-delimited. The empty set is
// the empty string.
func EncodeSet(column string, s models.Set) (string, error) {
	members := slices.Clone(s)
	slices.Sort(members)
	members = slices.Compact(members)
	out, err := pstrings.JoinDelimited(members, Delimiter)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", column, err)
	}
	if err := CheckCapacity(column, out, SetCapacity); err != nil {
		return "", err
	}
	return out, nil
}

// DecodeSet is the inverse of EncodeSet.
func DecodeSet(s string) models.Set {
	return models.NewSet(pstrings.SplitDelimited(s, Delimiter)...)
}

// EncodeSettings encodes m and checks it against the column capacity.
func EncodeSettings(column string, m settings.Map, capacity int) (string, error) {
	out, err := settings.Encode(m)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", column, err)
	}
	if err := CheckCapacity(column, out, capacity); err != nil {
		return "", err
	}
	return out, nil
}

// DecodeSettings decodes a settings column. A blob that fails to decode is
// ErrCorruptData naming the column.
func DecodeSettings(column, text string) (settings.Map, error) {
	m, err := settings.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return m, nil
}

// Normalize converts t to UTC at microsecond precision, the precision every
// timestamp column keeps.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func Micros(t time.Time) int64 {
	return t.UnixMicro()
}

func FromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

// NullMicros maps a nil time to NULL.
func NullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: Micros(*t), Valid: true}
}

func TimeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := FromMicros(v.Int64)
	return &t
}

// NullString maps the empty string to NULL.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
