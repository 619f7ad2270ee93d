package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// EncodeHandle returns the compact base58 form of a proposal id, used as the
// placeholder reference while a proposal has no number.
func EncodeHandle(id uuid.UUID) string {
	return base58.Encode(id[:])
}

// DecodeHandle reverses EncodeHandle.
func DecodeHandle(handle string) (uuid.UUID, error) {
	raw, err := base58.Decode(handle)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode handle: %w", err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid handle %q: %w", handle, err)
	}
	return id, nil
}

// Ref is a parsed proposal reference. Exactly one of Number or ID is set.
type Ref struct {
	Number int64
	ID     uuid.UUID
}

func (r Ref) String() string {
	if r.Number > 0 {
		return FormatNumber(r.Number)
	}
	return EncodeHandle(r.ID)
}

// ParseRef accepts a proposal number ("7", "0007", "SymPEP-7"), a uuid, or a
// base58 handle.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("empty proposal reference")
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "sympep-"), "sympep")
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		if n <= 0 {
			return Ref{}, fmt.Errorf("proposal number must be positive, got %d", n)
		}
		return Ref{Number: n}, nil
	}

	if id, err := uuid.Parse(s); err == nil {
		return Ref{ID: id}, nil
	}

	id, err := DecodeHandle(s)
	if err != nil {
		return Ref{}, fmt.Errorf("unrecognized proposal reference %q", s)
	}
	return Ref{ID: id}, nil
}

// FormatNumber renders a number the way the registry lists it, e.g. "SymPEP-0007".
func FormatNumber(n int64) string {
	return fmt.Sprintf("SymPEP-%04d", n)
}
