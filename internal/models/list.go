package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// UUIDList is a JSON-encoded list of entity ids. Freelancer applications and
// current/completed project memberships are id references, not embedded rows.
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		l = UUIDList{}
	}
	return json.Marshal(l)
}

func (l *UUIDList) Scan(value interface{}) error {
	if value == nil {
		*l = UUIDList{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for UUIDList: %T", value)
	}
	if len(b) == 0 {
		*l = UUIDList{}
		return nil
	}
	return json.Unmarshal(b, l)
}

func (UUIDList) GormDataType() string {
	return "jsonb"
}

func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Without returns the list with the first occurrence of id removed. The
// second value reports whether id was present.
func (l UUIDList) Without(id uuid.UUID) (UUIDList, bool) {
	out := make(UUIDList, 0, len(l))
	removed := false
	for _, v := range l {
		if !removed && v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out, removed
}
