package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AttachmentList maps the attachments jsonb column to a Go slice.
type AttachmentList []Attachment

// Value implements driver.Valuer.
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AttachmentList) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attachment list type %T", src)
	}
	return json.Unmarshal(data, a)
}
