package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Value implements driver.Valuer so gorm can persist JobProgress as JSON text.
func (p JobProgressColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(JobProgress(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *JobProgressColumn) Scan(src any) error {
	if src == nil {
		*p = JobProgressColumn{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JobProgressColumn", src)
	}
	if len(raw) == 0 {
		*p = JobProgressColumn{}
		return nil
	}
	var out JobProgress
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*p = JobProgressColumn(out)
	return nil
}
