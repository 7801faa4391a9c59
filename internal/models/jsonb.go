package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
)

// scanJSONB decodes a jsonb column into dest.
func scanJSONB(src interface{}, dest interface{}) error {
	if src == nil {
		return nil
	}
	var raw types.JSONText
	if err := raw.Scan(src); err != nil {
		return err
	}
	if err := raw.Unmarshal(dest); err != nil {
		return fmt.Errorf("decode jsonb: %w", err)
	}
	return nil
}

// jsonbValue encodes v for a jsonb column.
func jsonbValue(v interface{}) (driver.Value, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return types.JSONText(encoded).Value()
}
