package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/dangerclosesec/pivot/formula"
	"github.com/google/uuid"
)

// Report is one compile request together with its compiled trees
type Report struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Generation int64     `json:"generation"`
	Strict     bool      `json:"strict"`
	Formulas   JSONMap   `json:"formulas" gorm:"type:jsonb"`
	Results    Trees     `json:"results" gorm:"type:jsonb"`
	Errors     JSONMap   `json:"errors,omitempty" gorm:"type:jsonb"`
	RequestID  string    `json:"request_id"`
	ClientIP   string    `json:"client_ip"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for Report
func (Report) TableName() string {
	return "formula_reports"
}

// JSONMap represents a generic map stored as JSONB in the database
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for JSONMap
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}

	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, m)
}

// Trees holds compiled formula trees keyed by field, stored as JSONB
type Trees map[string][]formula.Node

// Value implements the driver.Valuer interface for Trees
func (t Trees) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface for Trees
func (t *Trees) Scan(value interface{}) error {
	if value == nil {
		*t = make(Trees)
		return nil
	}

	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, t)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion failed: failed to decode JSONB")
	}
}
