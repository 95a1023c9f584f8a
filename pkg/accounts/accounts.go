// Package accounts loads the list of accounts whose timelines are fetched.
package accounts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	errs "xqtimeline/pkg/errors"
)

// Account describes one timeline to poll
type Account struct {
	ID        int64     `json:"id" yaml:"id"`
	Timestamp Timestamp `json:"timestamp" yaml:"timestamp"`
	MD5       string    `json:"md5" yaml:"md5"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
}

// Label is "name (id)" for named accounts and the bare id otherwise
func (a Account) Label() string {
	if a.Name != "" {
		return a.Name + " (" + strconv.FormatInt(a.ID, 10) + ")"
	}
	return strconv.FormatInt(a.ID, 10)
}

// Timestamp is the cache-bust value sent with timeline requests. The account
// file may hold it as a JSON string or number; numbers are kept as plain
// decimal text, so 1.7e12 becomes "1700000000000".
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or number: %w", err)
	}
	*t = Timestamp(decimalText(n))
	return nil
}

// decimalText writes a number without exponent or trailing zeros. Integer
// literals are kept as written so values past 2^53 stay exact.
func decimalText(n json.Number) string {
	if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return n.String()
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (t Timestamp) String() string {
	return string(t)
}

// Load reads and validates an account list file
func Load(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapPath(err, errs.ErrorTypeConfig, "read accounts", path)
	}

	accounts, err := Parse(data)
	if err != nil {
		return nil, errs.WrapPath(err, errs.ErrorTypeConfig, "parse accounts", path)
	}
	return accounts, nil
}

// Parse decodes and validates an account list
func Parse(data []byte) ([]Account, error) {
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, err
	}

	var problems []error
	for i, a := range accounts {
		if a.ID <= 0 {
			problems = append(problems, fmt.Errorf("account %d: id must be positive", i))
		}
		if a.MD5 == "" {
			problems = append(problems, fmt.Errorf("account %d: md5 is required", i))
		}
		if a.Timestamp == "" {
			problems = append(problems, fmt.Errorf("account %d: timestamp is required", i))
		}
	}
	if len(problems) > 0 {
		return nil, errs.Join(problems...)
	}
	return accounts, nil
}
