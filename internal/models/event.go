// internal/models/event.go
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string or number. Null, missing and blank values
// leave Valid false, as do objects, arrays and booleans.
type FlexString struct {
	Value string
	Valid bool
}

func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = FlexString{}
	s, ok := scalarText(data)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	*f = FlexString{Value: s, Valid: s != ""}
	return nil
}

// scalarText returns the text of a JSON string or number token.
func scalarText(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", false
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false
		}
		return s, true
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

func (f FlexString) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Or returns the value when present and fallback otherwise.
func (f FlexString) Or(fallback string) string {
	if f.Valid {
		return f.Value
	}
	return fallback
}

// FlexInt64 decodes a JSON number or a numeric string. Anything else is
// treated as absent rather than failing the whole document.
type FlexInt64 struct {
	Value int64
	Valid bool
}

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	var s FlexString
	_ = s.UnmarshalJSON(data)
	if !s.Valid {
		*f = FlexInt64{}
		return nil
	}
	n, err := strconv.ParseInt(s.Value, 10, 64)
	if err != nil {
		*f = FlexInt64{}
		return nil
	}
	*f = FlexInt64{Value: n, Valid: true}
	return nil
}

func (f FlexInt64) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

func Int64(v int64) FlexInt64    { return FlexInt64{Value: v, Valid: true} }
func String(v string) FlexString { return FlexString{Value: v, Valid: v != ""} }

// NotificationEvent is the union of every producer payload that reaches the
// notification queue. Unknown fields are ignored.
type NotificationEvent struct {
	RecipientID      FlexInt64  `json:"recipientId"`
	ApplicantUserID  FlexInt64  `json:"applicantUserId"`
	CreatorUserID    FlexInt64  `json:"creatorUserId"`
	UserID           FlexInt64  `json:"userId"`
	Title            FlexString `json:"title"`
	Body             FlexString `json:"body"`
	Status           FlexString `json:"status"`
	Type             FlexString `json:"type"`
	OpportunityTitle FlexString `json:"opportunityTitle"`
	OpportunityID    FlexString `json:"opportunityId"`
	ApplicationID    FlexString `json:"applicationId"`
	ReferenceID      FlexString `json:"referenceId"`
	Email            FlexString `json:"email"`
}

// Recipient returns the first present of recipientId, applicantUserId,
// creatorUserId and userId.
func (e *NotificationEvent) Recipient() (int64, bool) {
	for _, id := range []FlexInt64{e.RecipientID, e.ApplicantUserID, e.CreatorUserID, e.UserID} {
		if id.Valid {
			return id.Value, true
		}
	}
	return 0, false
}
