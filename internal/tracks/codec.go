package tracks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedIdentifier indicates a visitor or session compound token with
// more dot-separated parts than the codec accepts. Surfaced as a hard
// creation-time failure.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// VisitorToken is the decoded form of the compound visitor cookie string:
// [visitor_id, visit_number?, current_session_ts?, previous_session_ts?]
// joined by dots.
type VisitorToken struct {
	VisitorID         string
	VisitNumber       int
	CurrentSessionAt  *time.Time
	PreviousSessionAt *time.Time
}

// SessionToken is the decoded form of the compound session cookie string:
// [session_id, view_number?] joined by dots.
type SessionToken struct {
	SessionID  string
	ViewNumber int
}

// ParseVisitorToken decodes a compound visitor string. Empty input is a
// no-op, not an error, and yields nil. More than 4 parts is rejected with
// ErrMalformedIdentifier.
func ParseVisitorToken(raw string) (*VisitorToken, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ".")
	if len(parts) > 4 {
		return nil, fmt.Errorf("%w: visitor token has %d parts", ErrMalformedIdentifier, len(parts))
	}

	token := &VisitorToken{VisitorID: parts[0]}
	if len(parts) > 1 {
		token.VisitNumber = coerceOrdinal(parts[1])
	}
	if len(parts) > 2 {
		token.CurrentSessionAt = parseEpoch(parts[2])
	}
	if len(parts) > 3 {
		token.PreviousSessionAt = parseEpoch(parts[3])
	}

	return token, nil
}

// ParseSessionToken decodes a compound session string. A legacy malformed
// cookie shape produced three parts with the view number last; when exactly
// 3 parts are present the middle one is discarded. More than 3 parts is
// rejected with ErrMalformedIdentifier. Empty input yields nil.
func ParseSessionToken(raw string) (*SessionToken, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ".")
	if len(parts) > 3 {
		return nil, fmt.Errorf("%w: session token has %d parts", ErrMalformedIdentifier, len(parts))
	}

	token := &SessionToken{SessionID: parts[0]}
	switch len(parts) {
	case 2:
		token.ViewNumber = coerceOrdinal(parts[1])
	case 3:
		token.ViewNumber = coerceOrdinal(parts[2])
	}

	return token, nil
}

// String re-encodes the token in the compound cookie format. Decoding then
// re-encoding preserves visitor id, visit number, and session timestamps.
func (t *VisitorToken) String() string {
	parts := []string{t.VisitorID, strconv.Itoa(t.VisitNumber)}
	if t.CurrentSessionAt != nil {
		parts = append(parts, strconv.FormatInt(t.CurrentSessionAt.Unix(), 10))
		if t.PreviousSessionAt != nil {
			parts = append(parts, strconv.FormatInt(t.PreviousSessionAt.Unix(), 10))
		}
	}
	return strings.Join(parts, ".")
}

// String re-encodes the token in the compound cookie format.
func (t *SessionToken) String() string {
	return fmt.Sprintf("%s.%d", t.SessionID, t.ViewNumber)
}

// parseEpoch converts a numeric epoch string into a UTC time. Strings longer
// than 10 digits carry milliseconds and are truncated to seconds; shorter
// ones are taken as seconds. Empty or non-numeric input yields no timestamp.
func parseEpoch(s string) *time.Time {
	if s == "" {
		return nil
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}

	if len(s) > 10 {
		value = value / 1000
	}

	t := time.Unix(value, 0).UTC()
	return &t
}

// coerceOrdinal parses a visit/view ordinal. Malformed ordinals coerce to 0
// rather than failing: cookies are client-controlled and only an excess of
// parts is treated as a hard error.
func coerceOrdinal(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
