package collect

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the upstream created_at format.
const TimestampLayout = "Mon Jan 02 15:04:05 -0700 2006"

// displayLayout matches how collected timestamps are shown to users.
const displayLayout = "2006-01-02 15:04:05"

// Timestamp is a creation time that is either parsed or kept as the raw
// upstream string when it did not match TimestampLayout.
type Timestamp struct {
	t   time.Time
	raw string
}

// ParseTimestamp never fails: unparseable input is retained verbatim.
func ParseTimestamp(raw string) Timestamp {
	t, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return Timestamp{raw: raw}
	}
	return Timestamp{t: t, raw: raw}
}

// Time returns the parsed time and whether parsing succeeded.
func (ts Timestamp) Time() (time.Time, bool) {
	return ts.t, !ts.t.IsZero()
}

// Raw returns the string as received from upstream.
func (ts Timestamp) Raw() string { return ts.raw }

func (ts Timestamp) String() string {
	if t, ok := ts.Time(); ok {
		return t.Format(displayLayout)
	}
	return ts.raw
}

// MarshalJSON emits RFC 3339 for parsed times and the raw string otherwise.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if t, ok := ts.Time(); ok {
		return json.Marshal(t.Format(time.RFC3339))
	}
	return json.Marshal(ts.raw)
}

// Normalize maps a raw upstream item to a Record.
func Normalize(it Item) Record {
	return Record{
		AuthorName:      it.AuthorName,
		AuthorHandle:    it.AuthorHandle,
		AuthorAvatarURL: it.AuthorAvatarURL,
		Text:            it.Text,
		CreatedAt:       ParseTimestamp(it.CreatedAt),
		RetweetCount:    it.RetweetCount,
		FavoriteCount:   it.FavoriteCount,
		Permalink:       it.Permalink(),
	}
}
