package postgres

import (
	"SimBot/internal/core/domain"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Notification payloads are JSON objects:
//
//	{"key":"api.group_message","id":"...","text":"hi","chat_id":1,"user_id":2,
//	 "visibility":"public","timestamp":"2024-01-02T15:04:05Z"}
//
// Only "key" is required and must name a standard event key.

var visibilities = map[string]domain.Visibility{
	"public":   domain.VisibilityPublic,
	"internal": domain.VisibilityInternal,
	"private":  domain.VisibilityPrivate,
}

// ParseNotification converts a NOTIFY payload into an event. Keys under
// the message key produce a *domain.MessageEvent.
func ParseNotification(payload string) (domain.Event, error) {
	if !gjson.Valid(payload) {
		return nil, errors.New("notification payload is not valid JSON")
	}
	doc := gjson.Parse(payload)

	keyID := doc.Get("key").String()
	if keyID == "" {
		return nil, errors.New("notification payload has no key")
	}
	key, ok := domain.LookupKey(keyID)
	if !ok {
		return nil, fmt.Errorf("unknown event key %q", keyID)
	}

	var opts []domain.EventOption
	if id := doc.Get("id"); id.Exists() && id.String() != "" {
		opts = append(opts, domain.WithEventID(id.String()))
	}
	if v := doc.Get("visibility"); v.Exists() {
		vis, ok := visibilities[v.String()]
		if !ok {
			return nil, fmt.Errorf("unknown visibility %q", v.String())
		}
		opts = append(opts, domain.WithVisibility(vis))
	}
	if ts := doc.Get("timestamp"); ts.Exists() {
		t, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		opts = append(opts, domain.WithTimestamp(t))
	}

	if !key.IsSubFrom(domain.MessageKey) {
		return domain.NewEvent(key, opts...), nil
	}

	ev := domain.NewMessageEvent(key, doc.Get("chat_id").Int(), doc.Get("user_id").Int(), doc.Get("text").String(), opts...)
	ev.MessageID = int(doc.Get("message_id").Int())
	return ev, nil
}

// Unix seconds or RFC 3339.
func parseTimestamp(ts gjson.Result) (time.Time, error) {
	if ts.Type == gjson.Number {
		return time.Unix(ts.Int(), 0), nil
	}
	t, err := time.Parse(time.RFC3339, ts.String())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts.String(), err)
	}
	return t, nil
}

type field struct {
	path  string
	value any
}

// EncodeNotification renders event in the payload format ParseNotification reads.
func EncodeNotification(event domain.Event) (string, error) {
	fields := []field{
		{"key", event.Key().ID()},
		{"id", event.ID()},
		{"visibility", event.Visibility().String()},
		{"timestamp", event.Timestamp().UTC().Format(time.RFC3339)},
	}
	if msg, ok := event.(*domain.MessageEvent); ok {
		fields = append(fields,
			field{"text", msg.Content},
			field{"chat_id", msg.ChatID},
			field{"user_id", msg.UserID},
			field{"message_id", msg.MessageID},
		)
	}

	payload := "{}"
	var err error
	for _, f := range fields {
		if payload, err = sjson.Set(payload, f.path, f.value); err != nil {
			return "", fmt.Errorf("encode %s: %w", f.path, err)
		}
	}
	return payload, nil
}
