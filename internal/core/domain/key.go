package domain

import (
	"sync"
	"sync/atomic"
)

var keySerial atomic.Uint64

// Key is the hierarchical type tag of an event.
// A key may declare parents; a listener targeting a parent key also
// matches events carrying any of its descendants.
type Key struct {
	id      string
	serial  uint64
	parents []*Key

	once      sync.Once
	ancestors map[*Key]struct{}
}

// NewKey creates a key with the given id and parent keys.
func NewKey(id string, parents ...*Key) *Key {
	ps := make([]*Key, 0, len(parents))
	for _, p := range parents {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Key{id: id, serial: keySerial.Add(1), parents: ps}
}

// ID returns the key identifier (e.g., "api.group_message").
func (k *Key) ID() string {
	return k.id
}

// Serial identifies k within the process. Two keys created with the same
// id still have different serials.
func (k *Key) Serial() uint64 {
	return k.serial
}

// Parents returns the direct parent keys.
func (k *Key) Parents() []*Key {
	out := make([]*Key, len(k.parents))
	copy(out, k.parents)
	return out
}

func (k *Key) String() string {
	return k.id
}

// IsSubFrom reports whether k equals other or other is reachable
// through k's parent graph. The ancestor set is computed once.
func (k *Key) IsSubFrom(other *Key) bool {
	if k == nil || other == nil {
		return false
	}
	if k == other {
		return true
	}
	k.once.Do(k.computeAncestors)
	_, ok := k.ancestors[other]
	return ok
}

func (k *Key) computeAncestors() {
	seen := make(map[*Key]struct{})
	stack := append([]*Key(nil), k.parents...)
	for len(stack) > 0 {
		last := len(stack) - 1
		cur := stack[last]
		stack = stack[:last]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		stack = append(stack, cur.parents...)
	}
	k.ancestors = seen
}

// --- Standard key catalog ---

var (
	RootKey = NewKey("api.root")

	MessageKey        = NewKey("api.message", RootKey)
	FriendMessageKey  = NewKey("api.friend_message", MessageKey)
	GroupMessageKey   = NewKey("api.group_message", MessageKey)
	ChannelMessageKey = NewKey("api.channel_message", MessageKey)

	// CallbackKey marks button presses on bot-sent keyboards.
	CallbackKey = NewKey("api.callback", RootKey)

	RequestKey          = NewKey("api.request", RootKey)
	JoinRequestKey      = NewKey("api.join_request", RequestKey)
	GroupRequestKey     = NewKey("api.group_request", RequestKey)
	GroupJoinRequestKey = NewKey("api.group_join_request", GroupRequestKey, JoinRequestKey)
	GuildRequestKey     = NewKey("api.guild_request", RequestKey)
	GuildJoinRequestKey = NewKey("api.guild_join_request", GuildRequestKey, JoinRequestKey)
	UserRequestKey      = NewKey("api.user_request", RequestKey)
	FriendRequestKey    = NewKey("api.friend_request", UserRequestKey)

	ChangedKey    = NewKey("api.changed", RootKey)
	StartPointKey = NewKey("api.start_point", ChangedKey)
	EndPointKey   = NewKey("api.end_point", ChangedKey)
	IncreaseKey   = NewKey("api.increase", StartPointKey)
	DecreaseKey   = NewKey("api.decrease", EndPointKey)
)

var standardKeys = indexKeys(
	RootKey,
	MessageKey, FriendMessageKey, GroupMessageKey, ChannelMessageKey, CallbackKey,
	RequestKey, JoinRequestKey, GroupRequestKey, GroupJoinRequestKey,
	GuildRequestKey, GuildJoinRequestKey, UserRequestKey, FriendRequestKey,
	ChangedKey, StartPointKey, EndPointKey, IncreaseKey, DecreaseKey,
)

func indexKeys(keys ...*Key) map[string]*Key {
	m := make(map[string]*Key, len(keys))
	for _, k := range keys {
		m[k.id] = k
	}
	return m
}

// LookupKey resolves a standard key by its id.
func LookupKey(id string) (*Key, bool) {
	k, ok := standardKeys[id]
	return k, ok
}
