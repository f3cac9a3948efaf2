package model

import "github.com/zeebo/xxh3"

// Key is the caller-composed cache key plus its xxh3 hash used for shard selection.
type Key struct {
	raw string
	v   uint64
}

func NewKey(key string) Key {
	return Key{raw: key, v: xxh3.HashString(key)}
}

func (k Key) Value() uint64  { return k.v }
func (k Key) String() string { return k.raw }
