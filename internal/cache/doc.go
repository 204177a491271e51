// Package cache keeps synthesized audio fragments so that repeated text is
// not rendered twice. A bounded in-memory LRU sits in front of a persistent
// zstd-compressed disk store.
package cache
