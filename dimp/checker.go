/* license: https://mit-license.org
 *
 *  Dao-Ke-Dao: Universal Message Module
 *
 *                                Written in 2020 by Moky <albert.moky@gmail.com>
 *
 * ==============================================================================
 * The MIT License (MIT)
 *
 * Copyright (c) 2020 Albert Moky
 * ==============================================================================
 */

package dimp

import (
	"sync"
	"time"

	"github.com/dimchat/dim-go/internal/config"
)

// FrequencyChecker permits at most one query per key within its
// queryExpires window (§4.4.4). It performs no I/O; it only decides
// whether a query is warranted.
type FrequencyChecker struct {
	mutex     sync.Mutex
	lastQuery map[string]time.Time

	// queryExpires is sourced from config.Transport's QueryExpires (§10).
	queryExpires time.Duration
}

// NewFrequencyChecker builds a FrequencyChecker. cfg supplies
// QueryExpires; a nil cfg falls back to config.Load()'s defaults.
func NewFrequencyChecker(cfg *config.Transport) *FrequencyChecker {
	if cfg == nil {
		cfg = config.Load()
	}
	return &FrequencyChecker{lastQuery: make(map[string]time.Time), queryExpires: cfg.QueryExpires}
}

// Expired reports whether key may be queried again right now, and if so,
// records this instant as the new "last query" time.
func (c *FrequencyChecker) Expired(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	last, ok := c.lastQuery[key]
	if ok && now.Sub(last) < c.queryExpires {
		return false
	}
	c.lastQuery[key] = now
	return true
}

// RecentTimeChecker stores the maximum observed timestamp per key and
// reports a local snapshot as "expired" iff the remote's reported time
// strictly exceeds the stored value (§4.4.4).
type RecentTimeChecker struct {
	mutex sync.Mutex
	times map[string]time.Time
}

func NewRecentTimeChecker() *RecentTimeChecker {
	return &RecentTimeChecker{times: make(map[string]time.Time)}
}

// IsExpired reports whether remoteTime is strictly newer than the stored
// value for key, and if so, updates the stored value to remoteTime.
func (c *RecentTimeChecker) IsExpired(key string, remoteTime time.Time) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	stored, ok := c.times[key]
	if ok && !remoteTime.After(stored) {
		return false
	}
	c.times[key] = remoteTime
	return true
}

// EntityCheckKind enumerates the three FrequencyChecker subjects and the
// two RecentTimeChecker subjects named in §4.4.4.
type EntityCheckKind string

const (
	CheckMeta      EntityCheckKind = "meta"
	CheckDocuments EntityCheckKind = "docs"
	CheckMembers   EntityCheckKind = "members"

	CheckDocumentTime     EntityCheckKind = "document"
	CheckGroupHistoryTime EntityCheckKind = "groupHistory"
)

// EntityChecker composes a FrequencyChecker and a RecentTimeChecker and
// exposes the subclass hooks (queryMeta/queryDocuments/queryMembers) the
// pipeline calls when a check decides a query is warranted (§4.4.4 "the
// actual query is issued by a subclass hook").
type EntityChecker struct {
	frequency *FrequencyChecker
	recent    *RecentTimeChecker

	QueryMeta      func(id string) error
	QueryDocuments func(id string) error
	QueryMembers   func(id string) error
}

// NewEntityChecker builds an EntityChecker. cfg supplies the
// FrequencyChecker's QueryExpires; a nil cfg falls back to
// config.Load()'s defaults.
func NewEntityChecker(cfg *config.Transport) *EntityChecker {
	return &EntityChecker{
		frequency: NewFrequencyChecker(cfg),
		recent:    NewRecentTimeChecker(),
	}
}

// CheckMetaQuery decides whether id's meta may be queried again and, if
// so, invokes QueryMeta.
func (c *EntityChecker) CheckMetaQuery(id string) error {
	if !c.frequency.Expired(string(CheckMeta) + ":" + id) {
		return nil
	}
	if c.QueryMeta == nil {
		return nil
	}
	return c.QueryMeta(id)
}

func (c *EntityChecker) CheckDocumentsQuery(id string) error {
	if !c.frequency.Expired(string(CheckDocuments) + ":" + id) {
		return nil
	}
	if c.QueryDocuments == nil {
		return nil
	}
	return c.QueryDocuments(id)
}

func (c *EntityChecker) CheckMembersQuery(id string) error {
	if !c.frequency.Expired(string(CheckMembers) + ":" + id) {
		return nil
	}
	if c.QueryMembers == nil {
		return nil
	}
	return c.QueryMembers(id)
}

// IsDocumentExpired reports whether remoteTime is newer than the locally
// known document time for id.
func (c *EntityChecker) IsDocumentExpired(id string, remoteTime time.Time) bool {
	return c.recent.IsExpired(string(CheckDocumentTime)+":"+id, remoteTime)
}

// IsGroupHistoryExpired reports whether remoteTime is newer than the
// locally known group-history time for id.
func (c *EntityChecker) IsGroupHistoryExpired(id string, remoteTime time.Time) bool {
	return c.recent.IsExpired(string(CheckGroupHistoryTime)+":"+id, remoteTime)
}
