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

package dkd

import (
	"time"

	"github.com/dimchat/dim-go/mkm"
	"github.com/dimchat/dim-go/types"
)

// Envelope is `{sender, receiver, time?, group?}` (§3).
type Envelope interface {
	types.Map

	Sender() mkm.ID
	Receiver() mkm.ID
	Time() time.Time
	Group() mkm.ID
	SetGroup(group mkm.ID)
}

type baseEnvelope struct {
	types.Dictionary

	sender    mkm.ID
	receiver  mkm.ID
	timestamp time.Time
	group     mkm.ID
}

// NewEnvelope creates a fresh Envelope stamped with the current time.
func NewEnvelope(sender, receiver mkm.ID) *baseEnvelope {
	now := time.Now().UTC()
	dict := types.StringKeyMap{
		"sender":   sender.String(),
		"receiver": receiver.String(),
		"time":     float64(now.Unix()),
	}
	return &baseEnvelope{
		Dictionary: types.NewDictionary(dict),
		sender:     sender,
		receiver:   receiver,
		timestamp:  now,
	}
}

// ParseEnvelope parses an Envelope from its wire dictionary.
func ParseEnvelope(dict types.StringKeyMap) (Envelope, error) {
	d := types.NewDictionary(dict)
	sender, err := mkm.GetID(d.GetString("sender"))
	if err != nil {
		return nil, err
	}
	receiver, err := mkm.GetID(d.GetString("receiver"))
	if err != nil {
		return nil, err
	}
	env := &baseEnvelope{Dictionary: d, sender: sender, receiver: receiver}
	if ts, ok := d.Get("time").(float64); ok {
		env.timestamp = time.Unix(int64(ts), 0).UTC()
	}
	if g := d.GetString("group"); g != "" {
		group, err := mkm.GetID(g)
		if err != nil {
			return nil, err
		}
		env.group = group
	}
	return env, nil
}

func (e *baseEnvelope) Sender() mkm.ID   { return e.sender }
func (e *baseEnvelope) Receiver() mkm.ID { return e.receiver }
func (e *baseEnvelope) Time() time.Time  { return e.timestamp }
func (e *baseEnvelope) Group() mkm.ID    { return e.group }

func (e *baseEnvelope) SetGroup(group mkm.ID) {
	e.group = group
	e.Set("group", group.String())
}
