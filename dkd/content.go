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

// ContentType is the message content's `type` field; the core treats the
// body as opaque except for the FileContent and Command predicates
// (§3 "Content").
type ContentType uint8

const (
	TextContent    ContentType = 0x01
	FileContent    ContentType = 0x10
	ImageContent   ContentType = 0x12
	AudioContent   ContentType = 0x14
	VideoContent   ContentType = 0x16
	PageContent    ContentType = 0x20
	MoneyContent   ContentType = 0x40
	CommandContent ContentType = 0x88
	ForwardContent ContentType = 0xFF
	AnyContentType ContentType = 0x00
)

// Content is the mandatory {type, sn, time?, group?} map carried inside
// an InstantMessage (§3).
type Content interface {
	types.Map

	Type() ContentType
	SerialNumber() uint32
	Time() time.Time
	Group() mkm.ID
	SetGroup(group mkm.ID)

	// IsFile reports the §3 "FileContent predicate": has a `data` field,
	// meaning the raw payload must be uploaded out-of-band first.
	IsFile() bool
	// IsCommand reports the §3 "Command predicate": suppresses visa-time
	// attachment on send (§4.4.1 step 1).
	IsCommand() bool
}

type baseContent struct {
	types.Dictionary

	contentType ContentType
	sn          uint32
	timestamp   time.Time
	group       mkm.ID
}

// NewContent creates a fresh Content of contentType, stamping a new
// serial number and the current time.
func NewContent(contentType ContentType) *baseContent {
	now := time.Now().UTC()
	sn := GenerateSerialNumber()
	dict := types.StringKeyMap{
		"type": uint8(contentType),
		"sn":   sn,
		"time": float64(now.Unix()),
	}
	return &baseContent{
		Dictionary:  types.NewDictionary(dict),
		contentType: contentType,
		sn:          sn,
		timestamp:   now,
	}
}

// ParseContent parses a Content from its wire dictionary.
func ParseContent(dict types.StringKeyMap) (Content, error) {
	d := types.NewDictionary(dict)
	c := &baseContent{Dictionary: d}
	switch t := d.Get("type").(type) {
	case uint8:
		c.contentType = ContentType(t)
	case float64:
		c.contentType = ContentType(t)
	case string:
		if ct, ok := ResolveContentTypeAlias(t); ok {
			c.contentType = ct
		}
	}
	switch sn := d.Get("sn").(type) {
	case uint32:
		c.sn = sn
	case float64:
		c.sn = uint32(sn)
	}
	if ts, ok := d.Get("time").(float64); ok {
		c.timestamp = time.Unix(int64(ts), 0).UTC()
	}
	if g := d.GetString("group"); g != "" {
		id, err := mkm.GetID(g)
		if err != nil {
			return nil, err
		}
		c.group = id
	}
	return c, nil
}

func (c *baseContent) Type() ContentType      { return c.contentType }
func (c *baseContent) SerialNumber() uint32   { return c.sn }
func (c *baseContent) Time() time.Time        { return c.timestamp }
func (c *baseContent) Group() mkm.ID          { return c.group }

func (c *baseContent) SetGroup(group mkm.ID) {
	c.group = group
	c.Set("group", group.String())
}

func (c *baseContent) IsFile() bool {
	_, ok := c.Get("data").(string)
	return ok
}

func (c *baseContent) IsCommand() bool {
	return c.contentType == CommandContent
}
