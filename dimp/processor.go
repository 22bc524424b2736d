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

	"github.com/dimchat/dim-go/dkd"
)

// ContentHandler processes one Content and returns zero or more response
// Contents to be sent back via §4.4.1 (§4.4.2 step 6).
type ContentHandler func(content dkd.Content, reliable dkd.ReliableMessage) ([]dkd.Content, error)

// Processor dispatches inbound Content to a ContentHandler keyed by its
// type, falling back to a `*` catch-all handler registered under
// dkd.AnyContentType (§4.4.2 step 6).
type Processor struct {
	mutex    sync.RWMutex
	handlers map[dkd.ContentType]ContentHandler
}

func NewProcessor() *Processor {
	return &Processor{handlers: make(map[dkd.ContentType]ContentHandler)}
}

func (p *Processor) Register(contentType dkd.ContentType, handler ContentHandler) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.handlers[contentType] = handler
}

// Dispatch routes content to its registered handler, or the catch-all
// registered under dkd.AnyContentType if no specific handler exists.
func (p *Processor) Dispatch(content dkd.Content, reliable dkd.ReliableMessage) ([]dkd.Content, error) {
	p.mutex.RLock()
	handler, ok := p.handlers[content.Type()]
	if !ok {
		handler, ok = p.handlers[dkd.AnyContentType]
	}
	p.mutex.RUnlock()
	if !ok {
		return nil, nil
	}
	return handler(content, reliable)
}
