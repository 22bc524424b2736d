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

package startrek

import (
	"net"
	"sync"
)

type channelKey struct {
	remote string
	local  string
}

// Hub owns a ChannelPool keyed by (remote, local) and creates/removes
// Channels lazily (§4.7).
type Hub struct {
	// Connect is the subclass hook that performs the actual
	// connect/bind and returns a live Channel.
	Connect func(remote, local net.Addr) (Channel, error)

	mutex sync.Mutex
	pool  map[channelKey]Channel
}

func NewHub(connect func(remote, local net.Addr) (Channel, error)) *Hub {
	return &Hub{Connect: connect, pool: make(map[channelKey]Channel)}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

// Open returns a cached Channel whose local address matches (or whose
// local is nil), else creates a new one via Connect (§4.7).
func (h *Hub) Open(remote, local net.Addr) (Channel, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	key := channelKey{remote: addrString(remote), local: addrString(local)}
	if ch, ok := h.pool[key]; ok {
		return ch, nil
	}
	// also accept a cached channel whose local is unset
	unsetKey := channelKey{remote: key.remote}
	if ch, ok := h.pool[unsetKey]; ok {
		return ch, nil
	}

	ch, err := h.Connect(remote, local)
	if err != nil {
		return nil, err
	}
	h.pool[key] = ch
	return ch, nil
}

// Remove evicts the cached Channel for (remote, local), if any.
func (h *Hub) Remove(remote, local net.Addr) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.pool, channelKey{remote: addrString(remote), local: addrString(local)})
}
