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
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dimchat/dim-go/crypto"
	"github.com/dimchat/dim-go/dkd"
	"github.com/dimchat/dim-go/mkm"
	"github.com/sirupsen/logrus"
)

// Messenger runs the §4.4.1 outbound and §4.4.2 inbound pipelines. It is
// deliberately a thin orchestrator: identity lookups go through Facebook,
// symmetric-key caching through CipherKeyDelegate, and content dispatch
// through Processor, so each concern stays independently testable.
type Messenger struct {
	Facebook    *Facebook
	CipherKeys  dkd.CipherKeyDelegate
	Packer      *Packer
	Processor   *Processor
	Checker     *EntityChecker

	// CurrentUser is who a broadcast-addressed inbound message resolves
	// to locally (§4.4.3).
	CurrentUser mkm.ID

	// GroupMembers resolves a group ID's membership for local-user
	// selection on group receivers (§4.4.3); nil means "no groups".
	GroupMembers func(group mkm.ID) []mkm.ID

	// Send hands a serialized wire frame to the Session for queued
	// network send at priority (§4.4.1 step 9).
	Send func(data []byte, priority int) error

	digestFailuresMu sync.Mutex
	// digestFailures counts consecutive digest-only decrypt failures per
	// peer, so a stale reused key stops being named by digest alone rather
	// than being retried forever (§9 open question "key rotation under
	// reused").
	digestFailures map[string]int
}

// digestFailureThreshold is how many consecutive digest-only decrypt
// failures for one peer are tolerated before the cached reused key is
// cleared and the peer must be re-sent a fresh key.
const digestFailureThreshold = 2

// Priority levels mirror the Dock's "lower integer = higher priority"
// convention (§4.6).
const (
	PriorityUrgent  = -1
	PriorityNormal  = 0
	PrioritySlower  = 1
)

// SendContent runs the §4.4.1 outbound pipeline. A nil, nil return means
// the message was suspended pending a dependency (step 2) or dropped by
// the cycle guard (step 3) — neither is an error.
func (m *Messenger) SendContent(sender, receiver mkm.ID, content dkd.Content, priority int) (dkd.ReliableMessage, error) {
	envelope := dkd.NewEnvelope(sender, receiver)

	// step 1: attach visa time unless this is a Command
	if !content.IsCommand() {
		if visa, err := m.Facebook.GetVisa(sender); err == nil {
			envelope.Set("SDT", float64(visa.Time().Unix()))
		}
	}

	instant := dkd.NewInstantMessage(envelope, content)

	// step 2: receiver readiness
	ready, err := m.Packer.CheckReceiverReady(receiver)
	if err != nil {
		return nil, err
	}
	if !ready {
		m.Packer.SuspendOutgoing(instant, receiver)
		return nil, nil
	}

	// step 3: cycle guard
	if sender.String() == receiver.String() {
		logrus.WithField("id", sender.String()).Warn("dimp: dropping message whose sender equals receiver")
		return nil, nil
	}

	// step 4: encrypt content
	if content.IsFile() {
		return nil, errors.New("dimp: file content must be uploaded before sending")
	}
	password, err := m.materializeKey(sender, receiver, content.Group())
	if err != nil {
		return nil, err
	}
	envelope.Set("sn", float64(content.SerialNumber()))

	// step 5 + 6: per-recipient key wrap. A key already marked `reused`
	// (§3) is sent as a bare digest instead of re-wrapping the full key —
	// the receiver is expected to already hold it from an earlier
	// message to this peer (§6 "A keys object containing only {digest}
	// indicates the cached symmetric key is reused").
	var receiverKey crypto.EncryptKey
	if !receiver.IsBroadcast() {
		receiverKey, err = m.Facebook.EncryptKeyFor(receiver)
		if err != nil {
			m.Packer.SuspendOutgoing(instant, receiver)
			return nil, nil
		}
	}
	var secure dkd.SecureMessage
	if !receiver.IsBroadcast() && dkd.IsReused(password) {
		digest, ok := dkd.Digest(password)
		if !ok {
			digest = dkd.SetDigest(password)
		}
		secure, err = instant.EncryptReused(password, digest)
	} else {
		secure, err = instant.Encrypt(password, receiverKey)
		if err == nil && !receiver.IsBroadcast() {
			// Elect the digest-only form for the next send to this peer.
			dkd.MarkReused(password)
			dkd.SetDigest(password)
		}
	}
	if err != nil {
		return nil, err
	}

	// step 7: sign
	signKeys, err := m.Facebook.PrivateKeysFor(sender)
	if err != nil {
		return nil, err
	}
	reliable := secure.Sign(signKeys[0])

	// step 8: serialize wire frame
	frame := ApplyCompatibilityFixups(reliable.GetMap(false))
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}

	// step 9: enqueue
	if m.Send != nil {
		if err := m.Send(data, priority); err != nil {
			return nil, err
		}
	}
	return reliable, nil
}

// materializeKey implements the §3 "Key lifecycle" policy: reuse the
// cached per-peer key when present, else generate (and cache) a fresh
// one; the broadcast receiver always gets the null PlainKey (§4.1).
func (m *Messenger) materializeKey(sender, receiver mkm.ID, group mkm.ID) (crypto.SymmetricKey, error) {
	if receiver.IsBroadcast() {
		return crypto.GetPlainKey(), nil
	}
	return m.CipherKeys.CipherKey(sender, receiver, group, true)
}

// ReceiveData runs the §4.4.2 inbound pipeline and returns the response
// Contents the Processor produced, already dispatched back out via
// SendContent. A nil slice with a nil error means the frame was
// suspended pending sender readiness.
func (m *Messenger) ReceiveData(data []byte) ([]dkd.Content, error) {
	// step 1: deserialize
	if len(data) <= 8 {
		return nil, errors.New("dimp: frame too short")
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}
	frame = ApplyCompatibilityFixups(frame)
	reliable, err := dkd.ParseReliableMessage(frame)
	if err != nil {
		return nil, err
	}
	sender := reliable.Envelope().Sender()

	// step 2: sender readiness
	if !m.Packer.CheckSenderReady(reliable) {
		m.Packer.SuspendIncoming(reliable, sender)
		return nil, nil
	}

	// step 3: verify
	meta, err := m.Facebook.GetMeta(sender)
	if err != nil {
		return nil, err
	}
	secure, err := reliable.Verify(meta.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("dimp: verify failed: %w", err)
	}

	// step 4: decrypt the symmetric key using local receiver candidates
	receiver, err := m.selectLocalUser(reliable.Envelope().Receiver())
	if err != nil {
		return nil, err
	}
	group := reliable.Envelope().Group()
	broadcast := reliable.Envelope().Receiver().IsBroadcast()
	reusedDigest, isReusedReceive := secure.Digest()
	var password crypto.SymmetricKey
	switch {
	case broadcast:
		// broadcast content is encrypted under the null PlainKey and
		// carries no key/keys field at all (§4.1) — there is nothing to
		// unwrap, the pipeline contract just holds uniformly.
		password = crypto.GetPlainKey()
	case isReusedReceive:
		password, err = m.resolveReusedKey(sender, receiver, group, reusedDigest)
		if err != nil {
			return nil, err
		}
	default:
		password, err = m.resolveDecryptKey(secure, sender, receiver, group)
		if err != nil {
			return nil, err
		}
	}
	if !broadcast {
		m.CipherKeys.CacheCipherKey(sender, receiver, group, password)
	}

	// step 5: decrypt content
	instant, err := secure.Decrypt(password)
	if err != nil {
		if isReusedReceive {
			m.recordDigestFailure(sender, receiver, group)
		}
		return nil, err
	}
	if isReusedReceive {
		m.clearDigestFailures(sender, receiver, group)
	}

	// step 6: dispatch
	responses, err := m.Processor.Dispatch(instant.Content(), reliable)
	if err != nil {
		return nil, err
	}
	for _, response := range responses {
		if _, sendErr := m.SendContent(receiver, sender, response, PriorityNormal); sendErr != nil {
			logrus.WithError(sendErr).Warn("dimp: failed to send response content")
		}
	}

	// step 7: profile sync side-effect
	if sdt, ok := reliable.SenderDocumentTime(); ok && m.Checker != nil {
		remoteTime := time.Unix(sdt, 0).UTC()
		if m.Checker.IsDocumentExpired(sender.String(), remoteTime) {
			_ = m.Checker.CheckDocumentsQuery(sender.String())
		}
	}

	return responses, nil
}

// resolveDecryptKey tries each of the receiver's local private keys in
// order, returning the first that successfully unwraps the message's
// symmetric key (§4.4.2 step 4).
func (m *Messenger) resolveDecryptKey(secure dkd.SecureMessage, sender, receiver mkm.ID, group mkm.ID) (crypto.SymmetricKey, error) {
	keys, err := m.Facebook.PrivateKeysFor(receiver)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, key := range keys {
		decryptKey, ok := key.(crypto.DecryptKey)
		if !ok {
			continue
		}
		symKey, err := secure.DecryptedKey(decryptKey, receiver.String())
		if err == nil {
			return symKey, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("dimp: no usable decrypt key")
	}
	return nil, lastErr
}

// resolveReusedKey looks up the cached per-peer symmetric key for a
// digest-only reused receive (§3 "Key lifecycle") and confirms the
// digest matches before trusting it.
func (m *Messenger) resolveReusedKey(sender, receiver, group mkm.ID, digest string) (crypto.SymmetricKey, error) {
	cached, err := m.CipherKeys.CipherKey(sender, receiver, group, false)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, errors.New("dimp: reused key digest received but no cached key for this peer")
	}
	cachedDigest, ok := dkd.Digest(cached)
	if !ok {
		cachedDigest = dkd.SetDigest(cached)
	}
	if cachedDigest != digest {
		// Our cached key no longer matches what the sender is using;
		// stop electing the digest-only form for it.
		dkd.ClearReused(cached)
		return nil, errors.New("dimp: cached key digest mismatch, peer must resend a fresh key")
	}
	return cached, nil
}

func digestFailureKey(sender, receiver, group mkm.ID) string {
	k := sender.String() + "->" + receiver.String()
	if group != nil {
		k += "#" + group.String()
	}
	return k
}

// recordDigestFailure counts a failed digest-only decrypt for (sender,
// receiver[, group]); once digestFailureThreshold consecutive failures
// accumulate, the cached key is forced out of the `reused` state so the
// next send to that peer wraps the key in full instead of naming it by
// digest forever (§9 open question "key rotation under reused").
func (m *Messenger) recordDigestFailure(sender, receiver, group mkm.ID) {
	key := digestFailureKey(sender, receiver, group)
	m.digestFailuresMu.Lock()
	defer m.digestFailuresMu.Unlock()
	if m.digestFailures == nil {
		m.digestFailures = make(map[string]int)
	}
	m.digestFailures[key]++
	if m.digestFailures[key] >= digestFailureThreshold {
		delete(m.digestFailures, key)
		if cached, err := m.CipherKeys.CipherKey(sender, receiver, group, false); err == nil && cached != nil {
			dkd.ClearReused(cached)
		}
	}
}

func (m *Messenger) clearDigestFailures(sender, receiver, group mkm.ID) {
	key := digestFailureKey(sender, receiver, group)
	m.digestFailuresMu.Lock()
	defer m.digestFailuresMu.Unlock()
	delete(m.digestFailures, key)
}

// selectLocalUser implements §4.4.3: broadcast resolves to the current
// user, a group resolves to whichever local user is a member, and a
// concrete user resolves to itself iff it is local.
func (m *Messenger) selectLocalUser(receiver mkm.ID) (mkm.ID, error) {
	switch {
	case receiver.IsBroadcast():
		if m.CurrentUser == nil {
			return nil, errors.New("dimp: no current user set for broadcast receiver")
		}
		return m.CurrentUser, nil
	case receiver.IsGroup():
		if m.GroupMembers == nil {
			return nil, errors.New("dimp: no group membership resolver configured")
		}
		for _, member := range m.GroupMembers(receiver) {
			if m.Facebook.IsLocalUser(member) {
				return member, nil
			}
		}
		return nil, errors.New("dimp: no local member found for group " + receiver.String())
	default:
		if !m.Facebook.IsLocalUser(receiver) {
			return nil, errors.New("dimp: receiver is not a local user")
		}
		return receiver, nil
	}
}

// ApplyCompatibilityFixups canonicalizes legacy field spellings so both
// sides of a connection parse identically regardless of release (§4.4.1
// step 8, §4.4.2 step 1). The `meta`/`visa` attachments have at various
// times been carried under the legacy keys below.
func ApplyCompatibilityFixups(frame map[string]interface{}) map[string]interface{} {
	if v, ok := frame["profile"]; ok {
		if _, hasVisa := frame["visa"]; !hasVisa {
			frame["visa"] = v
		}
		delete(frame, "profile")
	}
	if v, ok := frame["sender_key"]; ok {
		if _, hasMeta := frame["meta"]; !hasMeta {
			frame["meta"] = v
		}
		delete(frame, "sender_key")
	}
	return frame
}
