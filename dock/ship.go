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

// Package dock implements the ArrivalHall/DepartureHall fragment
// reassembly and outgoing priority queue (§4.6).
package dock

import (
	"github.com/google/uuid"
)

// Arrival is an inbound ship, possibly assembled from more than one
// fragment sharing the same SN (§4.6).
type Arrival interface {
	SN() string
	// Assemble merges a newly-arrived fragment into this (possibly
	// partial) ship. It returns the merged ship and whether the result
	// is now complete.
	Assemble(fragment Arrival) (Arrival, bool)
}

// Departure is an outbound ship with retry/priority metadata (§4.6).
type Departure interface {
	SN() string
	// Priority orders the queue: lower value sends first.
	Priority() int
	MaxTries() int
	IsImportant() bool
	// Fragments returns the wire payloads to send in order.
	Fragments() [][]byte
}

// IOError reports a transport-level failure handed to onPorterFailed
// (§4.6 point 4, §4.7). CorrelationID lets an operator trace one failed
// send across log lines even though the ship itself carries no SN once
// it has been reaped.
type IOError struct {
	Message       string
	CorrelationID string
}

func (e *IOError) Error() string { return e.Message }

func NewRequestTimeoutError() *IOError {
	return &IOError{Message: "Request timeout", CorrelationID: uuid.New().String()}
}
