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

// Package config loads the transport's tunable timing constants from the
// environment, falling back to the compiled-in defaults from §4.5-§4.7
// when unset.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Transport holds every timing constant the connection/dock/heartbeat
// machinery needs, each overridable via environment variable.
type Transport struct {
	// TExpire is the connection state machine's inactivity horizon (§4.5).
	TExpire time.Duration
	// TLong is 8x TExpire, the "error" escalation threshold (§4.5).
	TLong time.Duration

	// QueryExpires is the EntityChecker FrequencyChecker period (§4.4.4).
	QueryExpires time.Duration

	// EntryExpires is the ArrivalHall per-fragment expiry (§4.6).
	EntryExpires time.Duration
	// FinishedRetention is how long a completed ship's SN is kept to
	// defeat replay (§4.6).
	FinishedRetention time.Duration
	// TRetry is the DepartureHall's retry gap (§4.6).
	TRetry time.Duration
	// PurgeInterval rate-limits LockedDock.Purge (§4.6).
	PurgeInterval time.Duration

	// ConnectionExpired and ConnectionRetry are the ActiveConnection
	// self-heal timers (§4.7).
	ConnectionExpired time.Duration
	ConnectionRetry   time.Duration

	// ForegroundTick and BackgroundTick are the ActiveConnection polling
	// periods (§4.7).
	ForegroundTick time.Duration
	BackgroundTick time.Duration
}

// Load reads the transport config from the environment. A .env file in
// the working directory is loaded first, if present (dev convenience);
// production deployments rely on real environment variables.
func Load() *Transport {
	_ = godotenv.Load()
	return &Transport{
		TExpire:           getEnvDuration("DIM_T_EXPIRE", 16*time.Second),
		TLong:             getEnvDuration("DIM_T_LONG", 128*time.Second),
		QueryExpires:      getEnvDuration("DIM_QUERY_EXPIRES", 10*time.Minute),
		EntryExpires:      getEnvDuration("DIM_ENTRY_EXPIRES", 5*time.Minute),
		FinishedRetention: getEnvDuration("DIM_FINISHED_RETENTION", time.Hour),
		TRetry:            getEnvDuration("DIM_T_RETRY", 8*time.Second),
		PurgeInterval:     getEnvDuration("DIM_PURGE_INTERVAL", 30*time.Second),
		ConnectionExpired: getEnvDuration("DIM_CONNECTION_EXPIRED", 128*time.Second),
		ConnectionRetry:   getEnvDuration("DIM_CONNECTION_RETRY", 32*time.Second),
		ForegroundTick:    getEnvDuration("DIM_FOREGROUND_TICK", time.Second),
		BackgroundTick:    getEnvDuration("DIM_BACKGROUND_TICK", 4*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}
