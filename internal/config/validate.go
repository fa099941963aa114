// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/tomtom215/affinity/internal/validation"
)

// Validate checks field rules and the cross-field constraints the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	if c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit (%d) exceeds recommend.max_limit (%d)",
			c.Recommend.DefaultLimit, c.Recommend.MaxLimit)
	}

	switch c.Cache.Backend {
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	case "badger":
		if !c.Cache.Badger.InMemory && strings.TrimSpace(c.Cache.Badger.Path) == "" {
			return fmt.Errorf("cache.badger.path is required unless cache.badger.in_memory is set")
		}
	}

	if c.NATS.Enabled {
		if !c.NATS.EmbeddedServer && strings.TrimSpace(c.NATS.URL) == "" {
			return fmt.Errorf("nats.url is required when nats is enabled without the embedded server")
		}
		if c.NATS.StreamName == "" {
			return fmt.Errorf("nats.stream_name is required when nats is enabled")
		}
		if c.NATS.DurableName == "" {
			return fmt.Errorf("nats.durable_name is required when nats is enabled")
		}
		if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
			return fmt.Errorf("nats.store_dir is required for the embedded server")
		}
	}

	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
