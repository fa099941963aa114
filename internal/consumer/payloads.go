// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package consumer

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Subjects consumed.
const (
	TopicBehaviorBatch = "behavior.batch"
	TopicSwipe         = "matching.swipe"
	TopicProfileUpdate = "user.profile.updated"
)

// Topics lists every consumed subject.
var Topics = []string{TopicBehaviorBatch, TopicSwipe, TopicProfileUpdate}

// ErrMalformed marks payloads that will never decode.
var ErrMalformed = errors.New("malformed event payload")

type behaviorBatch struct {
	Events []behaviorEvent `json:"events"`
}

type behaviorEvent struct {
	UserID       string   `json:"userId"`
	TargetUserID string   `json:"targetUserId"`
	EventType    string   `json:"eventType"`
	Weight       *float64 `json:"weight,omitempty"`
}

type swipeEvent struct {
	SwiperID     string `json:"swiperId"`
	UserID       string `json:"userId"`
	SwipedID     string `json:"swipedId"`
	TargetUserID string `json:"targetUserId"`
}

type profileUpdate struct {
	UserID string `json:"userId"`
	ID     string `json:"id"`
}

// DecodeUserIDs extracts the user ids a message names, in payload order.
// Duplicates are kept. It wraps ErrMalformed when the payload does not
// decode or names nobody.
func DecodeUserIDs(topic string, payload []byte) ([]string, error) {
	var ids []string

	switch topic {
	case TopicBehaviorBatch:
		var batch behaviorBatch
		if err := json.Unmarshal(payload, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		for _, ev := range batch.Events {
			ids = appendNonEmpty(ids, ev.UserID, ev.TargetUserID)
		}

	case TopicSwipe:
		var ev swipeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		ids = appendNonEmpty(ids,
			firstNonEmpty(ev.SwiperID, ev.UserID),
			firstNonEmpty(ev.SwipedID, ev.TargetUserID))

	case TopicProfileUpdate:
		var ev profileUpdate
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		ids = appendNonEmpty(ids, firstNonEmpty(ev.UserID, ev.ID))

	default:
		return nil, fmt.Errorf("%w: unknown topic %q", ErrMalformed, topic)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no user ids", ErrMalformed)
	}
	return ids, nil
}

func appendNonEmpty(dst []string, ids ...string) []string {
	for _, id := range ids {
		if id != "" {
			dst = append(dst, id)
		}
	}
	return dst
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
