package middleware

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/google/uuid"
	"github.com/inful/mdfp"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/fault"
)

// Payload keys written by the built-in steps.
const (
	KeyRequestID   = fault.DataRequestID
	KeyFingerprint = fault.DataFingerprint
	KeyRevision    = "revision"
	KeyEnvironment = "environment"
)

// Timestamp stamps the context with clock().
func Timestamp(clock func() time.Time) Step {
	if clock == nil {
		clock = time.Now
	}
	return Enrich("timestamp", func(c *fault.Context) {
		c.SetTimestamp(clock())
	})
}

// RequestID attaches id() under KeyRequestID unless one is already present.
// A nil id uses random UUIDs.
func RequestID(id func() string) Step {
	if id == nil {
		id = uuid.NewString
	}
	return Enrich("request_id", func(c *fault.Context) {
		if c.String(KeyRequestID) == "" {
			c.Set(KeyRequestID, id())
		}
	})
}

// Tag attaches a constant payload entry.
func Tag(key string, value any) Step {
	return Enrich("tag:"+key, func(c *fault.Context) {
		c.Set(key, value)
	})
}

// Attach copies every entry of values into the payload.
func Attach(name string, values map[string]any) Step {
	return Enrich(name, func(c *fault.Context) {
		for k, v := range values {
			c.Set(k, v)
		}
	})
}

// Fingerprint attaches a content fingerprint identifying faults that share a
// code, location and message. Timestamps and payload do not take part.
func Fingerprint() Step {
	return Enrich("fingerprint", func(c *fault.Context) {
		c.Set(KeyFingerprint, FingerprintOf(c))
	})
}

// FingerprintOf computes the fingerprint Fingerprint attaches.
func FingerprintOf(c *fault.Context) string {
	header := fmt.Sprintf("label: %s\nlocation: %s", c.Label(), c.Location())
	return mdfp.CalculateFingerprintFromParts(header, c.Message())
}

// ErrRevisionUnavailable is returned when the source tree has no readable HEAD.
var ErrRevisionUnavailable = ferrors.MiddlewareError("source revision unavailable").Build()

// Revision resolves the HEAD commit of the git repository containing path
// once, and returns a step attaching it under KeyRevision.
func Revision(path string) (Step, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, ErrRevisionUnavailable.WithContext("path", path).Wrap(err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, ErrRevisionUnavailable.WithContext("path", path).Wrap(err)
	}
	return Tag(KeyRevision, head.Hash().String()), nil
}
