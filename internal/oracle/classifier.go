package oracle

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/bictrace/internal/respcache"
	"github.com/metalagman/bictrace/internal/tracker"
)

// Classifier asks the large model for a verdict on one commit.
type Classifier struct {
	transport Transport
	cache     *respcache.Cache
}

// NewClassifier builds a classifier over a transport and an optional cache.
func NewClassifier(transport Transport, cache *respcache.Cache) *Classifier {
	return &Classifier{transport: transport, cache: cache}
}

// Classify resolves the request through the cache or the transport. A cache
// hit performs zero transport calls.
func (c *Classifier) Classify(ctx context.Context, req tracker.Request) (tracker.Analysis, error) {
	system, user := buildClassifierPrompt(req)
	raw, err := c.exchange(ctx, system, user)
	if err != nil {
		return tracker.Analysis{}, err
	}
	analysis, err := parseAnalysis(raw)
	if err != nil {
		return tracker.Analysis{}, err
	}
	return analysis, nil
}

// exchange returns a response that is known to parse, consulting the cache
// first and re-prompting once on a malformed reply.
func (c *Classifier) exchange(ctx context.Context, system, user string) (string, error) {
	fp := respcache.Fingerprint(c.transport.Model(), system, user)
	if cached, hit, err := c.cache.Get(ctx, fp); err != nil {
		log.Warn().Err(err).Msg("cache read failed, falling through to transport")
	} else if hit {
		return cached, nil
	}

	raw, err := c.transport.Send(ctx, system, user)
	if err != nil {
		return "", err
	}
	if _, perr := parseAnalysis(raw); perr != nil {
		log.Debug().Err(perr).Msg("malformed classifier response, re-prompting")
		raw, err = c.transport.Send(ctx, system, user+reformatInstruction)
		if err != nil {
			return "", err
		}
		if _, perr := parseAnalysis(raw); perr != nil {
			return "", &ParseError{Model: c.transport.Model(), Raw: raw, Err: perr}
		}
	}
	if err := c.cache.Put(ctx, fp, c.transport.Model(), raw); err != nil {
		log.Warn().Err(err).Msg("cache write failed")
	}
	return raw, nil
}
