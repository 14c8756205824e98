package oracle

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/bictrace/internal/respcache"
	"github.com/metalagman/bictrace/internal/tracker"
)

// Verifier asks the small model to accept or reject a completed chain.
type Verifier struct {
	transport Transport
	cache     *respcache.Cache
}

// NewVerifier builds a verifier over a transport and an optional cache.
func NewVerifier(transport Transport, cache *respcache.Cache) *Verifier {
	return &Verifier{transport: transport, cache: cache}
}

// Verify judges the chain. A response that stays malformed after one
// re-prompt rejects the chain rather than failing the run.
func (v *Verifier) Verify(ctx context.Context, fix tracker.FixContext, chain tracker.Chain, bicDiff string) (tracker.Verification, error) {
	system, user := buildVerifierPrompt(fix, chain, bicDiff)
	fp := respcache.Fingerprint(v.transport.Model(), system, user)
	if cached, hit, err := v.cache.Get(ctx, fp); err != nil {
		log.Warn().Err(err).Msg("cache read failed, falling through to transport")
	} else if hit {
		if ver, perr := parseVerification(cached); perr == nil {
			return ver, nil
		}
	}

	raw, err := v.transport.Send(ctx, system, user)
	if err != nil {
		return tracker.Verification{}, err
	}
	ver, perr := parseVerification(raw)
	if perr != nil {
		log.Debug().Err(perr).Msg("malformed verifier response, re-prompting")
		raw, err = v.transport.Send(ctx, system, user+reformatInstruction)
		if err != nil {
			return tracker.Verification{}, err
		}
		ver, perr = parseVerification(raw)
		if perr != nil {
			return tracker.Verification{
				Accepted: false,
				Reason:   "unparseable verification response",
			}, nil
		}
	}
	if err := v.cache.Put(ctx, fp, v.transport.Model(), raw); err != nil {
		log.Warn().Err(err).Msg("cache write failed")
	}
	return ver, nil
}
