package scheduler

import (
	"context"
	"fmt"
	"time"

	"keeper/internal/logger"
	"keeper/internal/retry"
	"keeper/internal/signal"
	"keeper/internal/store"
	"keeper/internal/venue"
)

const lastVenueKey = "router_last_venue"

// RouteParams weight the venue score:
//
//	score = clamp(balance, cap)*w1 + max(0, target-open)*w2
//	      + leveraged bonus + recency penalty
//
// A venue holding an open leveraged position is chosen unconditionally; it
// has to be watched every cycle regardless of score.
type RouteParams struct {
	BalanceCapUSD     float64
	BalanceWeight     float64
	PositionGapWeight float64
	TargetPositions   int
	LeveragedBonus    float64
	RecencyPenalty    float64
	MinBalanceUSD     float64
	FallbackVenue     string
	ConfidenceFloor   float64

	// CandidateAsset is what the signal provider scores to decide whether
	// the directive proposes trading or just monitoring. Empty skips the
	// provider consult.
	CandidateAsset string
}

type RouterTask struct {
	params   RouteParams
	venues   []venue.Adapter
	provider signal.Provider
	kv       store.KVRepository
	policy   retry.Policy
	interval time.Duration
}

func NewRouterTask(params RouteParams, venues []venue.Adapter, provider signal.Provider, kv store.KVRepository, policy retry.Policy, interval time.Duration) *RouterTask {
	return &RouterTask{
		params:   params,
		venues:   venues,
		provider: provider,
		kv:       kv,
		policy:   policy,
		interval: interval,
	}
}

func (t *RouterTask) Name() string               { return "venue_router" }
func (t *RouterTask) MinInterval() time.Duration { return t.interval }

type venueState struct {
	name      string
	balance   float64
	open      int
	leveraged bool
	score     float64
}

func (t *RouterTask) Evaluate(ctx context.Context, now time.Time) (WakeVote, error) {
	if len(t.venues) == 0 {
		return WakeVote{}, fmt.Errorf("no venues registered")
	}

	var lastVenue string
	if t.kv != nil {
		if _, err := t.kv.Get(ctx, lastVenueKey, &lastVenue); err != nil {
			logger.Warnf("router: last venue read failed: %v", err)
		}
	}

	states := make([]venueState, 0, len(t.venues))
	for _, v := range t.venues {
		states = append(states, t.observe(ctx, v, lastVenue))
	}

	// Unconditional pick: an open leveraged position pins the router to its
	// venue, score be damned.
	for _, s := range states {
		if s.leveraged {
			return t.choose(ctx, Directive{
				Venue:   s.name,
				Action:  "monitor",
				Message: fmt.Sprintf("open leveraged position on %s requires monitoring", s.name),
			}), nil
		}
	}

	allBelowMinimum := true
	best := states[0]
	for _, s := range states {
		if s.balance >= t.params.MinBalanceUSD {
			allBelowMinimum = false
		}
		if s.score > best.score {
			best = s
		}
	}

	if allBelowMinimum {
		fallback := t.params.FallbackVenue
		if fallback == "" {
			fallback = states[0].name
		}
		return t.choose(ctx, Directive{
			Venue:    fallback,
			Action:   "monitor",
			Message:  fmt.Sprintf("degraded: all venues below minimum balance %.2f, falling back to %s", t.params.MinBalanceUSD, fallback),
			Degraded: true,
		}), nil
	}

	action := "trade"
	if t.provider != nil && t.params.CandidateAsset != "" {
		score, err := t.provider.Score(ctx, t.params.CandidateAsset)
		if err != nil {
			logger.Warnf("router: signal provider failed: %v", err)
			action = "monitor"
		} else if score.Recommendation != signal.RecommendTrade || score.Confidence < t.params.ConfidenceFloor {
			action = "monitor"
		}
	}
	return t.choose(ctx, Directive{
		Venue:   best.name,
		Action:  action,
		Message: fmt.Sprintf("routed to %s (score=%.4f balance=%.2f open=%d)", best.name, best.score, best.balance, best.open),
	}), nil
}

func (t *RouterTask) observe(ctx context.Context, v venue.Adapter, lastVenue string) venueState {
	s := venueState{name: v.Name()}

	balance, err := retry.Do(ctx, v.Name()+".balance", t.policy, func(ctx context.Context) (float64, error) {
		return v.GetBalance(ctx)
	})
	if err != nil {
		logger.Warnf("router: balance fetch failed venue=%s err=%v", v.Name(), err)
	} else {
		s.balance = balance
	}

	positions, err := retry.Do(ctx, v.Name()+".positions", t.policy, func(ctx context.Context) ([]venue.Position, error) {
		return v.GetOpenPositions(ctx)
	})
	if err != nil {
		logger.Warnf("router: positions fetch failed venue=%s err=%v", v.Name(), err)
	} else {
		s.open = len(positions)
		for _, p := range positions {
			if p.Leveraged {
				s.leveraged = true
				break
			}
		}
	}

	s.score = t.score(s, lastVenue)
	return s
}

func (t *RouterTask) score(s venueState, lastVenue string) float64 {
	balance := s.balance
	if t.params.BalanceCapUSD > 0 && balance > t.params.BalanceCapUSD {
		balance = t.params.BalanceCapUSD
	}
	score := balance * t.params.BalanceWeight
	if gap := t.params.TargetPositions - s.open; gap > 0 {
		score += float64(gap) * t.params.PositionGapWeight
	}
	if s.leveraged {
		score += t.params.LeveragedBonus
	}
	if lastVenue != "" && lastVenue == s.name {
		score -= t.params.RecencyPenalty
	}
	return score
}

func (t *RouterTask) choose(ctx context.Context, d Directive) WakeVote {
	if t.kv != nil {
		if err := t.kv.Put(ctx, lastVenueKey, d.Venue); err != nil {
			logger.Warnf("router: last venue persist failed: %v", err)
		}
	}
	return WakeVote{Wake: true, Message: d.Message, Directive: &d}
}
