package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lychee-technology/sift"
)

// Pipeline sequences the translator tiers: deterministic parse, then up
// to two AI attempts, then the heuristic fallback. Tiers run strictly
// sequentially and short-circuit on first success. The AI call is the
// only operation that may block for non-trivial time and is bounded by a
// cancelling timeout.
type Pipeline struct {
	cfg        *sift.Config
	translator *Translator
	ai         *AIClient
	cache      *QueryCache
	group      singleflight.Group
}

// Resolution is a successfully resolved filter plus its provenance.
type Resolution struct {
	Filter sift.Node
	Source sift.Source
	Cached bool
}

// NewPipeline wires the pipeline. ai may be nil, disabling the AI tier.
func NewPipeline(cfg *sift.Config, translator *Translator, ai *AIClient, cache *QueryCache) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		translator: translator,
		ai:         ai,
		cache:      cache,
	}
}

// Preview runs the instant client-side heuristic only. It never blocks.
func (p *Pipeline) Preview(req sift.SearchRequest) sift.Node {
	return QuickPreview(req.Text, req.Entity, req.Schema)
}

// Resolve produces the authoritative filter node for a request.
// Identical concurrent requests are collapsed into one resolution.
func (p *Pipeline) Resolve(ctx context.Context, req sift.SearchRequest) (*Resolution, error) {
	if !req.Entity.Valid() {
		return nil, sift.NewInputError(sift.ErrCodeUnknownEntity,
			fmt.Sprintf("unknown entity %q", req.Entity))
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, sift.NewInputError(sift.ErrCodeEmptyQuery, "query text is empty")
	}

	key := CacheKey(req.Entity, req.Schema, req.Text)
	if node, source, ok := p.cache.Get(key); ok {
		EmitCacheHit(ctx, string(req.Entity))
		return &Resolution{Filter: node, Source: source, Cached: true}, nil
	}

	result, err, _ := p.group.Do(key, func() (any, error) {
		res, err := p.resolveUncached(ctx, req)
		if err != nil {
			return nil, err
		}
		p.cache.Put(key, res.Filter, res.Source)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Resolution), nil
}

func (p *Pipeline) resolveUncached(ctx context.Context, req sift.SearchRequest) (*Resolution, error) {
	started := time.Now()
	if node := p.translator.NLToDSL(req.Text, req.Entity, req.Schema); node != nil {
		EmitStageLatency(ctx, "deterministic", time.Since(started).Milliseconds())
		EmitTierOutcome(ctx, "deterministic", "hit")
		return &Resolution{Filter: node, Source: sift.SourceDeterministic}, nil
	}
	EmitTierOutcome(ctx, "deterministic", "miss")

	node, reason, outputs := p.resolveAI(ctx, req)
	if node != nil {
		return &Resolution{Filter: node, Source: sift.SourceAI}, nil
	}

	started = time.Now()
	if node := FallbackTranslate(req.Text, req.Entity, req.Schema); node != nil {
		EmitStageLatency(ctx, "heuristic", time.Since(started).Milliseconds())
		EmitTierOutcome(ctx, "heuristic", "hit")
		return &Resolution{Filter: node, Source: sift.SourceHeuristic}, nil
	}
	EmitTierOutcome(ctx, "heuristic", "miss")

	err := sift.NewUnresolvableError(reason)
	if len(outputs) > 0 {
		err = err.WithDetail("attempts", outputs)
	}
	return nil, err
}

// resolveAI runs the bounded two-attempt AI tier. It returns the repaired
// and pruned node on success; otherwise a failure reason distinguishing
// "no response at all" from "invalid JSON received", plus the raw outputs
// for diagnostics.
func (p *Pipeline) resolveAI(ctx context.Context, req sift.SearchRequest) (sift.Node, string, []string) {
	reason := sift.ReasonNoResponse
	if p.ai == nil {
		return nil, reason, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.AI.Timeout)
	err := p.ai.Probe(probeCtx)
	cancel()
	if err != nil {
		zap.S().Debugw("ai probe failed, skipping tier", "err", err)
		EmitTierOutcome(ctx, "ai", "unavailable")
		return nil, reason, nil
	}

	columns := NewSet(sift.Columns(req.Schema)...)
	var outputs []string

	for attempt := 1; attempt <= p.cfg.AI.MaxAttempts; attempt++ {
		started := time.Now()
		genCtx, cancel := context.WithTimeout(ctx, p.cfg.AI.Timeout)
		raw, err := p.ai.Generate(genCtx, systemPrompt, userPrompt(attempt, req))
		cancel()
		EmitStageLatency(ctx, "ai", time.Since(started).Milliseconds())

		if err != nil {
			// Unreachable or erroring upstream: advance to the next tier,
			// no point in a second prompt.
			zap.S().Warnw("ai generate failed", "attempt", attempt, "err", err)
			EmitTierOutcome(ctx, "ai", "unavailable")
			return nil, reason, outputs
		}

		outputs = append(outputs, raw)
		node, perr := ParseEnvelope(raw)
		if perr != nil {
			zap.S().Debugw("ai output not parseable", "attempt", attempt, "err", perr)
			reason = sift.ReasonInvalidJSON
			continue
		}

		repaired := Repair(node, req.Schema, RepairOptions{FuzzyThreshold: p.cfg.Query.FuzzyThreshold})
		pruned := PruneUnknown(repaired, columns)
		if pruned == nil {
			// A filter referencing no known column is a hallucination and
			// counts as no answer.
			zap.S().Warnw("ai filter referenced no known column, discarding", "attempt", attempt)
			reason = sift.ReasonInvalidJSON
			EmitTierOutcome(ctx, "ai", "hallucinated")
			return nil, reason, outputs
		}

		EmitTierOutcome(ctx, "ai", "hit")
		return pruned, "", outputs
	}

	EmitTierOutcome(ctx, "ai", "malformed")
	return nil, reason, outputs
}

const systemPrompt = `You translate natural-language questions about tabular records into filter expressions. Respond with exactly one JSON object and nothing else: no prose, no markdown fences. The object has the shape {"filter": <node>} where <node> is either {"op":"and|or|not","children":[...]} or a leaf {"op":"cmp|includes|contains|in|nin|startsWith|endsWith|regex|exists|notExists|between","field":"<column>",...}. Leaf payloads: cmp carries "cmp" (one of ==,!=,>,>=,<,<=) and "value"; includes/contains/startsWith/endsWith/regex carry "value"; in/nin carry "values"; between carries "from" and "to"; exists/notExists carry nothing else. Only reference the allowed columns.`

func userPrompt(attempt int, req sift.SearchRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity: %s\n", req.Entity)
	fmt.Fprintf(&b, "Allowed columns: %s\n", strings.Join(sift.Columns(req.Schema), ", "))
	fmt.Fprintf(&b, "Query: %s\n", req.Text)
	if attempt > 1 {
		b.WriteString("\nYour previous answer was not a valid JSON filter envelope. ")
		b.WriteString("Answer again with ONLY one JSON object, all keys double-quoted, no trailing commas. Example:\n")
		b.WriteString(`{"filter":{"op":"and","children":[{"op":"cmp","field":"Duration","cmp":">","value":2},{"op":"includes","field":"PreferredPhases","value":3}]}}`)
		b.WriteString("\n")
	}
	return b.String()
}
