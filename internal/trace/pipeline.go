package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/store"
)

// Pipeline implements the ingestion procedure of spec §4.4: trace
// resolution, span persistence with alias and local-id parent resolution,
// aggregate counter maintenance, and post-commit async event fan-out.
type Pipeline struct {
	traces   *store.TraceStore
	agents   *store.AgentStore
	streamer *Streamer

	mu sync.Mutex // serialises ingest so steps 1-7 read-then-write atomically
}

// NewPipeline builds a Pipeline.
func NewPipeline(traces *store.TraceStore, agents *store.AgentStore, streamer *Streamer) *Pipeline {
	return &Pipeline{traces: traces, agents: agents, streamer: streamer}
}

// Ingest runs the full ingestion procedure for one batch and returns the
// affected trace. Fan-out of trace_started/span_added/trace_completed
// happens asynchronously after this call returns (spec §4.4 step 8).
func (p *Pipeline) Ingest(req models.TraceIngestRequest) (*models.Trace, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	trc, created, err := p.resolveTrace(req)
	if err != nil {
		return nil, err
	}

	localToServerID := make(map[string]string, len(req.Spans))
	persisted := make([]*models.Span, 0, len(req.Spans))
	allEnded := len(req.Spans) > 0
	allOK := true

	for _, submission := range req.Spans {
		span := &models.Span{
			ID:           uuid.NewString(),
			TraceID:      trc.ID,
			Kind:         resolveSpanKind(submission.Kind),
			Name:         submission.Name,
			StartedAt:    submission.StartedAt,
			EndedAt:      submission.EndedAt,
			Status:       submission.Status,
			Attributes:   submission.Attributes,
			Model:        submission.Model,
			ToolName:     submission.ToolName,
			ToolInput:    submission.ToolInput,
			ToolOutput:   submission.ToolOutput,
			ErrorType:    submission.ErrorType,
			ErrorMessage: submission.ErrorMessage,
		}
		if submission.UsageMetadata != nil {
			span.InputTokens = submission.UsageMetadata.InputTokens
			span.OutputTokens = submission.UsageMetadata.OutputTokens
			span.TotalTokens = submission.UsageMetadata.TotalTokens
		}
		if submission.ResponseMetadata != nil {
			span.LatencyMs = submission.ResponseMetadata.LatencyMs
		}
		if submission.ParentLocalSpanID != "" {
			if serverID, ok := localToServerID[submission.ParentLocalSpanID]; ok {
				span.ParentSpanID = serverID
			}
		}
		localToServerID[submission.LocalID] = span.ID

		p.traces.AppendSpan(span)
		persisted = append(persisted, span)

		if submission.EndedAt == nil {
			allEnded = false
		}
		if submission.Status != models.SpanStatusOK {
			allOK = false
		}
	}

	completedNow := false
	if allEnded {
		var maxEnded time.Time
		for _, sp := range persisted {
			if sp.EndedAt != nil && sp.EndedAt.After(maxEnded) {
				maxEnded = *sp.EndedAt
			}
		}
		trc.EndedAt = &maxEnded
		if allOK {
			trc.Status = models.TraceStatusCompleted
		} else {
			trc.Status = models.TraceStatusFailed
		}
		completedNow = true
	}

	p.recomputeAggregates(trc)
	p.traces.PutTrace(trc)

	p.fanOut(trc, created, persisted, completedNow)
	return trc, nil
}

// resolveTrace implements spec §4.4 steps 1-3.
func (p *Pipeline) resolveTrace(req models.TraceIngestRequest) (*models.Trace, bool, error) {
	if req.TraceID != "" {
		trc, err := p.traces.GetTrace(req.TraceID)
		if err != nil {
			return nil, false, err
		}
		return trc, false, nil
	}

	if req.ThreadID != "" {
		for _, trc := range p.traces.ListTracesByAgent(req.AgentID) {
			if trc.ThreadID == req.ThreadID {
				return trc, false, nil
			}
		}
	}

	now := time.Now().UTC()
	trc := &models.Trace{
		ID:        uuid.NewString(),
		AgentID:   req.AgentID,
		ThreadID:  req.ThreadID,
		Status:    models.TraceStatusOpen,
		StartedAt: now,
		Metadata:  req.Metadata,
	}
	p.traces.PutTrace(trc)
	return trc, true, nil
}

// recomputeAggregates sums every span persisted under trc so far, making
// the counters idempotent across repeated ingestion batches (spec §4.4
// step 6).
func (p *Pipeline) recomputeAggregates(trc *models.Trace) {
	spans := p.traces.ListSpans(trc.ID)

	var inputTokens, outputTokens, totalTokens, latencyMs int64
	var toolCalls int
	for _, sp := range spans {
		inputTokens += sp.InputTokens
		outputTokens += sp.OutputTokens
		totalTokens += sp.TotalTokens
		latencyMs += sp.LatencyMs
		if sp.Kind == models.SpanKindToolCall {
			toolCalls++
		}
	}
	trc.TotalInputTokens = inputTokens
	trc.TotalOutputTokens = outputTokens
	trc.TotalTokens = totalTokens
	trc.TotalLatencyMs = latencyMs
	trc.ToolCallCount = toolCalls
}

// fanOut dispatches trace_started/span_added/trace_completed to the owning
// organisation's subscribers, asynchronously (spec §4.4 step 8). A trace
// with no resolvable owning agent (and therefore no organisation) fans out
// to nobody rather than erroring the ingest.
func (p *Pipeline) fanOut(trc *models.Trace, created bool, spans []*models.Span, completedNow bool) {
	if p.streamer == nil {
		return
	}
	orgID := p.ownerOrg(trc.AgentID)
	if orgID == "" {
		return
	}

	snapshot := *trc
	go func() {
		if created {
			p.streamer.Publish(orgID, Event{Type: EventTraceStarted, Trace: snapshot})
		}
		for _, sp := range spans {
			spCopy := *sp
			p.streamer.Publish(orgID, Event{Type: EventSpanAdded, Trace: snapshot, Span: &spCopy})
		}
		if completedNow {
			p.streamer.Publish(orgID, Event{Type: EventTraceCompleted, Trace: snapshot})
		}
	}()
}

func (p *Pipeline) ownerOrg(agentID string) string {
	if p.agents == nil {
		return ""
	}
	agent, err := p.agents.Get(agentID)
	if err != nil {
		return ""
	}
	return agent.OwnerOrganizationID
}
