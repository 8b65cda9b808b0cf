// Package activity provides common infrastructure for all Temporal activity
// implementations: base types, context extraction, safe logging, and event
// emission utilities shared across the domain-specific activity packages.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-consilium/pkg/events"
)

// WorkflowContext contains metadata extracted from the Temporal activity
// context. It provides consistent access to workflow execution information
// across all activities, with fallback values for testing scenarios.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
}

// BaseActivities provides common infrastructure for all activity types:
// event emission, context extraction, and safe logging that works both in
// Temporal activity contexts and test environments.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities creates a BaseActivities instance with the provided
// event sink. The sink can be nil for tests that do not emit events.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext safely extracts workflow context from the activity
// context. In a Temporal activity context it returns the actual workflow
// execution details; in test contexts (where activity.GetInfo would panic)
// it generates stable test IDs.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	var wfCtx WorkflowContext

	func() {
		defer func() {
			if r := recover(); r != nil {
				// Test context, fall back to generated identifiers.
				wfCtx.WorkflowID = "test-workflow"
				wfCtx.RunID = "test-run-" + uuid.New().String()[:8]
				wfCtx.ActivityID = "test-activity"
			}
		}()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
	}()

	return wfCtx
}

// EmitEventSafe provides best-effort event emission with a short retry.
// Event emission must not fail the primary activity operation, so failures
// are logged and swallowed after the retry budget is exhausted.
func (b *BaseActivities) EmitEventSafe(
	ctx context.Context,
	envelope events.Envelope,
	description string,
) {
	if b.eventSink == nil {
		return // Testing scenario without event sink.
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", envelope.Type,
			"idempotency_key", envelope.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat safely records a heartbeat in the Temporal activity
// context. Safe to call in non-activity contexts where it is ignored.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// HeartbeatEvery records an immediate heartbeat and then keeps heartbeating
// at the given interval until the returned stop function is called or the
// context is cancelled. Use it around long blocking calls (such as provider
// requests) so activities with a heartbeat timeout stay alive for the full
// duration of the work. The stop function is safe to call more than once.
func (b *BaseActivities) HeartbeatEvery(
	ctx context.Context,
	interval time.Duration,
	details ...any,
) (stop func()) {
	RecordHeartbeat(ctx, details...)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				RecordHeartbeat(ctx, details...)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// SafeLog performs context-safe logging that works in both activity and
// test contexts. In a Temporal activity context it uses the activity
// logger; in test contexts it silently ignores the call.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		if recover() != nil {
			// Not an activity context, ignore.
		}
	}()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError performs context-safe error logging, mirroring SafeLog at
// ERROR level for operational visibility of problems.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		if recover() != nil {
			// Not an activity context, ignore.
		}
	}()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat safely records activity heartbeat with details, handling
// non-activity contexts without panicking.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() {
		if recover() != nil {
			// Not an activity context, ignore.
		}
	}()
	activity.RecordHeartbeat(ctx, details...)
}
