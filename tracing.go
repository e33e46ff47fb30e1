package qdispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/theapemachine/qdispatch"

// Span and attribute names shared by the worker and tests.
const (
	spanTask      = "qdispatch.task"
	attrTaskID    = "task.id"
	attrTaskKind  = "task.kind"
	attrWorkerID  = "worker.id"
	attrAttempts  = "task.attempts"
	attrPoolID    = "pool.id"
	attrSucceeded = "task.success"
)

func startTaskSpan(ctx context.Context, tracer trace.Tracer, poolID string, workerID int, t Task) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanTask, trace.WithAttributes(
		attribute.String(attrPoolID, poolID),
		attribute.String(attrTaskID, t.ID),
		attribute.String(attrTaskKind, t.Kind.String()),
		attribute.Int(attrWorkerID, workerID),
	))
}

func endTaskSpan(span trace.Span, r Result) {
	span.SetAttributes(
		attribute.Int(attrAttempts, r.Attempts),
		attribute.Bool(attrSucceeded, r.Success),
	)

	if r.Err != nil {
		span.RecordError(r.Err)
		span.SetStatus(codes.Error, r.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
