package adapter

import (
	"context"
	"fmt"

	"github.com/forgecms/storage/result"
)

// BatchModule runs heterogeneous CRUD operations sequentially. Items are
// isolated from each other: one failure does not stop or undo the rest,
// so partial effects persist. Callers who need atomicity should use a
// transaction instead.
type BatchModule struct {
	c    *core
	crud *CrudModule
}

// Batch operation kinds.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpUpsert = "upsert"
)

// Operation is one step in a batch.
type Operation struct {
	Op         string         `json:"op"`
	Collection string         `json:"collection"`
	ID         string         `json:"id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Query      map[string]any `json:"query,omitempty"`
}

// OperationResult reports a single step's outcome.
type OperationResult struct {
	Index   int            `json:"index"`
	Op      string         `json:"op"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (m *BatchModule) run(ctx context.Context, i int, op Operation, tenantID string) OperationResult {
	out := OperationResult{Index: i, Op: op.Op}

	var (
		doc  map[string]any
		fail *result.Error
	)
	switch op.Op {
	case OpInsert:
		r := m.crud.Insert(ctx, op.Collection, op.Data, tenantID)
		doc, fail = r.Data, r.Error
	case OpUpdate:
		r := m.crud.Update(ctx, op.Collection, op.ID, op.Data, tenantID)
		doc, fail = r.Data, r.Error
	case OpUpsert:
		r := m.crud.Upsert(ctx, op.Collection, op.Query, op.Data, tenantID)
		doc, fail = r.Data, r.Error
	case OpDelete:
		r := m.crud.Delete(ctx, op.Collection, op.ID, tenantID)
		fail = r.Error
	default:
		out.Error = fmt.Sprintf("unknown batch op %q", op.Op)
		return out
	}

	if fail != nil {
		out.Error = fail.Message
		return out
	}
	out.Success = true
	out.Data = doc
	return out
}

// Execute runs the batch in order. The whole batch is rejected up front
// when it exceeds the adapter's batch size ceiling; otherwise every item
// is attempted and the per-item outcomes are returned even when some
// fail.
func (m *BatchModule) Execute(ctx context.Context, ops []Operation, tenantID string) result.Result[[]OperationResult] {
	if max := mysqlCapabilities.MaxBatchSize; len(ops) > max {
		return result.Fail[[]OperationResult]("BATCH_TOO_LARGE",
			fmt.Sprintf("batch of %d exceeds the limit of %d operations", len(ops), max))
	}

	out := make([]OperationResult, 0, len(ops))
	failed := 0
	for i, op := range ops {
		r := m.run(ctx, i, op, tenantID)
		if !r.Success {
			failed++
		}
		out = append(out, r)
	}

	if failed > 0 {
		return result.FailDetails[[]OperationResult]("BATCH_PARTIAL_FAILURE",
			fmt.Sprintf("%d of %d batch operations failed", failed, len(ops)), out)
	}
	return result.OK(out)
}

// BulkInsert inserts a set of documents through the batch pipeline.
func (m *BatchModule) BulkInsert(ctx context.Context, collection string, docs []map[string]any, tenantID string) result.Result[[]OperationResult] {
	ops := make([]Operation, 0, len(docs))
	for _, d := range docs {
		ops = append(ops, Operation{Op: OpInsert, Collection: collection, Data: d})
	}
	return m.Execute(ctx, ops, tenantID)
}

// BulkUpdateItem pairs a document id with its patch.
type BulkUpdateItem struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// BulkUpdate patches a set of documents by id.
func (m *BatchModule) BulkUpdate(ctx context.Context, collection string, items []BulkUpdateItem, tenantID string) result.Result[[]OperationResult] {
	ops := make([]Operation, 0, len(items))
	for _, it := range items {
		ops = append(ops, Operation{Op: OpUpdate, Collection: collection, ID: it.ID, Data: it.Data})
	}
	return m.Execute(ctx, ops, tenantID)
}

// BulkDelete removes a set of documents by id.
func (m *BatchModule) BulkDelete(ctx context.Context, collection string, ids []string, tenantID string) result.Result[[]OperationResult] {
	ops := make([]Operation, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, Operation{Op: OpDelete, Collection: collection, ID: id})
	}
	return m.Execute(ctx, ops, tenantID)
}

// BulkUpsert upserts a set of query/document pairs.
func (m *BatchModule) BulkUpsert(ctx context.Context, collection string, items []UpsertItem, tenantID string) result.Result[[]OperationResult] {
	ops := make([]Operation, 0, len(items))
	for _, it := range items {
		ops = append(ops, Operation{Op: OpUpsert, Collection: collection, Query: it.Query, Data: it.Data})
	}
	return m.Execute(ctx, ops, tenantID)
}
