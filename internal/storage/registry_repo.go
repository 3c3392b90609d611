package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sciflow/internal/registry"
)

// SchemaRepo is the durable registry schema cache behind the type_schemas
// table. It satisfies registry.SchemaStore.
type SchemaRepo struct {
	db *DB
}

func NewSchemaRepo(db *DB) *SchemaRepo {
	return &SchemaRepo{db: db}
}

func (r *SchemaRepo) Get(ctx context.Context, typeID string) (registry.TypeInfo, bool, error) {
	info := registry.TypeInfo{TypeID: typeID}
	err := r.db.Pool.QueryRow(ctx, `
SELECT name, description, properties, last_updated FROM type_schemas WHERE type_id = $1`, typeID).
		Scan(&info.Name, &info.Description, &info.Properties, &info.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return registry.TypeInfo{}, false, nil
	}
	if err != nil {
		return registry.TypeInfo{}, false, fmt.Errorf("get type schema %s: %w", typeID, err)
	}
	return info, true, nil
}

func (r *SchemaRepo) Put(ctx context.Context, info registry.TypeInfo) error {
	props := info.Properties
	if props == nil {
		props = []string{}
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO type_schemas (type_id, name, description, properties, last_updated)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (type_id) DO UPDATE SET
  name = EXCLUDED.name,
  description = EXCLUDED.description,
  properties = EXCLUDED.properties,
  last_updated = EXCLUDED.last_updated`,
		info.TypeID, info.Name, info.Description, props, info.LastUpdated)
	if err != nil {
		return fmt.Errorf("put type schema %s: %w", info.TypeID, err)
	}
	return nil
}

// RegistryAuditRepo records registry fetches; it satisfies
// registry.AuditSink.
type RegistryAuditRepo struct {
	db *DB
}

func NewRegistryAuditRepo(db *DB) *RegistryAuditRepo {
	return &RegistryAuditRepo{db: db}
}

func (r *RegistryAuditRepo) RecordRegistryCall(ctx context.Context, call registry.CallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO registry_calls (call_id, type_id, request_id, status, error_kind, http_status, elapsed_ms)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, $3, $4, NULLIF($5,''), $6, $7)`,
		call.CallID, call.TypeID, call.RequestID, call.Status, call.ErrorKind, call.HTTPStatus, call.ElapsedMS)
	if err != nil {
		return fmt.Errorf("insert registry call: %w", err)
	}
	return nil
}
