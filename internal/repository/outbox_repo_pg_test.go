package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewOutboxRepository(t *testing.T) {
	assert.NotNil(t, NewOutboxRepository(&pgxpool.Pool{}))
}

func TestFetchBatchQuery_ReclaimsExpiredLease(t *testing.T) {
	assert.Contains(t, fetchBatchQuery, "WHERE status = $2")
	assert.Contains(t, fetchBatchQuery, "OR (status = $3 AND updated_at < now() - $4::double precision * interval '1 second')")
	assert.Contains(t, fetchBatchQuery, "FOR UPDATE SKIP LOCKED")
	assert.Contains(t, fetchBatchQuery, "SET status = $3, updated_at = now()")
}
