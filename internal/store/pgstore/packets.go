package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailorflow/tailorflow/internal/packets"
)

// PacketsRepo implements packets.RepositoryPort.
type PacketsRepo struct{ store *Store }

// WithTx runs fn in a transaction.
func (r *PacketsRepo) WithTx(ctx context.Context, fn func(context.Context, packets.TxRepository) error) error {
	return r.store.withTx(ctx, func(tx *txView) error { return fn(ctx, tx) })
}

// ListPackets returns packets matching the filter, oldest first.
func (r *PacketsRepo) ListPackets(ctx context.Context, filter packets.ListFilter) ([]packets.Packet, error) {
	rows, err := r.store.pool.Query(ctx, `SELECT data FROM packets
WHERE ($1 = '' OR status = $1) AND ($2 = '' OR assigned_to = $2) AND ($3 = '' OR order_item_id = $3)
ORDER BY created_at, id`, string(filter.Status), filter.AssignedTo, filter.OrderItemID)
	if err != nil {
		return nil, mapErr(err, nil, "list packets")
	}
	return scanDocs[packets.Packet](rows, "packet")
}

// GetPacket fetches one packet.
func (r *PacketsRepo) GetPacket(ctx context.Context, id string) (packets.Packet, error) {
	return getDoc[packets.Packet](r.store.pool.QueryRow(ctx, `SELECT data FROM packets WHERE id = $1`, id), packets.ErrPacketNotFound, "packet")
}

func (t *txView) GetPacketForUpdate(ctx context.Context, id string) (packets.Packet, error) {
	return getDoc[packets.Packet](t.q.QueryRow(ctx, `SELECT data FROM packets WHERE id = $1 FOR UPDATE`, id), packets.ErrPacketNotFound, "packet")
}

func (t *txView) ListItemPacketsForUpdate(ctx context.Context, orderItemID string) ([]packets.Packet, error) {
	rows, err := t.q.Query(ctx, `SELECT data FROM packets WHERE order_item_id = $1 ORDER BY created_at, id FOR UPDATE`, orderItemID)
	if err != nil {
		return nil, mapErr(err, nil, "list packets")
	}
	return scanDocs[packets.Packet](rows, "packet")
}

func (t *txView) CreatePacket(ctx context.Context, p packets.Packet) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("pgstore: encode packet: %w", err)
	}
	_, err = t.q.Exec(ctx,
		`INSERT INTO packets (id, order_item_id, status, assigned_to, created_at, data) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.OrderItemID, string(p.Status), p.AssignedTo, p.CreatedAt, data)
	return mapErr(err, nil, "packet "+p.ID)
}

func (t *txView) UpdatePacket(ctx context.Context, p packets.Packet) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("pgstore: encode packet: %w", err)
	}
	tag, err := t.q.Exec(ctx, `UPDATE packets SET status = $2, assigned_to = $3, data = $4 WHERE id = $1`,
		p.ID, string(p.Status), p.AssignedTo, data)
	if err != nil {
		return mapErr(err, nil, "packet "+p.ID)
	}
	return expectRow(tag, packets.ErrPacketNotFound)
}
