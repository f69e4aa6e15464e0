package packets

import "context"

// RepositoryPort abstracts packet persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPackets(ctx context.Context, filter ListFilter) ([]Packet, error)
	GetPacket(ctx context.Context, id string) (Packet, error)
}

// TxRepository is the transactional view of the packet store.
type TxRepository interface {
	GetPacketForUpdate(ctx context.Context, id string) (Packet, error)
	ListItemPacketsForUpdate(ctx context.Context, orderItemID string) ([]Packet, error)
	CreatePacket(ctx context.Context, p Packet) error
	UpdatePacket(ctx context.Context, p Packet) error
}
