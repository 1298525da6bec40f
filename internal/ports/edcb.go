package ports

import (
	"context"

	"github.com/githubixx/edcbmon-go/internal/domain"
)

// EDCBClient defines the interface for communicating with EpgTimerSrv via CtrlCmd
type EDCBClient interface {
	// ServerAvailable reports whether the server announces itself
	ServerAvailable() bool

	// EnumReserve retrieves all reservations
	EnumReserve(ctx context.Context) ([]domain.ReserveData, error)

	// GetReserve retrieves one reservation by id
	GetReserve(ctx context.Context, id uint32) (domain.ReserveData, error)

	// AddReserve creates reservations
	AddReserve(ctx context.Context, list []domain.ReserveData) error

	// ChgReserve replaces reservations, matched by ReserveID
	ChgReserve(ctx context.Context, list []domain.ReserveData) error

	// DelReserve deletes reservations by id
	DelReserve(ctx context.Context, ids []uint32) error

	// EnumTunerReserve retrieves the tuner assignment of every reservation
	EnumTunerReserve(ctx context.Context) ([]domain.TunerReserveInfo, error)

	// GetPgInfo retrieves one program event by packed program id
	GetPgInfo(ctx context.Context, pgID uint64) (domain.EpgEventInfo, error)

	// EnumPgInfo retrieves the program events of one service
	EnumPgInfo(ctx context.Context, serviceKey uint64) ([]domain.EpgEventInfo, error)
}
