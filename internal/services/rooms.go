package services

import (
	"context"

	"hivechat/internal/domain"
	"hivechat/internal/metrics"
	"hivechat/internal/store"
)

// RoomService is the room registry: a thin validation gate over the
// store's room operations. Requests referencing unknown rooms are
// rejected here before they reach the write path or an upgrade.
type RoomService struct {
	store store.Store
}

func NewRoomService(s store.Store) *RoomService {
	return &RoomService{store: s}
}

func (r *RoomService) Create(ctx context.Context, name string) (domain.Room, error) {
	room, err := r.store.CreateRoom(ctx, name)
	if err != nil {
		return domain.Room{}, err
	}
	metrics.RoomsCreated.Inc()
	return room, nil
}

func (r *RoomService) Get(ctx context.Context, id string) (domain.Room, error) {
	return r.store.GetRoom(ctx, id)
}

func (r *RoomService) List(ctx context.Context) ([]domain.Room, error) {
	return r.store.ListRooms(ctx)
}

// Exists returns ErrNotFound when the room is unknown.
func (r *RoomService) Exists(ctx context.Context, id string) error {
	_, err := r.store.GetRoom(ctx, id)
	return err
}
