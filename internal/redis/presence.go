package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const presenceTTL = 24 * time.Hour

// Presence tracks which display names are currently connected to a room.
// It is best-effort: entries sharing a name collapse into one, and a
// crashed process leaves stale members until the key expires.
type Presence struct {
	client *goredis.Client
}

func NewPresence(client *goredis.Client) *Presence {
	return &Presence{client: client}
}

func presenceKey(roomID string) string {
	return fmt.Sprintf("presence:room:%s", roomID)
}

func (p *Presence) Join(ctx context.Context, roomID, name string) error {
	key := presenceKey(roomID)
	pipe := p.client.Pipeline()
	pipe.SAdd(ctx, key, name)
	pipe.Expire(ctx, key, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *Presence) Leave(ctx context.Context, roomID, name string) error {
	return p.client.SRem(ctx, presenceKey(roomID), name).Err()
}

func (p *Presence) List(ctx context.Context, roomID string) ([]string, error) {
	return p.client.SMembers(ctx, presenceKey(roomID)).Result()
}
