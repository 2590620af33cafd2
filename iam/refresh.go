package iam

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forbearing/surrealkv-core/types"
)

// RefreshStore persists opaque, single-use refresh tokens, grounded on the
// SET-NX / GETDEL patterns evalgo-org-eve's db/repository/redis.go uses for
// its own one-shot lock primitive — here a refresh token IS the lock: it can
// be redeemed exactly once.
type RefreshStore struct {
	client *redis.Client
}

func NewRefreshStore(client *redis.Client) *RefreshStore {
	return &RefreshStore{client: client}
}

func refreshKey(token string) string { return "refresh:" + token }

// Issue mints a new opaque refresh token bound to subject and persists it
// with the grant duration as its TTL, per §6.4.
func (s *RefreshStore) Issue(ctx context.Context, ns, db, ac, recordID string, grantDuration time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	payload := ns + "\x00" + db + "\x00" + ac + "\x00" + recordID
	if err := s.client.Set(ctx, refreshKey(token), payload, grantDuration).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Redeem atomically deletes and returns the subject bound to token via
// GETDEL, giving exactly-once semantics: a concurrent second Redeem for the
// same token observes redis.Nil and returns InvalidAuth, satisfying the
// "re-using a spent refresh token fails" invariant (§4.7, §8 invariant 7)
// even when both redemptions race.
func (s *RefreshStore) Redeem(ctx context.Context, token string) (ns, db, ac, recordID string, err error) {
	payload, err := s.client.GetDel(ctx, refreshKey(token)).Result()
	if err == redis.Nil {
		return "", "", "", "", types.ErrInvalidAuth
	}
	if err != nil {
		return "", "", "", "", types.ErrUnexpectedAuth
	}

	parts := splitPayload(payload)
	if len(parts) != 4 {
		return "", "", "", "", types.ErrInvalidAuth
	}
	return parts[0], parts[1], parts[2], parts[3], nil
}

func splitPayload(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
