package bot

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
)

// Identity is a bot profile used to fill an empty seat.
type Identity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  Level  `json:"difficulty"`
	AvatarIndex int    `json:"avatar_index"`
}

var (
	identities []Identity
	identityID map[string]Identity
	loadOnce   sync.Once
	loadErr    error
)

// defaultIdentities seeds the pool when no identity file is configured.
var defaultIdentities = []Identity{
	{UserID: "bot-quang", Username: "quang_bot", DisplayName: "Quang", Difficulty: LevelEasy, AvatarIndex: 1},
	{UserID: "bot-mai", Username: "mai_bot", DisplayName: "Mai", Difficulty: LevelEasy, AvatarIndex: 2},
	{UserID: "bot-tuan", Username: "tuan_bot", DisplayName: "Tuan", Difficulty: LevelMedium, AvatarIndex: 3},
	{UserID: "bot-linh", Username: "linh_bot", DisplayName: "Linh", Difficulty: LevelMedium, AvatarIndex: 4},
	{UserID: "bot-duc", Username: "duc_bot", DisplayName: "Duc", Difficulty: LevelHard, AvatarIndex: 5},
	{UserID: "bot-hoa", Username: "hoa_bot", DisplayName: "Hoa", Difficulty: LevelHard, AvatarIndex: 6},
}

// LoadIdentities loads bot profiles from a JSON file. An empty path keeps the
// built-in pool. Safe to call more than once; only the first call loads.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		pool := defaultIdentities
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				loadErr = fmt.Errorf("read bot identities: %w", err)
				return
			}
			if err := json.Unmarshal(data, &pool); err != nil {
				loadErr = fmt.Errorf("unmarshal bot identities: %w", err)
				return
			}
		}
		identities = pool
		identityID = make(map[string]Identity, len(pool))
		for _, id := range pool {
			identityID[id.UserID] = id
		}
	})
	return loadErr
}

// IsBot reports whether the user ID belongs to the identity pool.
func IsBot(userID string) bool {
	_, ok := identityID[userID]
	return ok
}

// IdentityOf looks up an identity by user ID.
func IdentityOf(userID string) (Identity, bool) {
	id, ok := identityID[userID]
	return id, ok
}

// PickIdentities draws n distinct identities of the given difficulty,
// falling back to any difficulty when the pool runs short.
func PickIdentities(rng *rand.Rand, level Level, n int) []Identity {
	var matching, rest []Identity
	for _, id := range identities {
		if id.Difficulty == level {
			matching = append(matching, id)
		} else {
			rest = append(rest, id)
		}
	}
	rng.Shuffle(len(matching), func(i, j int) { matching[i], matching[j] = matching[j], matching[i] })
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	pool := append(matching, rest...)
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

// NewAgentFor builds an agent from an identity.
func NewAgentFor(id Identity, rng *rand.Rand) (*Agent, error) {
	brain, err := NewBrain(id.Difficulty, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: id.UserID, Name: id.DisplayName, Strategy: brain}, nil
}
