// Command simulate runs complete games between four bot agents through the
// same service the server hosts, without Nakama. Useful for exercising the
// engine end to end and for eyeballing strategy tiers against each other.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bigtwo/internal/app"
	"bigtwo/internal/bot"
	"bigtwo/internal/domain"
	"bigtwo/internal/timer"
)

func main() {
	games := flag.Int("games", 1, "number of games to play")
	seed := flag.Int64("seed", 0, "rng seed, 0 means time-based")
	verbose := flag.Bool("v", false, "log every play")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().
		Timestamp().
		Logger()

	if err := bot.LoadIdentities(""); err != nil {
		logger.Fatal().Err(err).Msg("load bot identities")
	}

	rng := rand.New(rand.NewSource(*seed))
	registry := timer.NewRegistry(logger)
	defer registry.Close()

	// A long timeout keeps the auto-pass countdown from racing the agents;
	// the simulator drives every turn itself.
	svc := app.NewService(logger, rng, registry, app.WithTurnTimeout(time.Hour))

	var gameWins [domain.NumSeats]int
	for i := 0; i < *games; i++ {
		winners, err := playGame(logger, rng, svc)
		if err != nil {
			logger.Fatal().Err(err).Int("game", i+1).Msg("simulation aborted")
		}
		for _, seat := range winners {
			gameWins[seat]++
		}
	}

	fmt.Printf("games=%d seed=%d\n", *games, *seed)
	for seat, wins := range gameWins {
		fmt.Printf("seat %d: %d wins\n", seat, wins)
	}
}

// playGame drives one full game to the score threshold and returns the
// winning seats.
func playGame(logger zerolog.Logger, rng *rand.Rand, svc *app.Service) ([]int, error) {
	ctx := context.Background()

	identities := bot.PickIdentities(rng, bot.LevelHard, domain.NumSeats)
	if len(identities) < domain.NumSeats {
		return nil, fmt.Errorf("identity pool too small: %d", len(identities))
	}

	var seats [domain.NumSeats]string
	agents := make(map[int]*bot.Agent, domain.NumSeats)
	for i, id := range identities {
		seats[i] = id.UserID
		agent, err := bot.NewAgentFor(id, rng)
		if err != nil {
			return nil, err
		}
		agents[i] = agent
	}

	m, _, err := svc.StartGame(ctx, uuid.NewString(), seats)
	if err != nil {
		return nil, err
	}
	defer svc.Teardown(ctx, m)

	// Hard ceiling on turns so a strategy bug cannot spin forever.
	const maxTurns = 100000
	for turn := 0; turn < maxTurns; turn++ {
		var (
			phase domain.Phase
			seat  int
		)
		m.WithRead(func(t *domain.Table) {
			phase = t.Phase
			seat = t.CurrentTurn
		})

		switch phase {
		case domain.PhaseGameFinished:
			winners := winnersOf(m)
			logger.Info().Ints("winners", winners).Msg("game finished")
			return winners, nil
		case domain.PhaseMatchFinished:
			if _, err := svc.StartNextMatch(ctx, m); err != nil {
				return nil, err
			}
			continue
		}

		var (
			move bot.Move
			mErr error
		)
		m.WithRead(func(t *domain.Table) {
			move, mErr = agents[seat].Play(bot.Position{Table: t, Seat: seat})
		})
		if mErr != nil {
			return nil, fmt.Errorf("seat %d: %w", seat, mErr)
		}

		if move.Pass {
			_, err = svc.SubmitPass(ctx, m, seat)
		} else {
			_, err = svc.SubmitMove(ctx, m, seat, move.Cards)
		}
		if err != nil {
			return nil, fmt.Errorf("seat %d move rejected: %w", seat, err)
		}
		svc.DrainOutbox(m)
	}
	return nil, fmt.Errorf("game did not finish within %d turns", maxTurns)
}

func winnersOf(m *app.Match) []int {
	var winners []int
	m.WithRead(func(*domain.Table) {
		winners = m.Score.Winners()
	})
	return winners
}
