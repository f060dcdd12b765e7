package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"bigtwo/internal/app"
	"bigtwo/internal/bot"
	"bigtwo/internal/config"
	"bigtwo/internal/domain"
)

// Deps carries the shared collaborators every match handler instance uses.
type Deps struct {
	Service *app.Service
	Config  *config.Config
}

// MatchLabel is the JSON label the matchmaker queries.
type MatchLabel struct {
	Game  string `json:"game"`
	Open  int    `json:"open"`
	Phase string `json:"phase"`
}

// MatchState holds the authoritative runtime state for one hosted match.
type MatchState struct {
	MatchID   string
	Seats     [domain.NumSeats]string
	OwnerSeat int
	Tick      int64

	Presences map[string]runtime.Presence
	Match     *app.Match
	Bots      map[string]*bot.Agent

	// Tick deadlines driving bot pacing and match scheduling.
	BotActAt       int64
	SinglePlayerAt int64
	NextMatchAt    int64
	EndAt          int64
}

func (ms *MatchState) openSeats() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) humanCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !bot.IsBot(seat) {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

// firstHumanSeat returns the first seat with a human occupant, or -1.
func firstHumanSeat(seats []string) int {
	for i, userID := range seats {
		if userID != "" && !bot.IsBot(userID) {
			return i
		}
	}
	return -1
}

type matchHandler struct {
	deps *Deps
	rng  *rand.Rand
}

func newMatchHandler(deps *Deps) *matchHandler {
	return &matchHandler{
		deps: deps,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// tickRate is ticks per second; the deadline arithmetic below assumes it.
const tickRate = 1

func (mh *matchHandler) ticks(d time.Duration) int64 {
	t := int64(d.Seconds()) * tickRate
	if t < 1 {
		t = 1
	}
	return t
}

func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := bot.LoadIdentities(mh.deps.Config.Bots.IdentityFile); err != nil {
		logger.Warn("MatchInit: could not load bot identities: %v", err)
	}

	state := &MatchState{
		OwnerSeat: -1,
		Presences: make(map[string]runtime.Presence),
		Bots:      make(map[string]*bot.Agent),
	}
	if matchID, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok {
		state.MatchID = matchID
	}

	// A snapshot id in params means this handler resumes a persisted match
	// after a host restart.
	if snapID, ok := params["rehydrate"].(string); ok && snapID != "" {
		m, err := mh.deps.Service.Rehydrate(ctx, snapID)
		if err != nil {
			logger.Warn("MatchInit: rehydrate %s failed: %v", snapID, err)
		} else {
			state.Match = m
			state.Seats = m.Seats
			for _, userID := range m.Seats {
				if bot.IsBot(userID) {
					mh.ensureAgent(state, userID, logger)
				}
			}
		}
	}

	return state, tickRate, mh.label(state)
}

func (mh *matchHandler) label(state *MatchState) string {
	phase := "lobby"
	if state.Match != nil {
		phase = "playing"
	}
	data, _ := json.Marshal(MatchLabel{Game: "bigtwo", Open: state.openSeats(), Phase: phase})
	return string(data)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if err := dispatcher.MatchLabelUpdate(mh.label(state)); err != nil {
		logger.Error("updateLabel: %v", err)
	}
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Rejoining players are always allowed back to their seat.
	if matchState.seatOf(presence.GetUserId()) >= 0 {
		return matchState, true, ""
	}
	if matchState.openSeats() > 0 {
		return matchState, true, ""
	}
	// In the lobby a bot seat can be handed to a human.
	if matchState.Match == nil {
		for _, seat := range matchState.Seats {
			if bot.IsBot(seat) {
				return matchState, true, ""
			}
		}
	}
	return matchState, false, "match full"
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if seat := matchState.seatOf(userID); seat >= 0 {
			// Reconnect: replay the private hand and the countdown.
			mh.sendRejoinState(matchState, dispatcher, logger, userID, seat)
			continue
		}

		assigned := false
		for i, seatUserID := range matchState.Seats {
			if seatUserID == "" {
				matchState.Seats[i] = userID
				assigned = true
				break
			}
		}
		if !assigned && matchState.Match == nil {
			for i, seatUserID := range matchState.Seats {
				if bot.IsBot(seatUserID) {
					logger.Info("MatchJoin: human %s replaces bot %s in seat %d", userID, seatUserID, i)
					delete(matchState.Bots, seatUserID)
					matchState.Seats[i] = userID
					assigned = true
					break
				}
			}
		}
		if !assigned {
			logger.Warn("MatchJoin: user %s joined with no seat available", userID)
		}
	}

	if seat := matchState.OwnerSeat; seat < 0 || bot.IsBot(matchState.Seats[seat]) || matchState.Seats[seat] == "" {
		matchState.OwnerSeat = firstHumanSeat(matchState.Seats[:])
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoster(matchState, dispatcher)
	return matchState
}

func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		// During a running match the seat stays reserved: the countdown
		// keeps running server-side and the player may reconnect. Only a
		// lobby departure frees the seat.
		if matchState.Match == nil {
			if seat := matchState.seatOf(p.GetUserId()); seat >= 0 {
				matchState.Seats[seat] = ""
			}
		}
	}

	matchState.OwnerSeat = firstHumanSeat(matchState.Seats[:])
	if matchState.humanCount() == 0 && len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: no humans left, terminating")
		if matchState.Match != nil {
			mh.deps.Service.Teardown(ctx, matchState.Match)
		}
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastRoster(matchState, dispatcher)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	// Timer expiries land on the outbox between ticks; forward them first so
	// clients see the auto-pass before any action that followed it.
	if matchState.Match != nil {
		mh.dispatchEvents(ctx, matchState, dispatcher, logger, mh.deps.Service.DrainOutbox(matchState.Match))
	}

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCards:
			mh.handlePlayCards(ctx, matchState, dispatcher, logger, msg)
		case OpPassTurn:
			mh.handlePassTurn(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: unknown opcode %d", msg.GetOpCode())
		}
	}

	if mh.deps.Config.Bots.Enabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	if matchState.NextMatchAt > 0 && tick >= matchState.NextMatchAt {
		matchState.NextMatchAt = 0
		events, err := mh.deps.Service.StartNextMatch(ctx, matchState.Match)
		if err != nil {
			logger.Error("MatchLoop: next match: %v", err)
		} else {
			mh.dispatchEvents(ctx, matchState, dispatcher, logger, events)
		}
	}

	if matchState.EndAt > 0 && tick >= matchState.EndAt {
		logger.Info("MatchLoop: game over, terminating match")
		mh.deps.Service.Teardown(ctx, matchState.Match)
		return nil
	}

	return matchState
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderSeat := state.seatOf(msg.GetUserId())
	if senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: %s is not the owner", msg.GetUserId())
		return
	}
	if state.Match != nil {
		logger.Warn("StartGame: match already running")
		return
	}

	if state.openSeats() > 0 {
		if !mh.deps.Config.Bots.Enabled {
			mh.sendError(state, dispatcher, logger, msg.GetUserId(), "match-not-full", "all four seats must be filled")
			return
		}
		mh.fillWithBots(state, logger)
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastRoster(state, dispatcher)
	}

	m, events, err := mh.deps.Service.StartGame(ctx, state.MatchID, state.Seats)
	if err != nil {
		logger.Error("StartGame: %v", err)
		return
	}
	state.Match = m

	mh.updateLabel(state, dispatcher, logger)
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

// playRequest is the OpPlayCards payload.
type playRequest struct {
	Cards []domain.Card `json:"cards"`
}

func (mh *matchHandler) handlePlayCards(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Match == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), "match-not-started", "no match in progress")
		return
	}
	senderSeat := state.seatOf(msg.GetUserId())
	if senderSeat < 0 {
		return
	}

	var req playRequest
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), "bad-request", "malformed play payload")
		return
	}

	events, err := mh.deps.Service.SubmitMove(ctx, state.Match, senderSeat, req.Cards)
	if err != nil {
		mh.sendRejection(state, dispatcher, logger, msg.GetUserId(), err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) handlePassTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	if state.Match == nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), "match-not-started", "no match in progress")
		return
	}
	senderSeat := state.seatOf(msg.GetUserId())
	if senderSeat < 0 {
		return
	}

	events, err := mh.deps.Service.SubmitPass(ctx, state.Match, senderSeat)
	if err != nil {
		mh.sendRejection(state, dispatcher, logger, msg.GetUserId(), err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) fillWithBots(state *MatchState, logger runtime.Logger) {
	need := state.openSeats()
	identities := bot.PickIdentities(mh.rng, bot.LevelMedium, need)

	idx := 0
	for i, seat := range state.Seats {
		if seat != "" || idx >= len(identities) {
			continue
		}
		identity := identities[idx]
		idx++
		state.Seats[i] = identity.UserID
		mh.ensureAgent(state, identity.UserID, logger)
		logger.Info("fillWithBots: %s (%s) seated at %d", identity.DisplayName, identity.Difficulty, i)
	}
}

func (mh *matchHandler) ensureAgent(state *MatchState, userID string, logger runtime.Logger) {
	if _, ok := state.Bots[userID]; ok {
		return
	}
	identity, ok := bot.IdentityOf(userID)
	if !ok {
		logger.Error("ensureAgent: %s has no identity", userID)
		return
	}
	agent, err := bot.NewAgentFor(identity, mh.rng)
	if err != nil {
		logger.Error("ensureAgent: %v", err)
		return
	}
	state.Bots[userID] = agent
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	cfg := mh.deps.Config.Bots

	// Auto-fill a lonely lobby after the configured delay.
	if state.Match == nil {
		if state.humanCount() == 1 && state.openSeats() > 0 {
			if state.SinglePlayerAt == 0 {
				state.SinglePlayerAt = state.Tick
			}
			if state.Tick-state.SinglePlayerAt >= mh.ticks(cfg.AutoFillDelay) {
				mh.fillWithBots(state, logger)
				mh.updateLabel(state, dispatcher, logger)
				mh.broadcastRoster(state, dispatcher)
				state.SinglePlayerAt = 0
			}
		} else {
			state.SinglePlayerAt = 0
		}
		return
	}

	// In-game: when a bot is on turn, act after a short human-like delay.
	var (
		phase domain.Phase
		turn  int
	)
	state.Match.WithRead(func(t *domain.Table) {
		phase = t.Phase
		turn = t.CurrentTurn
	})
	if phase != domain.PhaseInProgress && phase != domain.PhaseAwaitingOpen {
		state.BotActAt = 0
		return
	}

	userID := state.Seats[turn]
	agent, isBot := state.Bots[userID]
	if !isBot {
		state.BotActAt = 0
		return
	}

	if state.BotActAt == 0 {
		minT := mh.ticks(cfg.MinDelay)
		maxT := mh.ticks(cfg.MaxDelay)
		if maxT < minT {
			maxT = minT
		}
		state.BotActAt = state.Tick + minT + mh.rng.Int63n(maxT-minT+1)
		return
	}
	if state.Tick < state.BotActAt {
		return
	}
	state.BotActAt = 0

	var (
		move bot.Move
		err  error
	)
	state.Match.WithRead(func(t *domain.Table) {
		move, err = agent.Play(bot.Position{Table: t, Seat: turn})
	})
	if err != nil {
		logger.Error("processBots: %s failed to decide: %v", userID, err)
		return
	}

	var events []app.Event
	if move.Pass {
		events, err = mh.deps.Service.SubmitPass(ctx, state.Match, turn)
	} else {
		events, err = mh.deps.Service.SubmitMove(ctx, state.Match, turn, move.Cards)
	}
	if err != nil {
		// The auto-pass timer may have acted between the decision and the
		// submission; losing that race is expected.
		logger.Debug("processBots: %s action rejected: %v", userID, err)
		return
	}
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

var eventOpCodes = map[app.EventKind]int64{
	app.EventHandDealt:      OpHandDealt,
	app.EventMatchStarted:   OpMatchStarted,
	app.EventCardPlayed:     OpCardPlayed,
	app.EventTurnPassed:     OpTurnPassed,
	app.EventTrickCleared:   OpTrickCleared,
	app.EventTimerArmed:     OpTimerArmed,
	app.EventTimerCancelled: OpTimerCancelled,
	app.EventAutoPassed:     OpAutoPassed,
	app.EventMatchFinished:  OpMatchFinished,
	app.EventGameFinished:   OpGameFinished,
}

func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	gameFinished := false
	matchFinished := false

	for _, ev := range events {
		opCode, ok := eventOpCodes[ev.Kind]
		if !ok {
			logger.Warn("dispatchEvents: unknown event kind %q", ev.Kind)
			continue
		}
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			logger.Error("dispatchEvents: marshal %q: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if p, ok := state.Presences[uid]; ok {
					recipients = append(recipients, p)
				}
			}
			// Targeted events with no connected recipient (bot hands) must
			// not fall back to a broadcast.
			if len(recipients) == 0 {
				continue
			}
		}
		if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
			logger.Error("dispatchEvents: broadcast %q: %v", ev.Kind, err)
		}

		switch ev.Kind {
		case app.EventMatchFinished:
			matchFinished = true
		case app.EventGameFinished:
			gameFinished = true
		}
	}

	if gameFinished {
		state.NextMatchAt = 0
		state.EndAt = state.Tick + mh.ticks(mh.deps.Config.Game.NextMatchDelay)
	} else if matchFinished {
		state.NextMatchAt = state.Tick + mh.ticks(mh.deps.Config.Game.NextMatchDelay)
	}
}

// rosterEntry is what every client may know about a seat: occupancy and hand
// count, never card contents.
type rosterEntry struct {
	UserID         string `json:"user_id"`
	Seat           int    `json:"seat"`
	IsOwner        bool   `json:"is_owner"`
	IsBot          bool   `json:"is_bot"`
	CardsRemaining int    `json:"cards_remaining"`
}

type rosterUpdate struct {
	Players []rosterEntry `json:"players"`
	Phase   string        `json:"phase"`
}

func (mh *matchHandler) broadcastRoster(state *MatchState, dispatcher runtime.MatchDispatcher) {
	var sizes [domain.NumSeats]int
	phase := "lobby"
	if state.Match != nil {
		state.Match.WithRead(func(t *domain.Table) {
			sizes = t.HandSizes()
			phase = string(t.Phase)
		})
	}

	update := rosterUpdate{Phase: phase}
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}
		update.Players = append(update.Players, rosterEntry{
			UserID:         userID,
			Seat:           i,
			IsOwner:        i == state.OwnerSeat,
			IsBot:          bot.IsBot(userID),
			CardsRemaining: sizes[i],
		})
	}
	data, _ := json.Marshal(update)
	dispatcher.BroadcastMessage(OpRosterUpdate, data, nil, nil, true)
}

// sendRejoinState replays the private hand and any running countdown to a
// reconnecting player. Remaining time is recomputed from the armed start
// instant, never carried from a live counter.
func (mh *matchHandler) sendRejoinState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, seat int) {
	mh.broadcastRoster(state, dispatcher)
	if state.Match == nil {
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}

	var hand []domain.Card
	state.Match.WithRead(func(t *domain.Table) {
		hand = append([]domain.Card(nil), t.Hands[seat]...)
	})
	payload, err := json.Marshal(app.HandDealtPayload{UserID: userID, Seat: seat, Hand: hand})
	if err != nil {
		logger.Error("sendRejoinState: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpHandDealt, payload, []runtime.Presence{presence}, nil, true)

	if remaining, active := mh.deps.Service.TimerRemaining(state.Match); active {
		data, _ := json.Marshal(map[string]int64{"remaining_ms": remaining.Milliseconds()})
		dispatcher.BroadcastMessage(OpTimerArmed, data, []runtime.Presence{presence}, nil, true)
	}
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendRejection maps a validator sentinel to its taxonomy string and sends it
// privately to the submitting user.
func (mh *matchHandler) sendRejection(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, err error) {
	code := domain.ReasonOf(err)
	if code == "" {
		code = "internal"
	}
	mh.sendError(state, dispatcher, logger, userID, code, err.Error())
}

func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, code, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	data, err := json.Marshal(errorPayload{Code: code, Message: message})
	if err != nil {
		logger.Error("sendError: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpMoveRejected, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	matchState, ok := state.(*MatchState)
	if ok && matchState.Match != nil {
		// Keep the snapshot: a graceful shutdown rehydrates the match.
		mh.deps.Service.DrainOutbox(matchState.Match)
	}
	logger.Debug("MatchTerminate: reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
