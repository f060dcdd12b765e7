package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create an
	// open match.
	RpcQuickMatch = "quick_match"

	// MatchName is the authoritative match handler name registered with
	// Nakama.
	MatchName = "bigtwo_match"
)

// Op codes for client messages and server events. Payloads are JSON.
const (
	// Client -> Server
	OpStartGame int64 = 1
	OpPlayCards int64 = 2
	OpPassTurn  int64 = 3

	// Server -> Client events
	OpRosterUpdate   int64 = 101
	OpHandDealt      int64 = 102 // sent privately
	OpMatchStarted   int64 = 103
	OpCardPlayed     int64 = 104
	OpTurnPassed     int64 = 105
	OpTrickCleared   int64 = 106
	OpTimerArmed     int64 = 107
	OpTimerCancelled int64 = 108
	OpAutoPassed     int64 = 109
	OpMatchFinished  int64 = 110
	OpGameFinished   int64 = 111
	OpMoveRejected   int64 = 112 // sent privately
)
