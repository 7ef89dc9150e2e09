// Package wire names the routes, actions, and outbound payload shapes spec
// §6 defines for the websocket protocol, so the registry, timer engine, and
// router all send the client the same vocabulary instead of ad hoc strings.
package wire

import (
	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
)

const (
	RouteGame    = "game"
	RouteGeneral = "general"
)

// Inbound actions (route "game").
const (
	ActionSubmitMove                    = "submitmove"
	ActionJoinGame                      = "joingame"
	ActionRemoveFromPlayersInActiveGames = "removefromplayersinactivegames"
	ActionResync                        = "resync"
	ActionAbort                         = "abort"
	ActionResign                        = "resign"
	ActionOfferDraw                     = "offerdraw"
	ActionAcceptDraw                    = "acceptdraw"
	ActionDeclineDraw                   = "declinedraw"
	ActionAFK                           = "AFK"
	ActionAFKReturn                     = "AFK-Return"
	ActionReport                        = "report"
	ActionPaste                         = "paste"
)

// Outbound actions (route "game" unless noted).
const (
	OutJoinGame              = "joingame"
	OutGameUpdate            = "gameupdate"
	OutMove                  = "move"
	OutClock                 = "clock"
	OutOpponentAFK           = "opponentafk"
	OutOpponentAFKReturn     = "opponentafkreturn"
	OutOpponentDisconnect    = "opponentdisconnect"
	OutOpponentDisconnectRtn = "opponentdisconnectreturn"
	OutDrawOffer             = "drawoffer"
	OutDeclineDraw           = "declinedraw"
	OutGameRatingChange      = "gameratingchange"
	OutUnsub                 = "unsub"
	OutLeaveGame             = "leavegame"
	OutServerRestart         = "serverrestart"
	OutNoGame                = "nogame"
	OutLogin                 = "login"
	OutLoggedGameInfo        = "logged-game-info"

	// route "general"
	OutNotify      = "notify"
	OutNotifyError = "notifyerror"
	OutPrintError  = "printerror"
)

// ParticipantState is the per-color snapshot sent alongside moves/clocks.
type ParticipantState struct {
	Color        clock.Color `json:"color"`
	DisplayName  string      `json:"displayName"`
	IsMember     bool        `json:"isMember"`
	Disconnected bool        `json:"disconnected"`
}

// ClockValues mirrors clock.Values over the wire.
type ClockValues struct {
	Clocks       map[string]int64 `json:"clocks"`
	ColorTicking *clock.Color     `json:"colorTicking,omitempty"`
}

// MoveWire is the shape of a single move in outbound move/gameupdate messages.
type MoveWire struct {
	Compact    string `json:"compact"`
	ClockStamp *int64 `json:"clockStamp,omitempty"`
}

type JoinGamePayload struct {
	GameInfo         any                `json:"gameInfo"`
	Metadata         map[string]string  `json:"metadata"`
	YouAreColor      clock.Color        `json:"youAreColor"`
	GameConclusion   *match.Conclusion  `json:"gameConclusion,omitempty"`
	Moves            []match.Move       `json:"moves"`
	ParticipantState []ParticipantState `json:"participantState"`
	ClockValues      *ClockValues       `json:"clockValues,omitempty"`
	ServerRestarting *int64             `json:"serverRestartingAt,omitempty"`
}

type GameUpdatePayload struct {
	GameConclusion   *match.Conclusion  `json:"gameConclusion,omitempty"`
	Moves            []match.Move       `json:"moves"`
	ParticipantState []ParticipantState `json:"participantState"`
	ClockValues      *ClockValues       `json:"clockValues,omitempty"`
	ServerRestarting *int64             `json:"serverRestartingAt,omitempty"`
}

type MovePayload struct {
	Move           MoveWire          `json:"move"`
	GameConclusion *match.Conclusion `json:"gameConclusion,omitempty"`
	MoveNumber     int               `json:"moveNumber"`
	ClockValues    *ClockValues      `json:"clockValues,omitempty"`
}

type PerColorRatingChange struct {
	NewRating struct {
		Value     float64 `json:"value"`
		Confident bool    `json:"confident"`
	} `json:"newRating"`
	Change float64 `json:"change"`
}

type GameRatingChangePayload struct {
	PerColor map[string]PerColorRatingChange `json:"perColor"`
}
