package domain

import "errors"

// Kind classifies a failure so outer layers can translate it without
// knowing every sentinel.
type Kind string

const (
	KindUnknown           Kind = ""
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindConflict          Kind = "conflict"
	KindResourceExhausted Kind = "resource_exhausted"
)

// Error is a domain failure tagged with its Kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	// ErrEmptyName is returned when a player name is blank after trimming.
	ErrEmptyName = newError(KindInvalidInput, "player name is required")
	// ErrEmptyGameCode is returned when a game code is blank.
	ErrEmptyGameCode = newError(KindInvalidInput, "game code is required")
	// ErrMissingToken is returned when a caller has no session token.
	ErrMissingToken = newError(KindInvalidInput, "session token is required")

	// ErrGameNotFound is returned when no game has the requested code.
	ErrGameNotFound = newError(KindNotFound, "game not found")
	// ErrPlayerNotFound is returned when a player is not part of the game.
	ErrPlayerNotFound = newError(KindNotFound, "player not found in game")
	// ErrQuestionNotFound indicates the question bank has no such question.
	ErrQuestionNotFound = newError(KindNotFound, "question not found")

	// ErrWrongPassword is returned when game creation is attempted with a bad host password.
	ErrWrongPassword = newError(KindUnauthorized, "incorrect password")
	// ErrNotHost is returned when a host-only action comes from another session.
	ErrNotHost = newError(KindUnauthorized, "only the host can perform this action")
	// ErrSelfRemoval is returned when the host tries to remove their own player.
	ErrSelfRemoval = newError(KindUnauthorized, "host cannot remove themselves")

	ErrGameNotJoinable    = newError(KindConflict, "game not found or has already started")
	ErrGameNotInProgress  = newError(KindConflict, "game is not in progress")
	ErrGameAlreadyStarted = newError(KindConflict, "game has already started")
	ErrDuplicateAnswer    = newError(KindConflict, "already answered")
	// ErrTokenInUse is returned when a session already plays in a different game.
	ErrTokenInUse = newError(KindConflict, "session already joined another game")
	// ErrCodeTaken is returned by stores when a game code already exists.
	ErrCodeTaken = newError(KindConflict, "game code already in use")

	// ErrNoQuestions is returned when the question bank is empty.
	ErrNoQuestions = newError(KindResourceExhausted, "no questions found")
	// ErrCodeCollision is returned when no unused game code could be generated.
	ErrCodeCollision = newError(KindResourceExhausted, "could not generate a unique game code")
)

// KindOf reports the Kind of err, or KindUnknown for infrastructure failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
