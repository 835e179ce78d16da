// internal/game/errors.go
package game

import "fmt"

// Error codes sent to clients in ERROR messages.
const (
	CodeInvalidJSON        = "INVALID_JSON"
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeNoSeat             = "NO_SEAT"
	CodeRoomFull           = "ROOM_FULL"
	CodeWrongPhase         = "WRONG_PHASE"
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodeNotOmbre           = "NOT_OMBRE"
	CodeBadBid             = "BAD_BID"
	CodeAlreadyPassed      = "ALREADY_PASSED"
	CodeBadSuit            = "BAD_SUIT"
	CodeNoTrumpForContract = "NO_TRUMP_FOR_CONTRACT"
	CodeTrumpMustBeOros    = "TRUMP_MUST_BE_OROS"
	CodeNotYourCard        = "NOT_YOUR_CARD"
	CodeIllegalPlay        = "ILLEGAL_PLAY"
	CodeExchangeLimit      = "EXCHANGE_LIMIT"
)

// RuleError is a rejected action. It never leaves state modified.
type RuleError struct {
	Code string
	Why  string
}

func (e *RuleError) Error() string {
	if e.Why == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Why)
}

// Is matches on Code so that errors.Is(err, ErrBadBid) holds for any BAD_BID.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Code == e.Code
}

// because returns a copy of e carrying a reason.
func (e *RuleError) because(format string, args ...interface{}) *RuleError {
	return &RuleError{Code: e.Code, Why: fmt.Sprintf(format, args...)}
}

var (
	ErrNoSeat             = &RuleError{Code: CodeNoSeat}
	ErrRoomFull           = &RuleError{Code: CodeRoomFull, Why: "all active seats are taken"}
	ErrWrongPhase         = &RuleError{Code: CodeWrongPhase}
	ErrNotYourTurn        = &RuleError{Code: CodeNotYourTurn}
	ErrNotOmbre           = &RuleError{Code: CodeNotOmbre}
	ErrBadBid             = &RuleError{Code: CodeBadBid}
	ErrAlreadyPassed      = &RuleError{Code: CodeAlreadyPassed}
	ErrBadSuit            = &RuleError{Code: CodeBadSuit}
	ErrNoTrumpForContract = &RuleError{Code: CodeNoTrumpForContract}
	ErrTrumpMustBeOros    = &RuleError{Code: CodeTrumpMustBeOros}
	ErrNotYourCard        = &RuleError{Code: CodeNotYourCard}
	ErrIllegalPlay        = &RuleError{Code: CodeIllegalPlay}
	ErrExchangeLimit      = &RuleError{Code: CodeExchangeLimit}
	ErrInvalidMessage     = &RuleError{Code: CodeInvalidMessage}
)
