package survivalgames

import "github.com/rotisserie/eris"

var (
	ErrNilArena          = eris.New("survivalgames: arena must not be nil")
	ErrInvalidArena      = eris.New("survivalgames: arena configuration is invalid")
	ErrArenaBusy         = eris.New("survivalgames: arena already hosts a running match")
	ErrCreationHalted    = eris.New("survivalgames: match creation is temporarily halted")
	ErrManagerShutDown   = eris.New("survivalgames: manager is shut down")
	ErrMatchNotJoinable  = eris.New("survivalgames: match no longer accepts players")
	ErrArenaFull         = eris.New("survivalgames: arena is full")
	ErrAlreadyFinished   = eris.New("survivalgames: match already finished")
	ErrCountdownRequires = eris.New("survivalgames: not enough players to start the countdown")
)
