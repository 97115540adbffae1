package service

import "errors"

var (
	ErrNotMember        = errors.New("profile is not a member of this squad")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyInSquad   = errors.New("profile already belongs to a squad")
	ErrSquadFull        = errors.New("squad is full")
	ErrChallengeActive  = errors.New("an active challenge already exists for this squad")
	ErrChallengeEnded   = errors.New("challenge is no longer active")
	ErrJoinClosed       = errors.New("joining closed")
	ErrAlreadyFinalized = errors.New("challenge already finalized")
	ErrTooEarly         = errors.New("grace period has not ended")
	ErrNoSession        = errors.New("no pomodoro session")
)
