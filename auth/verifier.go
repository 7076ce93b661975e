package auth

import (
	"MeetupBot/clock"
	"MeetupBot/model"
	"crypto/subtle"
	"math"
	"time"
)

const (
	DefaultMaxTries    = 3
	DefaultBlockWindow = 300 * time.Second
)

// Outcome is the result of one secret submission.
type Outcome int

const (
	// OutcomeGranted means the secret matched; the caller promotes the user.
	OutcomeGranted Outcome = iota
	// OutcomeRetry means the secret was wrong and tries remain.
	OutcomeRetry
	// OutcomeBlocked means the threshold was reached or the user was
	// already blocked.
	OutcomeBlocked
)

// Result carries the outcome and the attempts to persist.
type Result struct {
	Outcome   Outcome
	Attempts  model.PasswordAttempts
	Remaining int
	Wait      time.Duration
}

// Verifier gates the user to speaker transition behind a shared secret
// with a per-user try limit and block window.
type Verifier struct {
	secret      string
	maxTries    int
	blockWindow time.Duration
	clock       clock.Clock
}

func NewVerifier(secret string, maxTries int, blockWindow time.Duration, c clock.Clock) *Verifier {
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}
	if blockWindow <= 0 {
		blockWindow = DefaultBlockWindow
	}
	return &Verifier{
		secret:      secret,
		maxTries:    maxTries,
		blockWindow: blockWindow,
		clock:       c,
	}
}

func (v *Verifier) MaxTries() int { return v.maxTries }

func (v *Verifier) BlockWindow() time.Duration { return v.blockWindow }

// Blocked reports whether attempts is still inside its block window and
// how long remains.
func (v *Verifier) Blocked(attempts model.PasswordAttempts) (time.Duration, bool) {
	if attempts.BlockedUntil == nil {
		return 0, false
	}
	wait := attempts.BlockedUntil.Sub(v.clock.Now())
	if wait <= 0 {
		return 0, false
	}
	return wait, true
}

// Submit checks input against the secret. A blocked user never consumes a
// try. On success the attempts are reset.
func (v *Verifier) Submit(attempts model.PasswordAttempts, input string) Result {
	if wait, blocked := v.Blocked(attempts); blocked {
		return Result{Outcome: OutcomeBlocked, Attempts: attempts, Wait: wait}
	}
	if attempts.BlockedUntil != nil {
		// the previous block has expired
		attempts = model.PasswordAttempts{}
	}

	if subtle.ConstantTimeCompare([]byte(input), []byte(v.secret)) == 1 {
		return Result{Outcome: OutcomeGranted, Attempts: model.PasswordAttempts{Tries: 0}}
	}

	attempts.Tries++
	if attempts.Tries >= v.maxTries {
		until := v.clock.Now().Add(v.blockWindow)
		attempts.BlockedUntil = &until
		return Result{Outcome: OutcomeBlocked, Attempts: attempts, Wait: v.blockWindow}
	}
	return Result{
		Outcome:   OutcomeRetry,
		Attempts:  attempts,
		Remaining: v.maxTries - attempts.Tries,
	}
}

// WaitSeconds rounds a remaining wait up to whole seconds so a blocked
// user is never told to wait 0 seconds.
func WaitSeconds(wait time.Duration) int {
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Seconds()))
}
