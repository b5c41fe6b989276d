package usecase

import "fmt"

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	_, ok := err.(*DomainError)
	return ok
}

type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

// ErrNoEmail rejects a submission before any I/O happens. Never
// retried.
var ErrNoEmail = &DomainError{
	Code:    "NO_EMAIL",
	Message: "no valid email found in submission",
}

// SubscriptionInactiveError blocks the CRM send. The status string is
// surfaced to the site operator, not to form visitors.
type SubscriptionInactiveError struct {
	Status string
}

func (e *SubscriptionInactiveError) Error() string {
	return fmt.Sprintf("subscription is not active (status: %s)", e.Status)
}

// PersistenceError is fatal to the current request: with no local
// record there is nothing for the retry worker to redrive.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "failed to persist delivery record: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
