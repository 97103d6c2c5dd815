package app_errors

import "errors"

var ErrNotFound = errors.New("not found")
var ErrInvalidState = errors.New("operation not allowed in current status")
var ErrAlreadyPending = errors.New("node already has an open validation request")
var ErrFeedbackRequired = errors.New("feedback is required to reject")
var ErrDurationExceeded = errors.New("children durations exceed parent duration")
var ErrFormationNotPublished = errors.New("formation is not published")
var ErrEnrollmentNotActive = errors.New("enrollment is not active")
var ErrLessonLocked = errors.New("lesson is locked")
var ErrModuleLocked = errors.New("module is locked")
var ErrMaxAttemptsExceeded = errors.New("maximum quiz attempts exceeded")
var ErrAttemptInProgress = errors.New("an attempt is already in progress")
var ErrAlreadySubmitted = errors.New("attempt already submitted")
var ErrAnswerCountMismatch = errors.New("answers do not cover the question set")
var ErrNotEligible = errors.New("certificate prerequisites not met")
var ErrAlreadyIssued = errors.New("certificate already issued")
var ErrAlreadyReviewed = errors.New("recommendation already reviewed")
var ErrTokenExpired = errors.New("token expired")
