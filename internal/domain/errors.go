package domain

import "errors"

var (
	// ErrEmptyQuestionSet is returned when a battle is initialized without questions.
	ErrEmptyQuestionSet = errors.New("question set is empty")
	// ErrQuestionSetNotFound indicates the question bank had no matching set.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrBattleNotFound is returned when an operation targets an unknown battle.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrInvalidTransition is returned for a state machine transition that is not allowed.
	ErrInvalidTransition = errors.New("invalid battle state transition")
	// ErrBattleNotActive is returned when a mutation requires an active battle.
	ErrBattleNotActive = errors.New("battle is not active")
	// ErrBattleTerminal is returned for mutations attempted after the battle ended.
	ErrBattleTerminal = errors.New("battle already reached a terminal state")
	// ErrAlreadyAnswered rejects a second submission for the same question index.
	ErrAlreadyAnswered = errors.New("current question already answered")
	// ErrStaleQuestion rejects a submission targeting an index that already advanced.
	ErrStaleQuestion = errors.New("submission targets a stale question")
	// ErrUnknownOption indicates a submitted label is not one of the alternatives.
	ErrUnknownOption = errors.New("option label not part of the current question")
	// ErrEffectAlreadyUsed rejects a duplicate effect within one question.
	ErrEffectAlreadyUsed = errors.New("item effect already used this question")
	// ErrEffectValueOutOfRange rejects an effect value outside its allowed range.
	ErrEffectValueOutOfRange = errors.New("item effect value out of range")
	// ErrEffectCombination rejects an effect whose type conflicts with active effects.
	ErrEffectCombination = errors.New("item effect cannot be combined with active effects")
)
