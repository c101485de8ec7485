// Package apperrors définit la taxonomie d'erreurs du coeur applicatif.
// Les packages métier ne manipulent jamais de codes HTTP : la conversion
// se fait uniquement dans la couche handlers via HTTPStatus.
package apperrors

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindConflict
	KindValidation
	// KindIntegrity : faute de programmation / données corrompues
	// (compteur négatif, note hors [1,5] persistée). Jamais attendu
	// en fonctionnement normal.
	KindIntegrity
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }
func InvalidState(msg string) error { return &Error{Kind: KindInvalidState, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }
func Validation(msg string) error   { return &Error{Kind: KindValidation, Message: msg} }
func Integrity(msg string) error    { return &Error{Kind: KindIntegrity, Message: msg} }

// KindOf retourne le type d'une erreur du coeur (KindUnknown pour toute
// erreur technique non typée)
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus mappe la taxonomie vers les codes visibles par l'appelant.
// InvalidState et Conflict donnent tous les deux 409 : dans les deux cas
// l'état a bougé sous l'appelant, qui doit relire avant de retenter.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
