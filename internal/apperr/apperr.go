// Package apperr define a taxonomia de erros compartilhada entre os serviços
// de domínio e os handlers HTTP.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifica o erro para o mapeamento de status HTTP.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidArgument
	KindGateway
	KindStorage
)

// Error carrega o tipo e a mensagem visível ao cliente (em português).
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Preenchidos apenas em erros de gateway (KindGateway).
	GatewayStatus int
	GatewayCode   string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }
func InvalidArgument(msg string) *Error { return &Error{Kind: KindInvalidArgument, Message: msg} }

func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Message: "Erro interno", Err: err}
}

// Gateway embrulha uma rejeição do processador de pagamento preservando o
// status HTTP e o código reportados por ele.
func Gateway(status int, code, msg string) *Error {
	return &Error{Kind: KindGateway, Message: msg, GatewayStatus: status, GatewayCode: code}
}

// KindOf devolve o Kind de err, ou KindUnknown quando não é um *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is facilita checagens pontuais nos testes e handlers.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
