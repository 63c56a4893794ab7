package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrUnauthorized  = errors.New("no autorizado")
	ErrForbidden     = errors.New("acceso denegado")
	ErrConflict      = errors.New("conflicto con el estado actual")

	// ErrAlreadySubmitted indica que el documento ya fue enviado (clave de idempotencia duplicada
	// o estado final). No es un fallo: el llamador continúa como si el envío previo hubiera funcionado.
	ErrAlreadySubmitted = errors.New("documento electrónico ya enviado")

	// ErrConcurrentUpdate indica que otra transacción tiene la fila bloqueada o hubo un
	// conflicto de serialización. La unidad se omite y se reintenta en la siguiente pasada.
	ErrConcurrentUpdate = errors.New("actualización concurrente del pedido")
)
