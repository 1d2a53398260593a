package game

import "errors"

var (
	ErrGameComplete     = errors.New("game already complete")
	ErrNoMoreHints      = errors.New("no more hints for this question")
	ErrEmptyAnswer      = errors.New("answer must not be empty")
	ErrQuestionNotFound = errors.New("current question not found")
	ErrUpstream         = errors.New("completion service failed")
	ErrProgressConflict = errors.New("progress kept changing concurrently")
)

// Message returns the player-facing text for a game error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrGameComplete):
		return "¡Ya completaste todos los acertijos!"
	case errors.Is(err, ErrNoMoreHints):
		return "No quedan más pistas para este acertijo."
	case errors.Is(err, ErrEmptyAnswer):
		return "Escribí una respuesta antes de enviarla."
	case errors.Is(err, ErrQuestionNotFound):
		return "¡Ups! No se pudo encontrar la pregunta actual. Por favor, reiniciá el juego."
	case errors.Is(err, ErrUpstream):
		return "El Genio no está disponible en este momento. Probá de nuevo en un ratito."
	case errors.Is(err, ErrProgressConflict):
		return "Tu progreso cambió en otra pestaña. Probá de nuevo."
	default:
		return "Ocurrió un error inesperado."
	}
}
