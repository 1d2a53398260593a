package assistant

import (
	"fmt"
	"strings"
)

const basePrompt = `Sistema: Sos un asistente amigable para un juego de acertijos para una señora argentina de 70 años llamada %[1]s.
Tu nombre es "El Genio" y tu labor es ayudarla a descubrir las respuestas a través de pistas.
Habla con calidez y paciencia, usando modismos argentinos ocasionalmente.
Adaptá tu lenguaje para que sea fácil de entender para una persona mayor.

La pregunta actual es: "%[2]s"

Las pistas disponibles son:
%[3]s
`

const queryPrompt = `
%[1]s te ha preguntado: "%[2]s"

Responde directamente a su pregunta, dándole ayuda relacionada con el acertijo sin revelarle
la respuesta directamente. Sé amable y paciente, explicando las cosas de manera clara.
Si su pregunta no está relacionada con el acertijo actual, puedes responder brevemente
pero recuérdale amablemente que tu función es ayudarla a resolver el acertijo actual.
`

const explainPrompt = `
Proporcioná una explicación amable de las pistas disponibles, dándole un poco más de contexto
sin revelar directamente la respuesta. Animate a contar alguna anécdota relacionada
para hacer la experiencia más personal y entretenida.
`

// RevealedHints lists hints[0..lastIndex] as "Pista N: ..." lines.
// A negative lastIndex yields an empty string.
func RevealedHints(hints []string, lastIndex int) string {
	if lastIndex < 0 {
		return ""
	}
	if lastIndex >= len(hints) {
		lastIndex = len(hints) - 1
	}
	lines := make([]string, 0, lastIndex+1)
	for i, hint := range hints[:lastIndex+1] {
		lines = append(lines, fmt.Sprintf("Pista %d: %s", i+1, hint))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt renders the assistant instruction.
func BuildPrompt(playerName string, req Request) string {
	prompt := fmt.Sprintf(basePrompt, playerName, req.Question, RevealedHints(req.Hints, req.LastRevealed))
	if query := strings.TrimSpace(req.Query); query != "" {
		return prompt + fmt.Sprintf(queryPrompt, playerName, query)
	}
	return prompt + explainPrompt
}
