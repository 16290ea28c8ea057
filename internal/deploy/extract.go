package deploy

import (
	"regexp"
	"strings"

	"github.com/RichardoC/dehost/internal/models"
)

const doctypeMarker = "<!DOCTYPE html>"

// documentPattern spans from the doctype to the last closing html tag.
var documentPattern = regexp.MustCompile(`<!DOCTYPE html>[\s\S]*</html>`)

// Extract returns the HTML document carried by the most recent assistant
// message that contains one.
func Extract(messages []models.Message) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != models.RoleAssistant || !strings.Contains(msg.Content, doctypeMarker) {
			continue
		}
		doc := documentPattern.FindString(msg.Content)
		if doc == "" {
			return "", ErrUnextractable
		}
		return doc, nil
	}
	return "", ErrNoContent
}
