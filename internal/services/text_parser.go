package services

import (
	"regexp"
	"strconv"
	"strings"

	domain "github.com/asistente-compras/api/internal/domain"
)

// quantifiedLine matches lines of the form "3 cuadernos grandes". Lines
// without a leading count default to quantity 1.
var quantifiedLine = regexp.MustCompile(`^(\d+)\s+(.*)$`)

// ParseItems turns free text into requested items, one per non-blank line.
// Item order follows line order.
func ParseItems(text string) []domain.RequestedItem {
	lines := strings.Split(text, "\n")
	items := make([]domain.RequestedItem, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name := line
		quantity := 1
		if match := quantifiedLine.FindStringSubmatch(line); match != nil {
			parsed, err := strconv.Atoi(match[1])
			if err == nil && parsed > 0 {
				quantity = parsed
				name = strings.TrimSpace(match[2])
			}
		}
		if name == "" {
			continue
		}

		items = append(items, domain.RequestedItem{Name: name, Quantity: quantity})
	}

	return items
}
