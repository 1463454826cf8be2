// Package messaging publishes and consumes catalog change events over AMQP topic
// exchanges named <prefix>_<topic>.
package messaging

import (
	"fmt"
	"time"
)

type ChangeTopic string

const CatalogChanged ChangeTopic = "catalog_changed"

// CatalogChange announces that restaurants were written to a backend.
type CatalogChange struct {
	Backend string    `json:"backend"`
	IDs     []string  `json:"ids"`
	At      time.Time `json:"at"`
}

func getName(prefix string, topic ChangeTopic) string {
	return fmt.Sprintf("%s_%s", prefix, topic)
}
