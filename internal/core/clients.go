package core

import (
	"fmt"
	"strings"
)

// UnknownClient is the label used when a client id is not configured.
const UnknownClient = "Cliente Desconocido"

// DefaultClients returns the built-in client labels.
func DefaultClients() map[string]string {
	return map[string]string{
		"1": "Comiagro",
		"2": "Olímpica",
		"3": "Cliente Regional",
	}
}

// ClientLabel resolves a client id to its display label.
func ClientLabel(clients map[string]string, id string) string {
	if name, ok := clients[strings.TrimSpace(id)]; ok {
		return name
	}
	return UnknownClient
}

// ParseClientLabels parses "id=name" entries. An empty list yields the
// built-in labels.
func ParseClientLabels(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return DefaultClients(), nil
	}

	clients := make(map[string]string, len(entries))
	for _, entry := range entries {
		id, name, ok := strings.Cut(entry, "=")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("invalid client label %q: want id=name", entry)
		}
		if _, dup := clients[id]; dup {
			return nil, fmt.Errorf("duplicate client id %q", id)
		}
		clients[id] = name
	}
	return clients, nil
}
