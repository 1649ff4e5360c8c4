package store

import (
	"github.com/sirupsen/logrus"

	"todoctl/internal/service"
)

// Stores bundles the two stores handed to commands. Both share one client,
// so the credential installed by Session is the one Tasks sends.
type Stores struct {
	Session *SessionStore
	Tasks   *TaskStore
}

// New builds both stores on client.
func New(client service.Client, keeper service.SessionKeeper, log logrus.FieldLogger) *Stores {
	return &Stores{
		Session: NewSessionStore(client, keeper, log.WithField("store", "session")),
		Tasks:   NewTaskStore(client, log.WithField("store", "tasks")),
	}
}
