// Package resolver classifies an incoming document against the
// authoritative copy. Resolve is a pure function: the same inputs always
// produce the same Outcome.
package resolver

import (
	"errors"
	"fmt"

	"github.com/iudanet/docsync/internal/models"
)

// ErrOwnershipViolation актор пытается изменить чужой документ
var ErrOwnershipViolation = errors.New("ownership violation")

// Policy политика разрешения конфликта, когда серверная версия строго новее
type Policy string

const (
	PolicyServerWins    Policy = "server-wins"
	PolicyClientWins    Policy = "client-wins"
	PolicyTimestampWins Policy = "timestamp-wins"
	PolicyManual        Policy = "manual"
	PolicyCustom        Policy = "custom"
)

// ParsePolicy разбирает строковое имя политики. Пустая строка: server-wins.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyServerWins, nil
	case PolicyServerWins, PolicyClientWins, PolicyTimestampWins, PolicyManual, PolicyCustom:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}

// MergeFunc пользовательский обработчик конфликта.
// Возвращает (merged, true) или (nil, false), если отказывается сливать.
type MergeFunc func(server, client *models.Document) (*models.Document, bool)

// Strategy описывает, как разрешать конфликты коллекции
type Strategy struct {
	Merge  MergeFunc
	Policy Policy
	// TiesFavorServer отдает ничью (равные updatedAt) серверу.
	// По умолчанию ничья решается в пользу входящей записи клиента.
	TiesFavorServer bool
}

// Action итог разрешения
type Action int

const (
	ActionNoOp Action = iota
	ActionInsert
	ActionAccept
	ActionReject
	ActionMerge
	ActionQueue
)

var actionNames = map[Action]string{
	ActionNoOp:   "noop",
	ActionInsert: "insert",
	ActionAccept: "accept",
	ActionReject: "reject",
	ActionMerge:  "merge",
	ActionQueue:  "queue",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Outcome результат Resolve.
// Document: версия, которую нужно записать (Insert/Accept/Merge)
// или серверная версия, о которой нужно сообщить клиенту (Reject).
// Для Queue заполнены Server и Client.
type Outcome struct {
	Document *models.Document
	Server   *models.Document
	Client   *models.Document
	Action   Action
}

// Conflicting сообщает, что исход является конфликтом (сервер был строго новее)
func (o Outcome) Conflicting() bool {
	return o.Action == ActionReject || o.Action == ActionMerge || o.Action == ActionQueue
}

// Authorize проверяет, что актор может трогать документ.
// Выполняется до Resolve и не зависит от временных меток.
func Authorize(server, client *models.Document, actorID string) error {
	if client.OwnerID != "" && client.OwnerID != actorID {
		return fmt.Errorf("%w: document %q owned by %q, actor %q", ErrOwnershipViolation, client.ID, client.OwnerID, actorID)
	}
	if server != nil && server.OwnerID != "" && server.OwnerID != actorID {
		return fmt.Errorf("%w: document %q owned by %q, actor %q", ErrOwnershipViolation, server.ID, server.OwnerID, actorID)
	}
	return nil
}

// Resolve классифицирует клиентскую версию против серверной.
func Resolve(server, client *models.Document, s Strategy) Outcome {
	if server == nil {
		if client.Deleted {
			// удаление документа, которого никогда не было
			return Outcome{Action: ActionNoOp}
		}
		return Outcome{Action: ActionInsert, Document: client}
	}

	if client.Deleted && client.UpdatedAt >= server.UpdatedAt && !tieToServer(server, client, s) {
		return Outcome{Action: ActionAccept, Document: client}
	}

	if server.UpdatedAt > client.UpdatedAt || tieToServer(server, client, s) {
		return resolveConflict(server, client, s)
	}

	return Outcome{Action: ActionAccept, Document: client}
}

func tieToServer(server, client *models.Document, s Strategy) bool {
	return s.TiesFavorServer && server.UpdatedAt == client.UpdatedAt
}

func resolveConflict(server, client *models.Document, s Strategy) Outcome {
	switch s.Policy {
	case PolicyClientWins:
		return Outcome{Action: ActionAccept, Document: client}
	case PolicyManual:
		return Outcome{Action: ActionQueue, Server: server, Client: client}
	case PolicyCustom:
		if s.Merge != nil {
			if merged, ok := s.Merge(server, client); ok && merged != nil {
				return Outcome{Action: ActionMerge, Document: merged}
			}
		}
		return Outcome{Action: ActionReject, Document: server}
	case PolicyTimestampWins:
		// сервер строго новее: побеждает сервер
		return Outcome{Action: ActionReject, Document: server}
	default:
		return Outcome{Action: ActionReject, Document: server}
	}
}
