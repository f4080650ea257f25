// Package validation проверяет идентификаторы, которые попадают в URL и
// имена bucket'ов хранилища.
package validation

import (
	"fmt"
	"regexp"
)

// CollectionPattern допустимое имя коллекции: латинские буквы, цифры, '_' и '-'.
// Длина: 1-64 символа
var CollectionPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ActorPattern допустимый идентификатор актора (допускает email и uuid)
var ActorPattern = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]{1,128}$`)

const (
	// MaxCollectionLen максимальная длина имени коллекции
	MaxCollectionLen = 64
	// MaxActorLen максимальная длина идентификатора актора
	MaxActorLen = 128
)

// ValidateCollectionName проверяет имя коллекции
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if len(name) > MaxCollectionLen {
		return fmt.Errorf("collection name must not exceed %d characters", MaxCollectionLen)
	}
	if !CollectionPattern.MatchString(name) {
		return fmt.Errorf("collection name %q can only contain letters, numbers, '_' and '-'", name)
	}
	return nil
}

// ValidateActorID проверяет идентификатор актора
func ValidateActorID(actorID string) error {
	if actorID == "" {
		return fmt.Errorf("actor id cannot be empty")
	}
	if len(actorID) > MaxActorLen {
		return fmt.Errorf("actor id must not exceed %d characters", MaxActorLen)
	}
	if !ActorPattern.MatchString(actorID) {
		return fmt.Errorf("actor id %q contains unsupported characters", actorID)
	}
	return nil
}
