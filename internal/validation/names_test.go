package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{name: "simple", input: "notes"},
		{name: "with dash and underscore", input: "team-tasks_v2"},
		{name: "single char", input: "a"},
		{name: "max length", input: strings.Repeat("a", MaxCollectionLen)},
		{name: "empty", input: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "too long", input: strings.Repeat("a", MaxCollectionLen+1), wantErr: true, errMsg: "must not exceed"},
		{name: "slash", input: "notes/1", wantErr: true, errMsg: "can only contain"},
		{name: "space", input: "my notes", wantErr: true, errMsg: "can only contain"},
		{name: "unicode", input: "заметки", wantErr: true, errMsg: "can only contain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.wantErr {
				assert.ErrorContains(t, err, tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateActorID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: "alice"},
		{name: "email", input: "alice+work@example.com"},
		{name: "uuid", input: "b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5"},
		{name: "empty", input: "", wantErr: true},
		{name: "space", input: "alice smith", wantErr: true},
		{name: "too long", input: strings.Repeat("a", MaxActorLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateActorID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
