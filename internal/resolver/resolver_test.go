package resolver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/models"
)

func doc(id string, updatedAt int64, deleted bool) *models.Document {
	return &models.Document{
		ID:        id,
		UpdatedAt: updatedAt,
		Deleted:   deleted,
		Payload:   models.Fields{"v": json.RawMessage(`1`)},
	}
}

func TestResolve_DecisionTable(t *testing.T) {
	mergeAll := func(server, client *models.Document) (*models.Document, bool) {
		merged := client.Clone()
		merged.Payload["merged"] = json.RawMessage(`true`)
		return merged, true
	}
	decline := func(server, client *models.Document) (*models.Document, bool) {
		return nil, false
	}

	tests := []struct {
		server   *models.Document
		client   *models.Document
		name     string
		strategy Strategy
		want     Action
	}{
		{name: "insert new document", server: nil, client: doc("1", 100, false), want: ActionInsert},
		{name: "delete of unknown document is noop", server: nil, client: doc("1", 100, true), want: ActionNoOp},
		{name: "client newer is accepted", server: doc("1", 100, false), client: doc("1", 150, false), want: ActionAccept},
		{name: "tie favors client", server: doc("1", 100, false), client: doc("1", 100, false), want: ActionAccept},
		{name: "tombstone newer is accepted", server: doc("1", 100, false), client: doc("1", 120, true), want: ActionAccept},
		{name: "tombstone tie is accepted", server: doc("1", 100, false), client: doc("1", 100, true), want: ActionAccept},
		{name: "stale tombstone under server-wins", server: doc("1", 200, false), client: doc("1", 100, true), want: ActionReject},
		{name: "server newer, default policy", server: doc("1", 200, false), client: doc("1", 150, false), want: ActionReject},
		{name: "server newer, server-wins", server: doc("1", 200, false), client: doc("1", 150, false), strategy: Strategy{Policy: PolicyServerWins}, want: ActionReject},
		{name: "server newer, client-wins", server: doc("1", 200, false), client: doc("1", 150, false), strategy: Strategy{Policy: PolicyClientWins}, want: ActionAccept},
		{name: "server newer, timestamp-wins", server: doc("1", 200, false), client: doc("1", 150, false), strategy: Strategy{Policy: PolicyTimestampWins}, want: ActionReject},
		{name: "server newer, manual", server: doc("1", 200, false), client: doc("1", 150, false), strategy: Strategy{Policy: PolicyManual}, want: ActionQueue},
		{name: "server newer, custom merge", server: doc("1", 200, false), client: doc("1", 150, false), strategy: Strategy{Policy: PolicyCustom, Merge: mergeAll}, want: ActionMerge},
		{name: "server newer, custom declines", server: doc("1", 200, false), client: doc("1", 150, false), strategy: Strategy{Policy: PolicyCustom, Merge: decline}, want: ActionReject},
		{name: "server newer, custom without handler", server: doc("1", 200, false), client: doc("1", 150, false), strategy: Strategy{Policy: PolicyCustom}, want: ActionReject},
		{name: "tie goes to server when configured", server: doc("1", 100, false), client: doc("1", 100, false), strategy: Strategy{TiesFavorServer: true}, want: ActionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.server, tt.client, tt.strategy)
			assert.Equal(t, tt.want, got.Action, "got %s", got.Action)

			switch got.Action {
			case ActionInsert, ActionAccept:
				assert.Same(t, tt.client, got.Document)
			case ActionReject:
				assert.Same(t, tt.server, got.Document)
			case ActionQueue:
				assert.Same(t, tt.server, got.Server)
				assert.Same(t, tt.client, got.Client)
			case ActionMerge:
				require.NotNil(t, got.Document)
				assert.Contains(t, got.Document.Payload, "merged")
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	server := doc("1", 200, false)
	client := doc("1", 150, false)

	for _, policy := range []Policy{PolicyServerWins, PolicyClientWins, PolicyTimestampWins, PolicyManual} {
		first := Resolve(server, client, Strategy{Policy: policy})
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, Resolve(server, client, Strategy{Policy: policy}))
		}
	}
}

func TestResolve_TieNeverRejectsByDefault(t *testing.T) {
	for _, policy := range []Policy{PolicyServerWins, PolicyClientWins, PolicyTimestampWins, PolicyManual, PolicyCustom} {
		got := Resolve(doc("1", 100, false), doc("1", 100, false), Strategy{Policy: policy})
		assert.Equal(t, ActionAccept, got.Action, "policy %s", policy)
	}
}

func TestOutcome_Conflicting(t *testing.T) {
	assert.True(t, Outcome{Action: ActionReject}.Conflicting())
	assert.True(t, Outcome{Action: ActionQueue}.Conflicting())
	assert.True(t, Outcome{Action: ActionMerge}.Conflicting())
	assert.False(t, Outcome{Action: ActionAccept}.Conflicting())
	assert.False(t, Outcome{Action: ActionInsert}.Conflicting())
	assert.False(t, Outcome{Action: ActionNoOp}.Conflicting())
}

func TestAuthorize(t *testing.T) {
	owned := func(owner string) *models.Document {
		d := doc("1", 100, false)
		d.OwnerID = owner
		return d
	}

	tests := []struct {
		server  *models.Document
		client  *models.Document
		name    string
		actor   string
		wantErr bool
	}{
		{name: "no owner", client: owned(""), actor: "alice"},
		{name: "own document", client: owned("alice"), actor: "alice"},
		{name: "foreign client owner", client: owned("bob"), actor: "alice", wantErr: true},
		{name: "foreign server owner", server: owned("bob"), client: owned(""), actor: "alice", wantErr: true},
		{name: "own server document", server: owned("alice"), client: owned("alice"), actor: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.server, tt.client, tt.actor)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOwnershipViolation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyServerWins, p)

	p, err = ParsePolicy("manual")
	require.NoError(t, err)
	assert.Equal(t, PolicyManual, p)

	_, err = ParsePolicy("coin-flip")
	assert.Error(t, err)
}
