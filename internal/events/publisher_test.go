package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	got chan Event
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.got <- e
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestEncodeEnvelope(t *testing.T) {
	e := New(LimitsUpdated, 42, map[string]int{"calorie_limit": 2100})

	body, err := Encode(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "limits.updated", decoded["type"])
	assert.Equal(t, float64(42), decoded["user_id"])
	assert.Equal(t, e.ID.String(), decoded["id"])
	assert.Equal(t, float64(2100), decoded["payload"].(map[string]interface{})["calorie_limit"])
}

func TestPublishAsyncDelivers(t *testing.T) {
	rec := &recordingPublisher{got: make(chan Event, 1)}
	e := New(MealLogged, 7, nil)

	PublishAsync(rec, e)

	select {
	case got := <-rec.got:
		assert.Equal(t, e.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(WeightLogged, 1, nil)))
	assert.NoError(t, p.Close())
}
