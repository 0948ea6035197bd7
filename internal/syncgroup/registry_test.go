package syncgroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return NewRegistry(logger)
}

func TestJoinOrderDeterminesLeader(t *testing.T) {
	r := newTestRegistry(t)

	r.Join("downstairs", "living_room")
	r.Join("downstairs", "kitchen")
	r.Join("downstairs", "hallway")

	leader, ok := r.Leader("downstairs")
	require.True(t, ok)
	assert.Equal(t, "living_room", leader)
	assert.True(t, r.IsLeader("downstairs", "living_room"))
	assert.False(t, r.IsLeader("downstairs", "kitchen"))
	assert.Equal(t, []string{"living_room", "kitchen", "hallway"}, r.Members("downstairs"))
	assert.Equal(t, 3, r.MemberCount("downstairs"))
}

func TestPublishAndFollow(t *testing.T) {
	r := newTestRegistry(t)
	r.Join("downstairs", "living_room")
	r.Join("downstairs", "kitchen")

	// Nothing published yet: followers have nothing to adopt.
	_, ok := r.FollowTarget("downstairs", "kitchen")
	assert.False(t, ok)

	r.Publish("downstairs", Target{BrightnessPct: 70, ColorTempKelvin: 3500})

	target, ok := r.FollowTarget("downstairs", "kitchen")
	require.True(t, ok)
	assert.Equal(t, 70, target.BrightnessPct)
	assert.Equal(t, 3500, target.ColorTempKelvin)

	// The leader never follows, even with a published target.
	_, ok = r.FollowTarget("downstairs", "living_room")
	assert.False(t, ok)
}

func TestZeroBrightnessTargetNotFollowed(t *testing.T) {
	r := newTestRegistry(t)
	r.Join("downstairs", "living_room")
	r.Join("downstairs", "kitchen")

	r.Publish("downstairs", Target{BrightnessPct: 0, ColorTempKelvin: 3500})

	_, ok := r.FollowTarget("downstairs", "kitchen")
	assert.False(t, ok)
}

func TestLeaderLeavePromotesNext(t *testing.T) {
	r := newTestRegistry(t)
	r.Join("downstairs", "living_room")
	r.Join("downstairs", "kitchen")
	r.Join("downstairs", "hallway")

	r.Leave("downstairs", "living_room")

	leader, ok := r.Leader("downstairs")
	require.True(t, ok)
	assert.Equal(t, "kitchen", leader)

	// The new leader stops following.
	r.Publish("downstairs", Target{BrightnessPct: 55, ColorTempKelvin: 3000})
	_, ok = r.FollowTarget("downstairs", "kitchen")
	assert.False(t, ok)
	_, ok = r.FollowTarget("downstairs", "hallway")
	assert.True(t, ok)
}

func TestNonLeaderLeaveKeepsLeader(t *testing.T) {
	r := newTestRegistry(t)
	r.Join("downstairs", "living_room")
	r.Join("downstairs", "kitchen")
	r.Join("downstairs", "hallway")

	r.Leave("downstairs", "kitchen")

	leader, ok := r.Leader("downstairs")
	require.True(t, ok)
	assert.Equal(t, "living_room", leader)
	assert.Equal(t, []string{"living_room", "hallway"}, r.Members("downstairs"))
}

func TestLastLeaveDiscardsGroup(t *testing.T) {
	r := newTestRegistry(t)
	r.Join("downstairs", "living_room")
	r.Publish("downstairs", Target{BrightnessPct: 70, ColorTempKelvin: 3500})

	r.Leave("downstairs", "living_room")

	assert.Equal(t, 0, r.MemberCount("downstairs"))
	_, ok := r.Leader("downstairs")
	assert.False(t, ok)
	_, ok = r.Target("downstairs")
	assert.False(t, ok)

	// Rejoining starts from a clean slate.
	r.Join("downstairs", "kitchen")
	target, ok := r.Target("downstairs")
	require.True(t, ok)
	assert.Equal(t, 0, target.BrightnessPct)
}

func TestUnknownGroup(t *testing.T) {
	r := newTestRegistry(t)

	_, ok := r.Leader("nope")
	assert.False(t, ok)
	_, ok = r.Target("nope")
	assert.False(t, ok)
	assert.Nil(t, r.Members("nope"))
	r.Leave("nope", "anyone")
	r.Publish("nope", Target{BrightnessPct: 10})
}
