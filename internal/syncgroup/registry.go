// Package syncgroup keeps multiple rooms on one lighting target. The first
// member to join a group computes and publishes; everyone else follows.
package syncgroup

import (
	"sync"

	"go.uber.org/zap"
)

// Target is the shared lighting target published by a group's leader.
// A zero brightness means nothing has been published yet.
type Target struct {
	BrightnessPct   int
	ColorTempKelvin int
}

type group struct {
	target  Target
	members []string
}

// Registry is the process-wide sync group service. It is constructed once
// at startup and injected into every room controller. Controllers run on
// their own goroutines, so all access is mutex-guarded.
type Registry struct {
	mu     sync.Mutex
	groups map[string]*group
	logger *zap.Logger
}

// NewRegistry creates an empty sync group registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		groups: make(map[string]*group),
		logger: logger.Named("syncgroup"),
	}
}

// Join adds a member to a group, creating the group on first join.
// Join order determines leadership.
func (r *Registry) Join(name, member string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		g = &group{}
		r.groups[name] = g
	}
	g.members = append(g.members, member)

	r.logger.Debug("Member joined sync group",
		zap.String("group", name),
		zap.String("member", member),
		zap.Int("members", len(g.members)))
}

// Leave removes a member from a group. The group is discarded once its
// last member leaves. Removing the leader implicitly promotes the next
// member in join order.
func (r *Registry) Leave(name, member string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		return
	}

	for i, m := range g.members {
		if m == member {
			g.members = append(g.members[:i], g.members[i+1:]...)
			break
		}
	}

	if len(g.members) == 0 {
		delete(r.groups, name)
	}

	r.logger.Debug("Member left sync group",
		zap.String("group", name),
		zap.String("member", member))
}

// Publish overwrites the group's shared target. Only the member currently
// computing (the leader) calls this.
func (r *Registry) Publish(name string, target Target) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		return
	}
	g.target = target
}

// Target returns the group's shared target.
func (r *Registry) Target(name string) (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		return Target{}, false
	}
	return g.target, true
}

// Leader returns the group's current leader: the first member in join
// order. Leadership is sticky to identity, not position; it only changes
// when the leader itself leaves.
func (r *Registry) Leader(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok || len(g.members) == 0 {
		return "", false
	}
	return g.members[0], true
}

// IsLeader reports whether member currently leads the group.
func (r *Registry) IsLeader(name, member string) bool {
	leader, ok := r.Leader(name)
	return ok && leader == member
}

// FollowTarget returns the shared target a non-leader member should adopt.
// It returns false for the leader and while no target has been published
// yet (brightness 0).
func (r *Registry) FollowTarget(name, member string) (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok || len(g.members) == 0 {
		return Target{}, false
	}
	if g.members[0] == member {
		return Target{}, false
	}
	if g.target.BrightnessPct <= 0 {
		return Target{}, false
	}
	return g.target, true
}

// Members returns the group's member names in join order.
func (r *Registry) Members(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		return nil
	}
	members := make([]string, len(g.members))
	copy(members, g.members)
	return members
}

// MemberCount returns the number of members in the group.
func (r *Registry) MemberCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	if !ok {
		return 0
	}
	return len(g.members)
}
