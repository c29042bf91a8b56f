package memory

import (
	"crypto/sha256"
	"encoding/hex"
)

// Container tags partition the memory service into scopes. They are derived
// deterministically so every process lands on the same containers without
// coordination, and hashed so paths and usernames don't leak into the
// service's keyspace.
const (
	userTagPrefix    = "ballast-user-"
	projectTagPrefix = "ballast-proj-"
	tagHashLen       = 16
)

// Scope selects which container tag an operation targets.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeProject
)

func (s Scope) String() string {
	if s == ScopeUser {
		return "user"
	}
	return "project"
}

// UserTag derives the user-scoped container tag from an identity string.
func UserTag(identity string) string {
	return userTagPrefix + shortHash(identity)
}

// ProjectTag derives the project-scoped container tag from a working
// directory path.
func ProjectTag(path string) string {
	return projectTagPrefix + shortHash(path)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:tagHashLen]
}
