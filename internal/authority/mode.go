package authority

import (
	"fmt"
	"strings"
)

// Mode is the multiplayer mode of the current process.
type Mode uint8

const (
	ModeSingle Mode = iota // sole process, no replication
	ModeHost               // server/host in multiplayer
	ModeClient             // connected client, mirrors the host
)

// Role is the spawn authority of the current process.
type Role uint8

const (
	RoleAuthoritative Role = iota
	RoleObserver
)

func (r Role) String() string {
	if r == RoleAuthoritative {
		return "authoritative"
	}
	return "observer"
}

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeHost:
		return "host"
	case ModeClient:
		return "client"
	default:
		return "unknown"
	}
}

// ParseMode parses "single", "host" or "client".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return ModeSingle, nil
	case "host", "server":
		return ModeHost, nil
	case "client":
		return ModeClient, nil
	default:
		return ModeSingle, fmt.Errorf("unknown mode %q", s)
	}
}

// Role returns the spawn authority implied by the mode.
func (m Mode) Role() Role {
	if m == ModeClient {
		return RoleObserver
	}
	return RoleAuthoritative
}

// IsAuthoritative reports whether this process may create and destroy enemies.
func (m Mode) IsAuthoritative() bool {
	return m.Role() == RoleAuthoritative
}

// IsMultiplayerHost reports whether player counts scale waves.
func (m Mode) IsMultiplayerHost() bool {
	return m == ModeHost
}

// Replicates reports whether spawn commands must be sent to observers.
func (m Mode) Replicates() bool {
	return m == ModeHost
}
