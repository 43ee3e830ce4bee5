package ferry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Protocol identifies the transport used to reach a remote endpoint.
type Protocol string

const (
	// ProtocolFTP is plain FTP.
	ProtocolFTP Protocol = "ftp"
	// ProtocolFTPS is FTP with explicit TLS negotiation.
	ProtocolFTPS Protocol = "ftps"
	// ProtocolSFTP is the SSH file transfer protocol.
	ProtocolSFTP Protocol = "sftp"
	// ProtocolMemory is the in-process remote provided by driver/memory.
	ProtocolMemory Protocol = "memory"
)

// DefaultPort returns the well-known port for the protocol.
func (p Protocol) DefaultPort() int {
	if p == ProtocolSFTP {
		return 22
	}
	return 21
}

// Profile is a named set of connection parameters for one remote endpoint.
type Profile struct {
	// Name is the unique key of the profile. It is the map key in the
	// persisted store, not a field of the stored object.
	Name string `json:"-"`

	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`

	// Password is held in plaintext in memory and obfuscated at rest.
	Password string `json:"password,omitempty"`

	// PrivateKey is a path to a private key file. "~" expands to the home
	// directory. When set it takes precedence over Password for SFTP.
	PrivateKey string `json:"privateKey,omitempty"`

	Protocol Protocol `json:"protocol"`
}

// ProfileSummary is the secret-free view of a profile returned by List.
type ProfileSummary struct {
	Name     string   `json:"name"`
	Host     string   `json:"host"`
	Protocol Protocol `json:"protocol"`
}

// Address returns host:port.
func (p Profile) Address() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// withDefaults returns a copy of the profile with protocol and port defaults
// applied.
func (p Profile) withDefaults() Profile {
	if p.Protocol == "" {
		p.Protocol = ProtocolFTP
	}
	if p.Port == 0 {
		p.Port = p.Protocol.DefaultPort()
	}
	return p
}

// validate checks the fields every profile must carry.
func (p Profile) validate() error {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Host == "" {
		missing = append(missing, "host")
	}
	if p.Username == "" {
		missing = append(missing, "username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("%w: invalid port number %d", ErrValidation, p.Port)
	}
	return nil
}

// ExpandPath replaces a leading "~" with the current user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
