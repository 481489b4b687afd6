package bridge

import "encoding/json"

// Event topics published on the daemon's event feed. Payload shapes are the
// *Event structs below; install:done, launch:started and launch:error carry
// no payload the core consumes.
const (
	TopicInstanceLog     = "instance:log"
	TopicInstallProgress = "install:progress"
	TopicInstallDone     = "install:done"
	TopicInstallError    = "install:error"
	TopicLaunchStarted   = "launch:started"
	TopicLaunchError     = "launch:error"
	TopicLaunchEnded     = "launch:ended"
	TopicLoginCode       = "microsoft:code"
	TopicLoginError      = "microsoft:error"
)

// Envelope is one event on the daemon's feed. Seq is a monotonically
// increasing cursor used to resume the stream.
type Envelope struct {
	Seq     uint64          `json:"seq"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// InstanceLogEvent is one process output line from a running instance.
type InstanceLogEvent struct {
	InstanceID string `json:"instance_id"`
	Line       string `json:"line"`
	Stream     string `json:"stream"` // "stdout" or "stderr"
}

// ProgressEvent reports install progress for the active operation.
type ProgressEvent struct {
	Stage   string  `json:"stage"`
	Message string  `json:"message"`
	Current uint64  `json:"current"`
	Total   *uint64 `json:"total,omitempty"`
	Detail  string  `json:"detail,omitempty"`
}

// InstallErrorEvent carries the failure text for an aborted install.
type InstallErrorEvent struct {
	Message string `json:"message"`
}

// LaunchEndedEvent signals that an instance's process exited.
type LaunchEndedEvent struct {
	InstanceID string `json:"instance_id"`
	PID        uint32 `json:"pid"`
}

// LoginCodeEvent delivers the OAuth callback code from the local redirect
// listener.
type LoginCodeEvent struct {
	Code string `json:"code"`
}

// LoginErrorEvent reports a failed login callback.
type LoginErrorEvent struct {
	Message string `json:"message"`
}

// AppConfig is the shared launcher configuration snapshot persisted by the
// daemon.
type AppConfig struct {
	Instances       []Instance `json:"instances"`
	Accounts        []Account  `json:"accounts"`
	ActiveAccountID string     `json:"active_account_id"`
}

// Instance describes one installed game instance.
type Instance struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GameVersion string `json:"game_version"`
	Loader      string `json:"loader"` // "", "fabric", "forge"
	Directory   string `json:"directory"`
}

// Account is a stored player identity.
type Account struct {
	ID   string `json:"id"`
	Kind string `json:"kind"` // "offline" or "microsoft"
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// Metrics is a one-shot resource reading for a running instance.
type Metrics struct {
	RSSMB float64 `json:"rss_mb"`
}

// World names one savegame inside an instance, the scope for datapacks.
type World struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectHit is one remote catalog search result.
type ProjectHit struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Downloads   uint64 `json:"downloads"`
	Author      string `json:"author"`
	Slug        string `json:"slug"`
	IconURL     string `json:"icon_url"`
}

// SearchRequest configures a remote catalog search. Facets follow the
// catalog API's semantics: each inner group is ORed, groups are ANDed.
type SearchRequest struct {
	Query       string     `json:"query"`
	ProjectType string     `json:"project_type"`
	GameVersion string     `json:"game_version"`
	Limit       int        `json:"limit"`
	Sort        string     `json:"sort,omitempty"`
	Facets      [][]string `json:"facets,omitempty"`
}

type searchResponse struct {
	Hits []ProjectHit `json:"hits"`
}

// InstallRequest asks the daemon to install a catalog project into an
// instance. WorldID is required for datapacks and ignored otherwise.
type InstallRequest struct {
	InstanceID  string `json:"instance_id"`
	ProjectID   string `json:"project_id"`
	ProjectType string `json:"project_type"`
	GameVersion string `json:"game_version"`
	Loader      string `json:"loader,omitempty"`
	WorldID     string `json:"world_id,omitempty"`
}

// InstallResult reports the file the daemon placed.
type InstallResult struct {
	Filename  string `json:"filename"`
	Version   string `json:"version"`
	ProjectID string `json:"project_id"`
}

// UninstallRequest removes a previously installed catalog project.
type UninstallRequest struct {
	InstanceID  string `json:"instance_id"`
	ProjectID   string `json:"project_id"`
	ProjectType string `json:"project_type"`
	WorldID     string `json:"world_id,omitempty"`
}

type installedResponse struct {
	ProjectIDs []string `json:"project_ids"`
}

type worldsResponse struct {
	Worlds []World `json:"worlds"`
}

type eventsResponse struct {
	Events []Envelope `json:"events"`
}
