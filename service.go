package eliza

import "context"

// ServiceType identifies a service in the registry. One service per type.
type ServiceType string

const (
	ServiceTypeSpeech        ServiceType = "speech"
	ServiceTypeTranscription ServiceType = "transcription"
	ServiceTypeImage         ServiceType = "image_description"
	ServiceTypeVideo         ServiceType = "video"
	ServiceTypeBrowser       ServiceType = "browser"
	ServiceTypePDF           ServiceType = "pdf"
)

// Service is a long-lived capability initialized once at startup. A service
// that fails to initialize aborts the whole initialization sequence.
type Service interface {
	Type() ServiceType
	Initialize(ctx context.Context, rt *Runtime) error
}

// Adapter connects the runtime to a chat platform. Adapters are started by
// the process bootstrap, outside this core.
type Adapter interface {
	Name() string
	Start(ctx context.Context, rt *Runtime) error
	Stop(ctx context.Context) error
}

// Plugin contributes an ordered set of capabilities to the runtime at
// construction time. The runtime builds its registries as an explicit
// union over the plugin list; duplicate identities are skipped with a
// warning, never an error.
type Plugin struct {
	Name        string
	Description string
	Actions     []*Action
	Evaluators  []*Evaluator
	Providers   []ContextProvider
	Services    []Service
	Adapters    []Adapter
}
