package eliza

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultConversationLength bounds the recent-message window composed into
// each turn's state.
const defaultConversationLength = 32

// KnowledgeRetriever is the retrieval side of the knowledge engine the
// composer consults each turn. Implementations must treat unavailability
// as "no knowledge found" and never fail a turn.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, message *Memory, count int) ([]string, error)
}

// Option configures the Runtime.
type Option func(*Runtime)

// WithDatabaseAdapter sets the persistent store for the runtime.
func WithDatabaseAdapter(adapter DatabaseAdapter) Option {
	return func(r *Runtime) {
		r.adapter = adapter
	}
}

// WithModelProvider sets the text-generation and embedding provider.
func WithModelProvider(model ModelProvider) Option {
	return func(r *Runtime) {
		r.model = model
	}
}

// WithCharacter sets the character the runtime animates.
func WithCharacter(character *Character) Option {
	return func(r *Runtime) {
		r.character = character
	}
}

// WithAgentID overrides the agent identity derived from the character name.
func WithAgentID(id uuid.UUID) Option {
	return func(r *Runtime) {
		r.agentID = id
	}
}

// WithConversationLength overrides the recent-message window size.
func WithConversationLength(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.conversationLength = n
		}
	}
}

// WithLogger sets the runtime logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithRand sets the random source used for per-turn character sampling so
// callers and tests can pin it.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runtime) {
		r.rng = rng
	}
}

// WithEmbeddingCache sets a cross-process embedding cache shared by all
// memory managers.
func WithEmbeddingCache(cache EmbeddingCache) Option {
	return func(r *Runtime) {
		r.embeddingCache = cache
	}
}

// WithPlugins contributes the plugins' capabilities, in order, to the
// runtime registries.
func WithPlugins(plugins ...*Plugin) Option {
	return func(r *Runtime) {
		r.plugins = append(r.plugins, plugins...)
	}
}

// WithActions registers standalone actions.
func WithActions(actions ...*Action) Option {
	return WithPlugins(&Plugin{Name: "actions", Actions: actions})
}

// WithEvaluators registers standalone evaluators.
func WithEvaluators(evaluators ...*Evaluator) Option {
	return WithPlugins(&Plugin{Name: "evaluators", Evaluators: evaluators})
}

// WithContextProviders registers standalone context providers.
func WithContextProviders(providers ...ContextProvider) Option {
	return WithPlugins(&Plugin{Name: "providers", Providers: providers})
}

// WithServices registers standalone services.
func WithServices(services ...Service) Option {
	return WithPlugins(&Plugin{Name: "services", Services: services})
}

// Runtime is the core of the agent: it owns the capability registries and
// memory managers, assembles the per-turn state snapshot, and executes the
// actions and evaluators the decision-making caller selects.
type Runtime struct {
	agentID            uuid.UUID
	character          *Character
	settings           *Settings
	adapter            DatabaseAdapter
	model              ModelProvider
	logger             *zap.Logger
	conversationLength int
	embeddingCache     EmbeddingCache
	plugins            []*Plugin

	rng   *rand.Rand
	rngMu sync.Mutex

	actions    []*Action
	evaluators []*Evaluator
	providers  []ContextProvider
	services   map[ServiceType]Service
	adapters   map[string]Adapter
	managers   map[string]*MemoryManager
	knowledge  KnowledgeRetriever
}

// NewRuntime creates a runtime from the given options. The database
// adapter, model provider, and character are hard requirements; plugin
// capabilities are registered in plugin order with idempotent-by-skip
// semantics.
func NewRuntime(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		conversationLength: defaultConversationLength,
		logger:             zap.NewNop(),
		services:           make(map[ServiceType]Service),
		adapters:           make(map[string]Adapter),
		managers:           make(map[string]*MemoryManager),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.adapter == nil {
		return nil, ErrDatabaseAdapterRequired
	}
	if r.model == nil {
		return nil, ErrModelProviderRequired
	}
	if r.character == nil || r.character.Name == "" {
		return nil, ErrCharacterRequired
	}
	if r.agentID == uuid.Nil {
		r.agentID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.character.Name))
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r.settings = NewSettings(r.character, os.Environ())
	for _, table := range []string{TableMessages, TableDescriptions, TableLore, TableDocuments, TableFragments} {
		r.RegisterMemoryManager(NewMemoryManager(r.adapter, table,
			WithEmbedder(r.model),
			WithManagerCache(r.embeddingCache),
			WithManagerLogger(r.logger.Named(table)),
		))
	}
	for _, plugin := range r.plugins {
		r.registerPlugin(plugin)
	}
	return r, nil
}

// registerPlugin adds every capability a plugin declares.
func (r *Runtime) registerPlugin(plugin *Plugin) {
	for _, action := range plugin.Actions {
		r.RegisterAction(action)
	}
	for _, evaluator := range plugin.Evaluators {
		r.RegisterEvaluator(evaluator)
	}
	for _, provider := range plugin.Providers {
		r.RegisterContextProvider(provider)
	}
	for _, service := range plugin.Services {
		r.RegisterService(service)
	}
	for _, adapter := range plugin.Adapters {
		r.RegisterAdapter(adapter)
	}
}

// Initialize starts every registered service. A service that fails to
// initialize aborts the sequence: services are hard dependencies.
func (r *Runtime) Initialize(ctx context.Context) error {
	for serviceType, service := range r.services {
		if err := service.Initialize(ctx, r); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrServiceInit, serviceType, err)
		}
	}
	return nil
}

// RegisterAction registers an action. A second registration under the same
// name is skipped with a warning.
func (r *Runtime) RegisterAction(action *Action) {
	for _, existing := range r.actions {
		if existing.Name == action.Name {
			r.logger.Warn("action already registered, skipping", zap.String("action", action.Name))
			return
		}
	}
	r.actions = append(r.actions, action)
}

// RegisterEvaluator registers an evaluator. A second registration under the
// same name is skipped with a warning.
func (r *Runtime) RegisterEvaluator(evaluator *Evaluator) {
	for _, existing := range r.evaluators {
		if existing.Name == evaluator.Name {
			r.logger.Warn("evaluator already registered, skipping", zap.String("evaluator", evaluator.Name))
			return
		}
	}
	r.evaluators = append(r.evaluators, evaluator)
}

// RegisterContextProvider registers a context provider.
func (r *Runtime) RegisterContextProvider(provider ContextProvider) {
	r.providers = append(r.providers, provider)
}

// RegisterService registers a service under its type. A second registration
// under the same type is skipped with a warning.
func (r *Runtime) RegisterService(service Service) {
	if _, ok := r.services[service.Type()]; ok {
		r.logger.Warn("service already registered, skipping", zap.String("service", string(service.Type())))
		return
	}
	r.services[service.Type()] = service
}

// RegisterAdapter registers a platform adapter under its name. A second
// registration under the same name is skipped with a warning.
func (r *Runtime) RegisterAdapter(adapter Adapter) {
	if _, ok := r.adapters[adapter.Name()]; ok {
		r.logger.Warn("adapter already registered, skipping", zap.String("adapter", adapter.Name()))
		return
	}
	r.adapters[adapter.Name()] = adapter
}

// RegisterMemoryManager registers a memory manager under its table name. A
// second registration under the same table is skipped with a warning.
func (r *Runtime) RegisterMemoryManager(manager *MemoryManager) {
	if _, ok := r.managers[manager.Table()]; ok {
		r.logger.Warn("memory manager already registered, skipping", zap.String("table", manager.Table()))
		return
	}
	r.managers[manager.Table()] = manager
}

// RegisterKnowledge wires a knowledge retriever into state composition.
func (r *Runtime) RegisterKnowledge(knowledge KnowledgeRetriever) {
	r.knowledge = knowledge
}

// Service returns the registered service of the given type. Absence is not
// an error: callers treat missing optional services gracefully.
func (r *Runtime) Service(serviceType ServiceType) (Service, bool) {
	service, ok := r.services[serviceType]
	if !ok {
		r.logger.Debug("service not registered", zap.String("service", string(serviceType)))
	}
	return service, ok
}

// MemoryManager returns the manager for the given partition table.
func (r *Runtime) MemoryManager(table string) (*MemoryManager, error) {
	manager, ok := r.managers[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownManager, table)
	}
	return manager, nil
}

// Messages returns the conversation-message manager.
func (r *Runtime) Messages() *MemoryManager { return r.managers[TableMessages] }

// Descriptions returns the actor-description manager.
func (r *Runtime) Descriptions() *MemoryManager { return r.managers[TableDescriptions] }

// Lore returns the lore manager.
func (r *Runtime) Lore() *MemoryManager { return r.managers[TableLore] }

// Documents returns the whole-document knowledge manager.
func (r *Runtime) Documents() *MemoryManager { return r.managers[TableDocuments] }

// Fragments returns the knowledge-fragment manager.
func (r *Runtime) Fragments() *MemoryManager { return r.managers[TableFragments] }

// AgentID returns the agent's identity.
func (r *Runtime) AgentID() uuid.UUID { return r.agentID }

// Character returns the character the runtime animates.
func (r *Runtime) Character() *Character { return r.character }

// Settings returns the layered configuration snapshot.
func (r *Runtime) Settings() *Settings { return r.settings }

// Database returns the underlying store adapter.
func (r *Runtime) Database() DatabaseAdapter { return r.adapter }

// Model returns the model provider.
func (r *Runtime) Model() ModelProvider { return r.model }

// Logger returns the runtime logger.
func (r *Runtime) Logger() *zap.Logger { return r.logger }

// Actions returns the registered actions in registration order.
func (r *Runtime) Actions() []*Action { return r.actions }

// Evaluators returns the registered evaluators in registration order.
func (r *Runtime) Evaluators() []*Evaluator { return r.evaluators }

// ConversationLength returns the recent-message window size.
func (r *Runtime) ConversationLength() int { return r.conversationLength }

// template returns the character's override for the given template key, or
// the fallback.
func (r *Runtime) template(key, fallback string) string {
	if r.character != nil {
		if tmpl, ok := r.character.Templates[key]; ok && tmpl != "" {
			return tmpl
		}
	}
	return fallback
}

// pick returns a uniformly random element, or "" for an empty list.
func (r *Runtime) pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return items[r.rng.Intn(len(items))]
}

// sample returns up to n uniformly random elements without replacement.
func (r *Runtime) sample(items []string, n int) []string {
	if len(items) == 0 || n <= 0 {
		return nil
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	perm := r.rng.Perm(len(items))
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, items[i])
	}
	return out
}

// EnsureUserExists creates the account if it is absent. Existing accounts
// are never modified.
func (r *Runtime) EnsureUserExists(ctx context.Context, userID uuid.UUID, name, username string) error {
	account, err := r.adapter.GetAccountByID(ctx, userID)
	if err != nil {
		return err
	}
	if account != nil {
		return nil
	}
	if name == "" {
		name = "User" + userID.String()
	}
	if username == "" {
		username = name
	}
	return r.adapter.CreateAccount(ctx, &Account{ID: userID, Name: name, Username: username})
}

// EnsureRoomExists creates the room if it is absent.
func (r *Runtime) EnsureRoomExists(ctx context.Context, roomID uuid.UUID) error {
	_, ok, err := r.adapter.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return r.adapter.CreateRoom(ctx, roomID)
}

// EnsureParticipantInRoom adds the user to the room if not already present.
func (r *Runtime) EnsureParticipantInRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	participants, err := r.adapter.GetParticipantsForRoom(ctx, roomID)
	if err != nil {
		return err
	}
	for _, participant := range participants {
		if participant == userID {
			return nil
		}
	}
	return r.adapter.AddParticipant(ctx, userID, roomID)
}

// EnsureConnection establishes the user, the agent, the room, and both
// memberships in one call, the usual prelude to handling a message.
func (r *Runtime) EnsureConnection(ctx context.Context, userID, roomID uuid.UUID, name, username string) error {
	if err := r.EnsureUserExists(ctx, userID, name, username); err != nil {
		return err
	}
	if err := r.EnsureUserExists(ctx, r.agentID, r.character.Name, r.character.Username); err != nil {
		return err
	}
	if err := r.EnsureRoomExists(ctx, roomID); err != nil {
		return err
	}
	if err := r.EnsureParticipantInRoom(ctx, userID, roomID); err != nil {
		return err
	}
	return r.EnsureParticipantInRoom(ctx, r.agentID, roomID)
}
