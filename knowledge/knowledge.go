package knowledge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yungalgo/eliza"
)

const (
	// DefaultMatchThreshold favors recall over precision for knowledge
	// retrieval; callers tighten it per query.
	DefaultMatchThreshold = 0.1
	// DefaultCount caps retrieved fragments per query.
	DefaultCount = 5

	// ingestBatchSize bounds concurrent file ingestion during directory
	// scans.
	ingestBatchSize = 5
	// chunkSize and chunkOverlap shape fragment splitting, in characters.
	chunkSize    = 1500
	chunkOverlap = 200
)

// idNamespace scopes content-addressed knowledge ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("eliza.knowledge"))

// DeriveID returns the deterministic, content-addressed id for plain-text
// knowledge. Identical text always maps to the same id, which is the
// ingestion dedup key.
func DeriveID(text string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(text))
}

// ItemType distinguishes statically declared knowledge from retrieved
// (RAG) fragments.
type ItemType string

const (
	ItemTypeStatic ItemType = "static"
	ItemTypeRAG    ItemType = "rag"
)

// ItemContent is the payload of a knowledge item.
type ItemContent struct {
	Text     string            `json:"text"`
	Source   string            `json:"source,omitempty"`
	Type     ItemType          `json:"type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Item is a stored, embeddable unit of long-term reference text, distinct
// from conversational memory.
type Item struct {
	ID        uuid.UUID   `json:"id"`
	AgentID   uuid.UUID   `json:"agentId"`
	Content   ItemContent `json:"content"`
	Embedding []float32   `json:"embedding,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Option configures the Engine.
type Option func(*Engine)

// WithLoader sets the content loader for declared-by-reference sources.
func WithLoader(loader Loader) Option {
	return func(e *Engine) {
		e.loader = loader
	}
}

// WithMatchThreshold overrides the default retrieval threshold.
func WithMatchThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithCount overrides the default retrieval result cap.
func WithCount(count int) Option {
	return func(e *Engine) {
		if count > 0 {
			e.count = count
		}
	}
}

// Engine ingests and retrieves knowledge through the runtime's document
// and fragment partitions. Whole documents are stored once under their
// content-addressed id; their chunks are embedded and stored as fragments
// for similarity search.
type Engine struct {
	agentID   uuid.UUID
	documents *eliza.MemoryManager
	fragments *eliza.MemoryManager
	loader    Loader
	threshold float64
	count     int
	logger    *zap.Logger
}

// New creates a knowledge engine over the runtime's managers. The default
// loader reads from the current directory; pass WithLoader to scope it.
func New(rt *eliza.Runtime, opts ...Option) *Engine {
	e := &Engine{
		agentID:   rt.AgentID(),
		documents: rt.Documents(),
		fragments: rt.Fragments(),
		loader:    NewFileLoader("."),
		threshold: DefaultMatchThreshold,
		count:     DefaultCount,
		logger:    rt.Logger().Named("knowledge"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Set ingests one knowledge item. Content declared by reference is
// materialized through the loader first; an item whose content-addressed
// id already exists is a silent no-op, checked before any embedding work.
func (e *Engine) Set(ctx context.Context, item *Item) error {
	if item.Content.Text == "" {
		if item.Content.Source == "" {
			return ErrSourceRequired
		}
		document, err := e.loader.Load(ctx, Source{Path: item.Content.Source, Metadata: item.Content.Metadata})
		if err != nil {
			return err
		}
		item.Content.Text = document.Text
	}
	if item.ID == uuid.Nil {
		item.ID = DeriveID(item.Content.Text)
	}
	if item.AgentID == uuid.Nil {
		item.AgentID = e.agentID
	}

	existing, err := e.documents.GetMemoryByID(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("probing document %s: %w", item.ID, err)
	}
	if existing != nil {
		e.logger.Debug("knowledge already ingested, skipping", zap.String("id", item.ID.String()))
		return nil
	}

	document := &eliza.Memory{
		ID:        item.ID,
		AgentID:   item.AgentID,
		UserID:    item.AgentID,
		RoomID:    item.AgentID,
		Content:   &eliza.Content{Text: item.Content.Text, Source: item.Content.Source},
		Embedding: item.Embedding,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.documents.AddEmbeddingToMemory(ctx, document); err != nil {
		return fmt.Errorf("embedding document %s: %w", item.ID, err)
	}
	item.Embedding = document.Embedding
	if err := e.documents.CreateMemory(ctx, document, true); err != nil {
		return fmt.Errorf("storing document %s: %w", item.ID, err)
	}

	for _, chunk := range splitChunks(Preprocess(item.Content.Text), chunkSize, chunkOverlap) {
		fragment := &eliza.Memory{
			ID:        uuid.NewSHA1(idNamespace, []byte(item.ID.String()+chunk)),
			AgentID:   item.AgentID,
			UserID:    item.AgentID,
			RoomID:    item.AgentID,
			Content:   &eliza.Content{Text: chunk, Source: item.ID.String()},
			CreatedAt: time.Now().UTC(),
		}
		if err := e.fragments.AddEmbeddingToMemory(ctx, fragment); err != nil {
			return fmt.Errorf("embedding fragment of %s: %w", item.ID, err)
		}
		if err := e.fragments.CreateMemory(ctx, fragment, true); err != nil {
			return fmt.Errorf("storing fragment of %s: %w", item.ID, err)
		}
	}
	return nil
}

// GetOption overrides retrieval parameters per query.
type GetOption func(*getParams)

type getParams struct {
	threshold float64
	count     int
	agentOnly bool
	roomID    uuid.UUID
}

// MatchThreshold overrides the similarity lower bound for one query.
func MatchThreshold(threshold float64) GetOption {
	return func(p *getParams) {
		p.threshold = threshold
	}
}

// Count overrides the result cap for one query.
func Count(count int) GetOption {
	return func(p *getParams) {
		if count > 0 {
			p.count = count
		}
	}
}

// AgentOnly scopes retrieval to fragments owned by this agent.
func AgentOnly() GetOption {
	return func(p *getParams) {
		p.agentOnly = true
	}
}

// InRoom scopes retrieval to a room other than the agent's own (global)
// knowledge room.
func InRoom(roomID uuid.UUID) GetOption {
	return func(p *getParams) {
		p.roomID = roomID
	}
}

// Get retrieves knowledge items relevant to the message by embedding
// similarity. Degenerate input for which no embedding is obtainable, and
// every retrieval failure, yield an empty result: knowledge unavailability
// never fails a turn.
func (e *Engine) Get(ctx context.Context, message *eliza.Memory, opts ...GetOption) ([]*Item, error) {
	params := getParams{threshold: e.threshold, count: e.count, roomID: e.agentID}
	for _, opt := range opts {
		opt(&params)
	}
	if message == nil || message.Content == nil {
		return nil, nil
	}
	query := Preprocess(message.Content.Text)
	if query == "" {
		return nil, nil
	}
	embedding, err := e.fragments.Embedding(ctx, query)
	if err != nil {
		e.logger.Warn("no embedding obtainable for query, returning no knowledge", zap.Error(err))
		return nil, nil
	}
	search := eliza.SearchParams{
		RoomID:         params.roomID,
		MatchThreshold: params.threshold,
		Count:          params.count,
		Unique:         true,
	}
	if params.agentOnly {
		agentID := e.agentID
		search.AgentID = &agentID
	}
	fragments, err := e.fragments.SearchMemoriesByEmbedding(ctx, embedding, search)
	if err != nil {
		e.logger.Warn("knowledge search failed, returning no knowledge", zap.Error(err))
		return nil, nil
	}
	items := make([]*Item, 0, len(fragments))
	for _, fragment := range fragments {
		if fragment.Content == nil {
			continue
		}
		items = append(items, &Item{
			ID:      fragment.ID,
			AgentID: fragment.AgentID,
			Content: ItemContent{
				Text:   fragment.Content.Text,
				Source: fragment.Content.Source,
				Type:   ItemTypeRAG,
			},
			Embedding: fragment.Embedding,
			CreatedAt: fragment.CreatedAt,
		})
	}
	return items, nil
}

// Retrieve implements eliza.KnowledgeRetriever for state composition.
func (e *Engine) Retrieve(ctx context.Context, message *eliza.Memory, count int) ([]string, error) {
	items, err := e.Get(ctx, message, Count(count))
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, item.Content.Text)
	}
	return texts, nil
}

// SetCharacter ingests the character's declared knowledge entries. Entries
// are ingested independently; a failing entry is logged and skipped so one
// bad declaration does not block the rest. Re-running is a no-op for
// entries already ingested.
func (e *Engine) SetCharacter(ctx context.Context, character *eliza.Character) {
	if character == nil {
		return
	}
	for _, entry := range character.Knowledge {
		item := &Item{Content: ItemContent{Text: entry, Type: ItemTypeStatic}}
		if err := e.Set(ctx, item); err != nil {
			e.logger.Warn("declared knowledge ingestion failed, skipping", zap.Error(err))
		}
	}
}

// Lister is the optional loader side of directory ingestion; the local
// filesystem loader implements it, the remote loader does not.
type Lister interface {
	List(dir string) ([]string, error)
}

// SetDirectory ingests every markdown, text, and PDF file below the given
// directory, in fixed-size batches. Each file failure is logged and
// skipped; only directory-level errors (missing directory, unsafe path)
// abort the scan.
func (e *Engine) SetDirectory(ctx context.Context, dir string) error {
	lister, ok := e.loader.(Lister)
	if !ok {
		return fmt.Errorf("knowledge loader does not support directory ingestion")
	}
	exists, err := e.loader.Exists(dir)
	if err != nil {
		return fmt.Errorf("scanning knowledge directory %s: %w", dir, err)
	}
	if !exists {
		return fmt.Errorf("knowledge directory %s does not exist", dir)
	}
	paths, err := lister.List(dir)
	if err != nil {
		return fmt.Errorf("scanning knowledge directory %s: %w", dir, err)
	}
	for start := 0; start < len(paths); start += ingestBatchSize {
		end := min(start+ingestBatchSize, len(paths))
		var wg sync.WaitGroup
		for _, path := range paths[start:end] {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				item := &Item{Content: ItemContent{Source: path, Type: ItemTypeStatic}}
				if err := e.Set(ctx, item); err != nil {
					e.logger.Warn("knowledge file ingestion failed, skipping",
						zap.String("path", path), zap.Error(err))
				}
			}(path)
		}
		wg.Wait()
	}
	return nil
}

// splitChunks splits text into overlapping character windows on rune
// boundaries. Short text yields a single chunk.
func splitChunks(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}
	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
