// Command eliza runs a character agent from the terminal: an interactive
// chat loop over a persistent SQLite store, plus knowledge ingestion.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yungalgo/eliza"
	redcache "github.com/yungalgo/eliza/cache/redis"
	"github.com/yungalgo/eliza/knowledge"
	"github.com/yungalgo/eliza/model/gemini"
	"github.com/yungalgo/eliza/store/sqlite"
)

const messageTemplate = `{{.System}}

# Character
{{.Bio}}

{{.Lore}}

{{.Knowledge}}

# Style
{{.MessageDirections}}

# Conversation
{{.RecentMessages}}

# Task
Respond to {{.SenderName}} as {{.AgentName}}. Reply with the message text only.
{{.AgentName}}:`

var (
	flagCharacter string
	flagDatabase  string
	flagRedis     string
	flagDebug     bool
)

func main() {
	root := &cobra.Command{
		Use:           "eliza",
		Short:         "Run a character agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagCharacter, "character", "c", "character.yaml", "character definition file")
	root.PersistentFlags().StringVar(&flagDatabase, "db", "eliza.db", "sqlite database path")
	root.PersistentFlags().StringVar(&flagRedis, "redis", "", "redis address for the shared embedding cache")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(startCmd(), ingestCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRuntime assembles the runtime from the shared flags: SQLite store,
// Gemini provider, optional Redis embedding cache, knowledge engine.
func newRuntime(ctx context.Context) (*eliza.Runtime, *knowledge.Engine, func(), error) {
	logger, err := eliza.NewLogger(flagDebug)
	if err != nil {
		return nil, nil, nil, err
	}
	character, err := eliza.LoadCharacter(flagCharacter)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading character: %w", err)
	}
	store, err := sqlite.Open(flagDatabase)
	if err != nil {
		return nil, nil, nil, err
	}
	provider, err := gemini.New(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	opts := []eliza.Option{
		eliza.WithDatabaseAdapter(store),
		eliza.WithModelProvider(provider),
		eliza.WithCharacter(character),
		eliza.WithLogger(logger),
	}
	var redisClient *goredis.Client
	if flagRedis != "" {
		redisClient = goredis.NewClient(&goredis.Options{Addr: flagRedis})
		opts = append(opts, eliza.WithEmbeddingCache(redcache.New(redisClient)))
	}
	rt, err := eliza.NewRuntime(opts...)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	engine := knowledge.New(rt)
	engine.SetCharacter(ctx, character)
	rt.RegisterKnowledge(engine)
	cleanup := func() {
		if redisClient != nil {
			redisClient.Close()
		}
		store.Close()
		logger.Sync()
	}
	return rt, engine, cleanup, nil
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an interactive chat with the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, _, cleanup, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := rt.Initialize(ctx); err != nil {
				return err
			}
			return chat(ctx, rt, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// chat runs the turn loop: persist the user message, compose state, draft
// a reply, persist it, then run actions and evaluators.
func chat(ctx context.Context, rt *eliza.Runtime, in io.Reader, out io.Writer) error {
	character := rt.Character()
	userID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("eliza.cli.user"))
	roomID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("eliza.cli.room"))
	if err := rt.EnsureConnection(ctx, userID, roomID, "User", "user"); err != nil {
		return err
	}

	fmt.Fprintf(out, "Chatting with %s. Empty line or Ctrl-D exits.\n", character.Name)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}

		message := eliza.NewMemory(rt.AgentID(), userID, roomID, &eliza.Content{Text: text})
		if err := rt.Messages().AddEmbeddingToMemory(ctx, message); err != nil {
			rt.Logger().Warn("embedding user message failed", zap.Error(err))
		}
		if err := rt.Messages().CreateMemory(ctx, message, false); err != nil {
			return fmt.Errorf("storing message: %w", err)
		}

		state, err := rt.ComposeState(ctx, message, nil)
		if err != nil {
			return fmt.Errorf("composing state: %w", err)
		}
		prompt, err := eliza.ComposeContext(state, messageTemplate)
		if err != nil {
			return fmt.Errorf("rendering prompt: %w", err)
		}
		reply, err := rt.Model().GenerateText(ctx, prompt, eliza.WithModelClass(eliza.ModelClassLarge))
		if err != nil {
			return fmt.Errorf("generating reply: %w", err)
		}
		reply = strings.TrimSpace(reply)
		fmt.Fprintf(out, "%s: %s\n", character.Name, reply)

		response := eliza.NewMemory(rt.AgentID(), rt.AgentID(), roomID, &eliza.Content{Text: reply})
		if err := rt.Messages().CreateMemory(ctx, response, false); err != nil {
			return fmt.Errorf("storing response: %w", err)
		}

		state, err = rt.UpdateRecentMessageState(ctx, state)
		if err != nil {
			return fmt.Errorf("refreshing state: %w", err)
		}
		rt.ProcessActions(ctx, message, []*eliza.Memory{response}, state)
		if _, err := rt.Evaluate(ctx, message, state, true); err != nil {
			rt.Logger().Warn("evaluation failed", zap.Error(err))
		}
	}
	return scanner.Err()
}

func ingestCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a directory of knowledge files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, engine, cleanup, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := engine.SetDirectory(ctx, dir); err != nil {
				return err
			}
			rt.Logger().Info("knowledge ingestion complete", zap.String("dir", dir))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "knowledge", "directory of markdown and text files")
	return cmd
}
