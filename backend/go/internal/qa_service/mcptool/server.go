package mcptool

import (
	"AskBot/backend/go/internal/qa_service/normalize"
	"AskBot/backend/go/internal/qa_service/store"
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version 是 MCP 服务的版本号
var Version = "1.0.0"

// Asker 按完整的回答流程（知识库优先，未命中再生成）回答问题。
type Asker interface {
	Resolve(ctx context.Context, question string) (string, error)
}

type handler struct {
	asker Asker
	facts store.FactStore
}

// NewServer 创建一个 MCP 服务，把问答能力作为工具暴露给 MCP 客户端。
func NewServer(asker Asker, facts store.FactStore) *server.MCPServer {
	h := &handler{asker: asker, facts: facts}

	s := server.NewMCPServer(
		"askbot",
		Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool(
		"ask_question",
		mcp.WithDescription("Answer a question. The curated knowledge base is consulted first; on a miss the configured generation provider answers."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	), h.ask)

	s.AddTool(mcp.NewTool(
		"lookup_fact",
		mcp.WithDescription("Look up a curated answer by exact (normalized) question match. Never calls the generation provider."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to look up"),
		),
	), h.lookup)

	return s
}

func (h *handler) ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := h.asker.Resolve(ctx, question)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return mcp.NewToolResultError("question must not be blank"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to answer: %v", err)), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (h *handler) lookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fact, err := h.facts.Lookup(ctx, normalize.Question(question))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to look up: %v", err)), nil
	}
	if fact == nil {
		return mcp.NewToolResultError("no curated answer for this question"), nil
	}
	return mcp.NewToolResultText(fact.Answer), nil
}
